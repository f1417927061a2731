package mlengine

import "sort"

// treeNode is one node of a regression tree. Serialized into the model blob,
// so field tags are kept short.
type treeNode struct {
	Leaf      bool      `json:"leaf,omitempty"`
	Feature   int       `json:"f,omitempty"`
	Threshold float64   `json:"t,omitempty"`
	Value     float64   `json:"v,omitempty"`
	Left      *treeNode `json:"l,omitempty"`
	Right     *treeNode `json:"r,omitempty"`
}

func (n *treeNode) predict(x []float64) float64 {
	if n.Leaf {
		return n.Value
	}
	if x[n.Feature] <= n.Threshold {
		return n.Left.predict(x)
	}
	return n.Right.predict(x)
}

// GBTRegressor is gradient boosting over least-squares regression trees: the
// prediction is Init plus LearningRate times the sum of tree outputs.
type GBTRegressor struct {
	Init         float64     `json:"init"`
	LearningRate float64     `json:"learning_rate"`
	Trees        []*treeNode `json:"trees"`
}

func (m *GBTRegressor) Predict(x []float64) float64 {
	out := m.Init
	for _, tree := range m.Trees {
		out += m.LearningRate * tree.predict(x)
	}
	return out
}

// fitGBT trains the booster on residuals, accumulating per-feature squared
// error reduction as the importance signal. The returned importance slice is
// normalized to sum to one (all zeros when no split ever helped).
func fitGBT(X [][]float64, y []float64, numTrees int, maxDepth int, learningRate float64) (*GBTRegressor, []float64) {
	n := len(y)
	numFeatures := 0
	if n > 0 {
		numFeatures = len(X[0])
	}

	var initSum float64
	for _, v := range y {
		initSum += v
	}
	init := 0.0
	if n > 0 {
		init = initSum / float64(n)
	}

	model := &GBTRegressor{Init: init, LearningRate: learningRate}
	importance := make([]float64, numFeatures)

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = init
	}
	residual := make([]float64, n)

	for t := 0; t < numTrees; t++ {
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}

		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		tree := buildTree(X, residual, indices, 0, maxDepth, importance)
		model.Trees = append(model.Trees, tree)

		for i := range pred {
			pred[i] += learningRate * tree.predict(X[i])
		}
	}

	var total float64
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}

	return model, importance
}

const minSamplesSplit = 2

func buildTree(X [][]float64, y []float64, indices []int, depth int, maxDepth int, importance []float64) *treeNode {
	if depth >= maxDepth || len(indices) < minSamplesSplit {
		return leafNode(y, indices)
	}

	feature, threshold, gain, ok := bestSplit(X, y, indices)
	if !ok {
		return leafNode(y, indices)
	}
	importance[feature] += gain

	var left, right []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      buildTree(X, y, left, depth+1, maxDepth, importance),
		Right:     buildTree(X, y, right, depth+1, maxDepth, importance),
	}
}

func leafNode(y []float64, indices []int) *treeNode {
	var sum float64
	for _, i := range indices {
		sum += y[i]
	}
	value := 0.0
	if len(indices) > 0 {
		value = sum / float64(len(indices))
	}
	return &treeNode{Leaf: true, Value: value}
}

// bestSplit scans every feature for the threshold with the largest squared
// error reduction, using prefix sums over the sorted column.
func bestSplit(X [][]float64, y []float64, indices []int) (int, float64, float64, bool) {
	n := len(indices)
	if n < minSamplesSplit {
		return 0, 0, 0, false
	}

	var totalSum, totalSq float64
	for _, i := range indices {
		totalSum += y[i]
		totalSq += y[i] * y[i]
	}
	parentSSE := totalSq - totalSum*totalSum/float64(n)

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	numFeatures := len(X[indices[0]])
	sorted := make([]int, n)
	for feature := 0; feature < numFeatures; feature++ {
		copy(sorted, indices)
		f := feature
		sort.SliceStable(sorted, func(a, b int) bool {
			return X[sorted[a]][f] < X[sorted[b]][f]
		})

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			i := sorted[k]
			leftSum += y[i]
			leftSq += y[i] * y[i]

			// No valid threshold between equal values.
			if X[sorted[k]][feature] == X[sorted[k+1]][feature] {
				continue
			}

			nl := float64(k + 1)
			nr := float64(n - k - 1)
			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq

			leftSSE := leftSq - leftSum*leftSum/nl
			rightSSE := rightSq - rightSum*rightSum/nr
			gain := parentSSE - leftSSE - rightSSE

			if gain > bestGain {
				bestGain = gain
				bestFeature = feature
				bestThreshold = (X[sorted[k]][feature] + X[sorted[k+1]][feature]) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, 0, false
	}
	return bestFeature, bestThreshold, bestGain, true
}
