package mlengine

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/bizlens/analytics_backend/utils"
)

const (
	minTrainingRows = 30
	testFraction    = 0.2
	splitSeed       = 42
	numTrees        = 100
	maxTreeDepth    = 4
	learningRate    = 0.1
)

const errInsufficientTrainingData = "Insufficient data. Need at least 30 days of sales."

// ModelMetrics is the holdout performance of a trained model.
type ModelMetrics struct {
	MAE float64 `json:"mae"`
	R2  float64 `json:"r2"`
}

// ModelBlob is everything persisted for a trained model. Features pins the
// column order the trees were fit on.
type ModelBlob struct {
	SchemaVersion     int                `json:"schema_version"`
	BusinessId        string             `json:"business_id"`
	TrainedAt         time.Time          `json:"trained_at"`
	Features          []string           `json:"features"`
	Metrics           ModelMetrics       `json:"metrics"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	BaselineRevenue   float64            `json:"baseline_revenue"`
	Model             *GBTRegressor      `json:"model"`
}

// TrainResult is the API-facing summary of a training run.
type TrainResult struct {
	Success           bool               `json:"success"`
	Error             string             `json:"error,omitempty"`
	MAE               float64            `json:"mae,omitempty"`
	R2                float64            `json:"r2,omitempty"`
	DataPoints        int                `json:"data_points,omitempty"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
}

// TrainModel fits a post-impact model on the business's daily history and
// persists the blob through the store. A failed precondition (too little
// data) is reported in the result, not as an error.
func TrainModel(ctx context.Context, src DataSource, store ModelStore, businessId string, now time.Time) (*TrainResult, error) {
	rows, err := buildTrainingRows(ctx, src, businessId, now)
	if err != nil {
		return nil, err
	}
	if len(rows) < minTrainingRows {
		return &TrainResult{Success: false, Error: errInsufficientTrainingData}, nil
	}

	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	var revenueSum float64
	for i, row := range rows {
		X[i] = row.Vector(featureColumns)
		y[i] = row.Revenue
		revenueSum += row.Revenue
	}

	trainIdx, testIdx := splitIndices(len(rows), testFraction, splitSeed)

	trainX := make([][]float64, len(trainIdx))
	trainY := make([]float64, len(trainIdx))
	for i, idx := range trainIdx {
		trainX[i] = X[idx]
		trainY[i] = y[idx]
	}

	model, importance := fitGBT(trainX, trainY, numTrees, maxTreeDepth, learningRate)

	testPred := make([]float64, len(testIdx))
	testY := make([]float64, len(testIdx))
	for i, idx := range testIdx {
		testPred[i] = model.Predict(X[idx])
		testY[i] = y[idx]
	}
	mae := meanAbsoluteError(testY, testPred)
	r2 := rSquared(testY, testPred)

	importanceByName := make(map[string]float64, len(featureColumns))
	for i, col := range featureColumns {
		importanceByName[col] = importance[i]
	}

	blob := &ModelBlob{
		SchemaVersion:     modelSchemaVersion,
		BusinessId:        businessId,
		TrainedAt:         now,
		Features:          append([]string(nil), featureColumns...),
		Metrics:           ModelMetrics{MAE: mae, R2: r2},
		FeatureImportance: importanceByName,
		BaselineRevenue:   revenueSum / float64(len(rows)),
		Model:             model,
	}
	if err := store.Save(blob); err != nil {
		return nil, err
	}

	return &TrainResult{
		Success:           true,
		MAE:               utils.Round2(mae),
		R2:                utils.RoundN(r2, 3),
		DataPoints:        len(rows),
		FeatureImportance: topImportance(importanceByName, 5),
	}, nil
}

func buildTrainingRows(ctx context.Context, src DataSource, businessId string, now time.Time) ([]FeatureRow, error) {
	productIds, err := src.ProductIds(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if len(productIds) == 0 {
		return nil, nil
	}

	endDate := utils.DateOnly(now)
	startDate := endDate.AddDate(0, 0, -lookbackDays)

	sales, err := src.Sales(ctx, productIds, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, nil
	}

	posts, err := src.Posts(ctx, businessId, &startDate, &endDate)
	if err != nil {
		return nil, err
	}

	series := BuildDailySeries(sales, posts, startDate, endDate)
	return BuildFeatureRows(series), nil
}

// splitIndices shuffles deterministically and carves off the test tail.
func splitIndices(n int, fraction float64, seed int64) (train []int, test []int) {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	testSize := int(math.Ceil(float64(n) * fraction))
	if testSize >= n {
		testSize = n - 1
	}
	if testSize < 1 {
		testSize = 1
	}

	return perm[testSize:], perm[:testSize]
}

func meanAbsoluteError(actual []float64, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

func rSquared(actual []float64, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var mean float64
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i := range actual {
		ssRes += (actual[i] - predicted[i]) * (actual[i] - predicted[i])
		ssTot += (actual[i] - mean) * (actual[i] - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// topImportance keeps the k strongest features, rounded for display.
func topImportance(importance map[string]float64, k int) map[string]float64 {
	type kv struct {
		name  string
		value float64
	}
	pairs := make([]kv, 0, len(importance))
	for name, value := range importance {
		pairs = append(pairs, kv{name, value})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].value != pairs[j].value {
			return pairs[i].value > pairs[j].value
		}
		return pairs[i].name < pairs[j].name
	})

	if len(pairs) > k {
		pairs = pairs[:k]
	}
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		out[p.name] = utils.RoundN(p.value, 4)
	}
	return out
}

// PredictScenario runs the model for one hypothetical posting day. The
// scoring row mirrors training columns; recent orders are approximated from
// recent revenue at the demo price scale.
func PredictScenario(blob *ModelBlob, dayOfWeek int, postType string, hadPost bool, recentRevenueAvg float64) float64 {
	values := map[string]float64{
		"day_of_week":     float64(dayOfWeek),
		"is_weekend":      boolFeature(dayOfWeek >= 5),
		"revenue_3d_avg":  recentRevenueAvg,
		"revenue_7d_avg":  recentRevenueAvg,
		"orders_3d_avg":   recentRevenueAvg / 100,
		"orders_7d_avg":   recentRevenueAvg / 100,
		"had_post":        boolFeature(hadPost),
		"post_type_reel":  boolFeature(postType == "reel"),
		"post_type_story": boolFeature(postType == "story"),
		"post_type_image": boolFeature(postType == "image"),
	}
	for d := 0; d < 7; d++ {
		values["dow_"+strconv.Itoa(d)] = boolFeature(dayOfWeek == d)
	}

	row := FeatureRow{Values: values}
	return blob.Model.Predict(row.Vector(blob.Features))
}
