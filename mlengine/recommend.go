package mlengine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bizlens/analytics_backend/utils"
)

// RecommendationSource says what produced the scenarios: a trained model,
// the historical slot heuristic, or nothing.
type RecommendationSource string

const (
	SourceModel     RecommendationSource = "model"
	SourceHeuristic RecommendationSource = "heuristic"
	SourceNone      RecommendationSource = "none"
)

// recentAvgScale converts the average per-sale amount into a rough daily
// revenue figure for scoring rows.
const recentAvgScale = 5

// Scenario is one candidate posting slot with its predicted outcome.
type Scenario struct {
	Day             string  `json:"day"`
	DayOfWeek       int     `json:"day_of_week"`
	PostType        string  `json:"post_type"`
	TimeBucket      string  `json:"time_bucket"`
	ExpectedRevenue float64 `json:"expected_revenue"`
	ExpectedUplift  float64 `json:"expected_uplift"`
	UpliftPercent   float64 `json:"uplift_percent"`
	Confidence      string  `json:"confidence"`
}

// BestOverall is the single top recommendation.
type BestOverall struct {
	Day                   string  `json:"day"`
	Time                  string  `json:"time"`
	PostType              string  `json:"post_type"`
	ExpectedUpliftPercent float64 `json:"expected_uplift_percent"`
	ExpectedRevenue       float64 `json:"expected_revenue"`
	Confidence            string  `json:"confidence"`
}

// Recommendation is the full posting recommendation payload.
type Recommendation struct {
	Error          string               `json:"error,omitempty"`
	Message        string               `json:"message,omitempty"`
	Source         RecommendationSource `json:"source"`
	BestOverall    *BestOverall         `json:"best_overall,omitempty"`
	BestDay        string               `json:"best_day,omitempty"`
	BestPostType   string               `json:"best_post_type,omitempty"`
	BestTime       string               `json:"best_time,omitempty"`
	TopScenarios   []Scenario           `json:"top_5_scenarios"`
	ModelAvailable bool                 `json:"model_available"`
	DataBased      bool                 `json:"data_based"`
}

// Recommend scores every day-of-week and post-type combination and returns
// the ranked posting plan. With a trained model it runs matched-pair
// predictions (same day with and without a post); otherwise it falls back to
// averaged historical slot lifts.
func Recommend(ctx context.Context, src DataSource, store ModelStore, businessId string, now time.Time) (*Recommendation, error) {
	productIds, err := src.ProductIds(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if len(productIds) == 0 {
		return &Recommendation{
			Error:        "No products found",
			Source:       SourceNone,
			TopScenarios: []Scenario{},
		}, nil
	}

	recentAvg, err := recentRevenueAvg(ctx, src, productIds, now)
	if err != nil {
		return nil, err
	}

	analysis, err := AnalyzePostImpact(ctx, src, businessId, now)
	if err != nil {
		return nil, err
	}

	blob, err := store.Load(businessId)
	if err != nil && !errors.Is(err, utils.ErrorModelUnavailable) {
		return nil, err
	}
	modelAvailable := blob != nil

	var scenarios []Scenario
	if modelAvailable {
		scenarios = modelScenarios(blob, recentAvg)
	} else {
		scenarios = heuristicScenarios(analysis)
	}

	if len(scenarios) == 0 {
		return &Recommendation{
			Error:          "Insufficient data for recommendations",
			Message:        "Add more posts and sales data to get personalized recommendations",
			Source:         SourceNone,
			TopScenarios:   []Scenario{},
			ModelAvailable: modelAvailable,
			DataBased:      len(analysis.Slots) > 0,
		}, nil
	}

	sort.SliceStable(scenarios, func(i, j int) bool {
		return scenarios[i].UpliftPercent > scenarios[j].UpliftPercent
	})

	best := scenarios[0]
	top := scenarios
	if len(top) > 5 {
		top = top[:5]
	}

	source := SourceHeuristic
	if modelAvailable {
		source = SourceModel
	}

	return &Recommendation{
		Source: source,
		BestOverall: &BestOverall{
			Day:                   best.Day,
			Time:                  "Evening (6-9 PM)",
			PostType:              best.PostType,
			ExpectedUpliftPercent: best.UpliftPercent,
			ExpectedRevenue:       best.ExpectedRevenue,
			Confidence:            best.Confidence,
		},
		BestDay:        bestByKey(scenarios, dayNames, func(s Scenario) string { return s.Day }),
		BestPostType:   bestByKey(scenarios, postTypes, func(s Scenario) string { return s.PostType }),
		BestTime:       "Evening",
		TopScenarios:   top,
		ModelAvailable: modelAvailable,
		DataBased:      len(analysis.Slots) > 0,
		Message: fmt.Sprintf("Posting a %s on %s evening could increase your sales by ~%.0f%%",
			best.PostType, best.Day, best.UpliftPercent),
	}, nil
}

// recentRevenueAvg is the mean sale amount over the trailing week, scaled to
// an approximate daily revenue.
func recentRevenueAvg(ctx context.Context, src DataSource, productIds []int, now time.Time) (float64, error) {
	to := utils.DateOnly(now)
	from := to.AddDate(0, 0, -7)
	sales, err := src.Sales(ctx, productIds, from, to)
	if err != nil {
		return 0, err
	}
	if len(sales) == 0 {
		return 0, nil
	}
	var sum float64
	for _, s := range sales {
		sum += s.Amount
	}
	return sum / float64(len(sales)) * recentAvgScale, nil
}

// modelScenarios runs matched-pair predictions for all 21 day/type combos.
// The uplift is the model's predicted difference from posting versus staying
// silent on the same day.
func modelScenarios(blob *ModelBlob, recentAvg float64) []Scenario {
	confidence := "medium"
	if blob.Metrics.R2 > 0.5 {
		confidence = "high"
	}

	scenarios := make([]Scenario, 0, len(dayNames)*len(postTypes))
	for dayIdx, dayName := range dayNames {
		for _, postType := range postTypes {
			withPost := PredictScenario(blob, dayIdx, postType, true, recentAvg)
			withoutPost := PredictScenario(blob, dayIdx, postType, false, recentAvg)

			uplift := withPost - withoutPost
			upliftPercent := 0.0
			if withoutPost > 0 {
				upliftPercent = uplift / withoutPost * 100
			}

			scenarios = append(scenarios, Scenario{
				Day:             dayName,
				DayOfWeek:       dayIdx,
				PostType:        postType,
				TimeBucket:      "evening",
				ExpectedRevenue: utils.Round2(withPost),
				ExpectedUplift:  utils.Round2(uplift),
				UpliftPercent:   utils.RoundN(upliftPercent, 1),
				Confidence:      confidence,
			})
		}
	}
	return scenarios
}

// heuristicScenarios averages observed lifts per day and post type, scaling
// the overall baseline by the average lift.
func heuristicScenarios(analysis *SlotAnalysis) []Scenario {
	if len(analysis.Slots) == 0 {
		return nil
	}

	type key struct {
		dayOfWeek int
		postType  string
	}
	groups := make(map[key][]float64)
	var order []key
	for _, slot := range analysis.Slots {
		k := key{slot.DayOfWeek, slot.PostType}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], slot.LiftPercent)
	}

	scenarios := make([]Scenario, 0, len(order))
	for _, k := range order {
		lifts := groups[k]
		var sum float64
		for _, l := range lifts {
			sum += l
		}
		avgLift := sum / float64(len(lifts))

		scenarios = append(scenarios, Scenario{
			Day:             dayNames[k.dayOfWeek],
			DayOfWeek:       k.dayOfWeek,
			PostType:        k.postType,
			TimeBucket:      "evening",
			ExpectedRevenue: utils.Round2(analysis.Baseline * (1 + avgLift/100)),
			ExpectedUplift:  utils.Round2(analysis.Baseline * avgLift / 100),
			UpliftPercent:   utils.RoundN(avgLift, 1),
			Confidence:      "low",
		})
	}
	return scenarios
}

// bestByKey sums uplift across all scenarios sharing a key and returns the
// key with the largest total. Candidate order breaks ties.
func bestByKey(scenarios []Scenario, candidates []string, keyOf func(Scenario) string) string {
	best := ""
	bestSum := 0.0
	for i, candidate := range candidates {
		var sum float64
		for _, s := range scenarios {
			if keyOf(s) == candidate {
				sum += s.UpliftPercent
			}
		}
		if i == 0 || sum > bestSum {
			best = candidate
			bestSum = sum
		}
	}
	return best
}
