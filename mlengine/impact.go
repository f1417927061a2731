package mlengine

import (
	"context"
	"time"

	"github.com/bizlens/analytics_backend/utils"
)

const (
	lookbackDays        = 180
	beforeWindowDays    = 7
	afterWindowDays     = 3
	minPostsForAnalysis = 3
)

const errNeedMorePosts = "Need at least 3 posts for analysis"

var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var postTypes = []string{"reel", "story", "image"}

// PostImpact compares daily revenue around one post against the week before
// it. IncrementalRevenue is the estimated extra revenue over the post window,
// floored at zero.
type PostImpact struct {
	PostId             int     `json:"post_id"`
	DayOfWeek          int     `json:"day_of_week"`
	DayName            string  `json:"day_name"`
	TimeBucket         string  `json:"time_bucket"`
	PostType           string  `json:"post_type"`
	LiftPercent        float64 `json:"lift_percent"`
	PostDaily          float64 `json:"post_daily"`
	BaselineDaily      float64 `json:"baseline_daily"`
	IncrementalRevenue float64 `json:"incremental_revenue"`
}

// SlotAnalysis is the per-post impact breakdown over the lookback window.
type SlotAnalysis struct {
	Slots    []PostImpact `json:"slots"`
	Baseline float64      `json:"baseline"`
	Error    string       `json:"error,omitempty"`
}

// timeBucket maps a post's clock time to a coarse slot. Posts without a
// recorded time count as evening, the typical small-business posting slot.
func timeBucket(clock *string) string {
	hour, ok := parseHour(clock)
	if !ok {
		return "evening"
	}
	if hour < 12 {
		return "morning"
	}
	if hour < 17 {
		return "afternoon"
	}
	return "evening"
}

// AnalyzePostImpact measures, for every post in the lookback window, the
// average daily revenue in the days after the post versus the week before it.
func AnalyzePostImpact(ctx context.Context, src DataSource, businessId string, now time.Time) (*SlotAnalysis, error) {
	productIds, err := src.ProductIds(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if len(productIds) == 0 {
		return &SlotAnalysis{Slots: []PostImpact{}}, nil
	}

	endDate := utils.DateOnly(now)
	startDate := endDate.AddDate(0, 0, -lookbackDays)

	// Every post counts toward the minimum and gets a slot; only the sales
	// that back the revenue windows are bounded to the lookback.
	posts, err := src.Posts(ctx, businessId, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(posts) < minPostsForAnalysis {
		return &SlotAnalysis{Slots: []PostImpact{}, Error: errNeedMorePosts}, nil
	}

	sales, err := src.Sales(ctx, productIds, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return &SlotAnalysis{Slots: []PostImpact{}}, nil
	}

	dailyRevenue := make(map[time.Time]float64)
	for _, s := range sales {
		dailyRevenue[utils.DateOnly(s.Date)] += s.Amount
	}

	var baselineSum float64
	for _, v := range dailyRevenue {
		baselineSum += v
	}
	baseline := baselineSum / float64(len(dailyRevenue))

	slots := make([]PostImpact, 0, len(posts))
	for _, post := range posts {
		postDate := utils.DateOnly(post.Date)

		var beforeSum float64
		for i := 1; i <= beforeWindowDays; i++ {
			beforeSum += dailyRevenue[postDate.AddDate(0, 0, -i)]
		}
		beforeDaily := beforeSum / beforeWindowDays

		var afterSum float64
		for i := 0; i < afterWindowDays; i++ {
			afterSum += dailyRevenue[postDate.AddDate(0, 0, i)]
		}
		afterDaily := afterSum / afterWindowDays

		liftPercent := 0.0
		if beforeDaily > 0 {
			liftPercent = (afterDaily - beforeDaily) / beforeDaily * 100
		}

		incremental := (afterDaily - beforeDaily) * afterWindowDays
		if incremental < 0 {
			incremental = 0
		}

		dow := utils.WeekdayIndex(postDate)
		slots = append(slots, PostImpact{
			PostId:             post.ID,
			DayOfWeek:          dow,
			DayName:            dayNames[dow],
			TimeBucket:         timeBucket(post.Time),
			PostType:           post.PostType,
			LiftPercent:        liftPercent,
			PostDaily:          utils.Round2(afterDaily),
			BaselineDaily:      utils.Round2(beforeDaily),
			IncrementalRevenue: utils.Round2(incremental),
		})
	}

	return &SlotAnalysis{Slots: slots, Baseline: baseline}, nil
}

// PerformanceEntry is an averaged lift for one grouping key (a day name, a
// post type, or a time bucket).
type PerformanceEntry struct {
	Name      string  `json:"name"`
	AvgLift   float64 `json:"avg_lift"`
	PostCount int     `json:"post_count"`
}

// PostingInsights aggregates per-post impacts along each posting dimension.
type PostingInsights struct {
	HasData              bool               `json:"has_data"`
	Message              string             `json:"message,omitempty"`
	TotalPostsAnalyzed   int                `json:"total_posts_analyzed,omitempty"`
	BaselineDailyRevenue float64            `json:"baseline_daily_revenue,omitempty"`
	DayPerformance       []PerformanceEntry `json:"day_performance,omitempty"`
	TypePerformance      []PerformanceEntry `json:"type_performance,omitempty"`
	TimePerformance      []PerformanceEntry `json:"time_performance,omitempty"`
}

// GetPostingInsights summarizes which days, post types and time slots have
// historically lifted sales.
func GetPostingInsights(ctx context.Context, src DataSource, businessId string, now time.Time) (*PostingInsights, error) {
	analysis, err := AnalyzePostImpact(ctx, src, businessId, now)
	if err != nil {
		return nil, err
	}
	if len(analysis.Slots) == 0 {
		return &PostingInsights{
			HasData: false,
			Message: "Add media posts and sales to see posting insights",
		}, nil
	}

	dayLifts := newLiftGroups()
	typeLifts := newLiftGroups()
	timeLifts := newLiftGroups()
	for _, slot := range analysis.Slots {
		dayLifts.add(slot.DayName, slot.LiftPercent)
		typeLifts.add(slot.PostType, slot.LiftPercent)
		timeLifts.add(slot.TimeBucket, slot.LiftPercent)
	}

	return &PostingInsights{
		HasData:              true,
		TotalPostsAnalyzed:   len(analysis.Slots),
		BaselineDailyRevenue: utils.Round2(analysis.Baseline),
		DayPerformance:       dayLifts.entries(),
		TypePerformance:      typeLifts.entries(),
		TimePerformance:      timeLifts.entries(),
	}, nil
}
