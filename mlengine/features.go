package mlengine

import (
	"strconv"
	"strings"
	"time"

	"github.com/bizlens/analytics_backend/utils"
)

// featureColumns is the canonical model input order. The trained blob stores
// its own copy so older models keep predicting with the columns they were
// trained on.
var featureColumns = []string{
	"day_of_week", "is_weekend",
	"revenue_3d_avg", "revenue_7d_avg",
	"orders_3d_avg", "orders_7d_avg",
	"had_post", "had_post_yesterday", "had_post_2days", "had_post_3days",
	"post_type_reel", "post_type_story", "post_type_image",
	"dow_0", "dow_1", "dow_2", "dow_3", "dow_4", "dow_5", "dow_6",
}

// DailyAggregate is one calendar day of the business, zero-filled for days
// with no activity. PostTypes collects every type posted that day, so a day
// with both a reel and a story trains with both flags set.
type DailyAggregate struct {
	Date      time.Time
	Revenue   float64
	Orders    int
	HadPost   bool
	PostTypes map[string]bool
	PostHour  int // hour of the first timed post, -1 when none
}

// FeatureRow is one training example: the day's engineered features plus its
// revenue as the target.
type FeatureRow struct {
	Date    time.Time
	Revenue float64
	Values  map[string]float64
}

// Vector projects the row onto the given column order, zero-filling any
// column the row does not carry.
func (r FeatureRow) Vector(columns []string) []float64 {
	v := make([]float64, len(columns))
	for i, col := range columns {
		v[i] = r.Values[col]
	}
	return v
}

// BuildDailySeries expands sales and posts into one aggregate per calendar
// day over [from, to], ordered by date. Days outside the range are ignored.
func BuildDailySeries(sales []SaleRecord, posts []PostRecord, from time.Time, to time.Time) []DailyAggregate {
	from = utils.DateOnly(from)
	to = utils.DateOnly(to)
	if to.Before(from) {
		return nil
	}

	n := int(to.Sub(from).Hours()/24) + 1
	series := make([]DailyAggregate, n)
	index := make(map[time.Time]int, n)
	for i := 0; i < n; i++ {
		date := from.AddDate(0, 0, i)
		series[i] = DailyAggregate{Date: date, PostHour: -1}
		index[date] = i
	}

	for _, s := range sales {
		if i, ok := index[utils.DateOnly(s.Date)]; ok {
			series[i].Revenue += s.Amount
			series[i].Orders++
		}
	}

	for _, p := range posts {
		i, ok := index[utils.DateOnly(p.Date)]
		if !ok {
			continue
		}
		series[i].HadPost = true
		if series[i].PostTypes == nil {
			series[i].PostTypes = make(map[string]bool)
		}
		series[i].PostTypes[p.PostType] = true
		if series[i].PostHour < 0 {
			if hour, ok := parseHour(p.Time); ok {
				series[i].PostHour = hour
			}
		}
	}

	return series
}

// BuildFeatureRows engineers model features from the daily series. Rolling
// averages only look at strictly earlier days, so the first day has no value
// and is dropped.
func BuildFeatureRows(series []DailyAggregate) []FeatureRow {
	rows := make([]FeatureRow, 0, len(series))
	for i, day := range series {
		if i == 0 {
			continue
		}

		dow := utils.WeekdayIndex(day.Date)
		values := map[string]float64{
			"day_of_week":    float64(dow),
			"is_weekend":     boolFeature(dow >= 5),
			"revenue_3d_avg": trailingMean(series, i, 3, revenueOf),
			"revenue_7d_avg": trailingMean(series, i, 7, revenueOf),
			"orders_3d_avg":  trailingMean(series, i, 3, ordersOf),
			"orders_7d_avg":  trailingMean(series, i, 7, ordersOf),
			"had_post":        boolFeature(day.HadPost),
			"post_type_reel":  boolFeature(day.PostTypes["reel"]),
			"post_type_story": boolFeature(day.PostTypes["story"]),
			"post_type_image": boolFeature(day.PostTypes["image"]),
		}
		for lag := 1; lag <= 3; lag++ {
			had := 0.0
			if i-lag >= 0 && series[i-lag].HadPost {
				had = 1
			}
			values[lagColumn(lag)] = had
		}
		for d := 0; d < 7; d++ {
			values["dow_"+strconv.Itoa(d)] = boolFeature(dow == d)
		}

		rows = append(rows, FeatureRow{Date: day.Date, Revenue: day.Revenue, Values: values})
	}
	return rows
}

func lagColumn(lag int) string {
	switch lag {
	case 1:
		return "had_post_yesterday"
	case 2:
		return "had_post_2days"
	default:
		return "had_post_3days"
	}
}

// trailingMean averages the previous `window` days, or fewer near the start
// of the series.
func trailingMean(series []DailyAggregate, i int, window int, value func(DailyAggregate) float64) float64 {
	start := i - window
	if start < 0 {
		start = 0
	}
	if start == i {
		return 0
	}
	var sum float64
	for j := start; j < i; j++ {
		sum += value(series[j])
	}
	return sum / float64(i-start)
}

func revenueOf(d DailyAggregate) float64 { return d.Revenue }

func ordersOf(d DailyAggregate) float64 { return float64(d.Orders) }

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// parseHour extracts the hour from an "HH:MM" clock string.
func parseHour(clock *string) (int, bool) {
	if clock == nil {
		return 0, false
	}
	parts := strings.SplitN(strings.TrimSpace(*clock), ":", 2)
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}
