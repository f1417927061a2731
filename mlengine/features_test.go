package mlengine

import (
	"testing"
	"time"
)

func TestBuildDailySeriesAggregates(t *testing.T) {
	from := day(2026, time.March, 2) // Monday
	to := day(2026, time.March, 6)

	sales := []SaleRecord{
		{ProductId: 1, Amount: 100, Date: from},
		{ProductId: 1, Amount: 50, Date: from},
		{ProductId: 2, Amount: 200, Date: from.AddDate(0, 0, 2)},
		// Outside the range, must be ignored.
		{ProductId: 1, Amount: 999, Date: to.AddDate(0, 0, 1)},
	}
	posts := []PostRecord{
		{ID: 1, PostType: "reel", Date: from.AddDate(0, 0, 1), Time: strptr("18:30")},
	}

	series := BuildDailySeries(sales, posts, from, to)
	if len(series) != 5 {
		t.Fatalf("series length = %d, want 5", len(series))
	}

	if series[0].Revenue != 150 || series[0].Orders != 2 {
		t.Errorf("day 0 = %+v, want revenue 150 orders 2", series[0])
	}
	if !series[1].HadPost || !series[1].PostTypes["reel"] || series[1].PostHour != 18 {
		t.Errorf("day 1 post not recorded: %+v", series[1])
	}
	if series[2].Revenue != 200 {
		t.Errorf("day 2 revenue = %v, want 200", series[2].Revenue)
	}
	if series[3].Revenue != 0 || series[3].HadPost {
		t.Errorf("day 3 should be empty: %+v", series[3])
	}
}

// A morning reel and an evening story on the same day must both show up in
// the one-hots, and the day's post hour is the first timed post's.
func TestBuildDailySeriesMultiplePostTypes(t *testing.T) {
	from := day(2026, time.March, 2)
	postDay := from.AddDate(0, 0, 1)

	sales := []SaleRecord{
		{ProductId: 1, Amount: 100, Date: from},
		{ProductId: 1, Amount: 100, Date: postDay},
	}
	posts := []PostRecord{
		{ID: 1, PostType: "reel", Date: postDay, Time: strptr("09:00")},
		{ID: 2, PostType: "story", Date: postDay, Time: strptr("19:00")},
	}

	series := BuildDailySeries(sales, posts, from, postDay)
	if !series[1].PostTypes["reel"] || !series[1].PostTypes["story"] {
		t.Errorf("post types = %v, want reel and story", series[1].PostTypes)
	}
	if series[1].PostHour != 9 {
		t.Errorf("post hour = %d, want 9 (first post of the day)", series[1].PostHour)
	}

	rows := BuildFeatureRows(series)
	row := rows[0]
	if row.Values["post_type_reel"] != 1 || row.Values["post_type_story"] != 1 {
		t.Errorf("one-hots = reel %v story %v, want both 1",
			row.Values["post_type_reel"], row.Values["post_type_story"])
	}
	if row.Values["post_type_image"] != 0 {
		t.Error("image flag set without an image post")
	}
}

func TestBuildFeatureRowsDropsFirstDay(t *testing.T) {
	from := day(2026, time.March, 2)
	series := BuildDailySeries([]SaleRecord{
		{Amount: 100, Date: from},
		{Amount: 200, Date: from.AddDate(0, 0, 1)},
		{Amount: 300, Date: from.AddDate(0, 0, 2)},
	}, nil, from, from.AddDate(0, 0, 2))

	rows := BuildFeatureRows(series)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (first day dropped)", len(rows))
	}
	if !rows[0].Date.Equal(from.AddDate(0, 0, 1)) {
		t.Errorf("first row date = %v, want day 1", rows[0].Date)
	}
}

// Rolling averages must only see strictly earlier days; the current day's
// revenue leaking in would let the model cheat.
func TestRollingAveragesExcludeCurrentDay(t *testing.T) {
	from := day(2026, time.March, 2)
	revenues := []float64{100, 200, 300, 400, 500}
	var sales []SaleRecord
	for i, r := range revenues {
		sales = append(sales, SaleRecord{Amount: r, Date: from.AddDate(0, 0, i)})
	}
	series := BuildDailySeries(sales, nil, from, from.AddDate(0, 0, 4))
	rows := BuildFeatureRows(series)

	// Row for day index 1: only day 0 is visible.
	if got := rows[0].Values["revenue_3d_avg"]; got != 100 {
		t.Errorf("day1 revenue_3d_avg = %v, want 100", got)
	}
	// Row for day index 3: mean of days 0..2.
	if got := rows[2].Values["revenue_3d_avg"]; got != 200 {
		t.Errorf("day3 revenue_3d_avg = %v, want 200", got)
	}
	// Row for day index 4: 3-day window is days 1..3.
	if got := rows[3].Values["revenue_3d_avg"]; got != 300 {
		t.Errorf("day4 revenue_3d_avg = %v, want 300", got)
	}
	// 7-day window clips to the series start.
	if got := rows[3].Values["revenue_7d_avg"]; got != 250 {
		t.Errorf("day4 revenue_7d_avg = %v, want 250", got)
	}
}

func TestPostLagFeatures(t *testing.T) {
	from := day(2026, time.March, 2)
	var sales []SaleRecord
	for i := 0; i < 6; i++ {
		sales = append(sales, SaleRecord{Amount: 100, Date: from.AddDate(0, 0, i)})
	}
	posts := []PostRecord{{ID: 1, PostType: "story", Date: from.AddDate(0, 0, 2)}}

	series := BuildDailySeries(sales, posts, from, from.AddDate(0, 0, 5))
	rows := BuildFeatureRows(series)

	// rows[i] corresponds to series day i+1.
	byDay := func(dayIdx int) FeatureRow { return rows[dayIdx-1] }

	if byDay(2).Values["had_post"] != 1 {
		t.Error("post day missing had_post")
	}
	if byDay(2).Values["post_type_story"] != 1 || byDay(2).Values["post_type_reel"] != 0 {
		t.Error("post type one-hot wrong on post day")
	}
	if byDay(3).Values["had_post_yesterday"] != 1 {
		t.Error("day after post missing had_post_yesterday")
	}
	if byDay(4).Values["had_post_2days"] != 1 {
		t.Error("two days after post missing had_post_2days")
	}
	if byDay(5).Values["had_post_3days"] != 1 {
		t.Error("three days after post missing had_post_3days")
	}
	if byDay(5).Values["had_post_yesterday"] != 0 {
		t.Error("stale had_post_yesterday")
	}
}

func TestDayOfWeekFeatures(t *testing.T) {
	from := day(2026, time.March, 2) // Monday
	var sales []SaleRecord
	for i := 0; i < 7; i++ {
		sales = append(sales, SaleRecord{Amount: 100, Date: from.AddDate(0, 0, i)})
	}
	series := BuildDailySeries(sales, nil, from, from.AddDate(0, 0, 6))
	rows := BuildFeatureRows(series)

	// rows[4] is Saturday (day index 5).
	sat := rows[4]
	if sat.Values["day_of_week"] != 5 {
		t.Errorf("saturday day_of_week = %v, want 5", sat.Values["day_of_week"])
	}
	if sat.Values["is_weekend"] != 1 {
		t.Error("saturday should be weekend")
	}
	if sat.Values["dow_5"] != 1 || sat.Values["dow_4"] != 0 {
		t.Error("saturday one-hot wrong")
	}

	// rows[2] is Thursday (day index 3).
	thu := rows[2]
	if thu.Values["is_weekend"] != 0 {
		t.Error("thursday should not be weekend")
	}
	if thu.Values["dow_3"] != 1 {
		t.Error("thursday one-hot wrong")
	}
}

func TestVectorProjectsColumnOrder(t *testing.T) {
	row := FeatureRow{Values: map[string]float64{"had_post": 1, "dow_4": 1}}
	v := row.Vector([]string{"dow_4", "had_post", "missing_column"})
	if v[0] != 1 || v[1] != 1 || v[2] != 0 {
		t.Errorf("vector = %v", v)
	}
}
