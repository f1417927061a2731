package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/bizlens/analytics_backend/utils"
)

var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayRevenue is revenue attributed to one weekday.
type DayRevenue struct {
	Day     string  `json:"day"`
	Revenue float64 `json:"revenue"`
}

// BestDayReport names the strongest weekday with the full breakdown.
type BestDayReport struct {
	Day            string       `json:"day"`
	Revenue        float64      `json:"revenue"`
	DailyBreakdown []DayRevenue `json:"daily_breakdown"`
}

// WeeklyTrend is one ISO week of activity, keyed by its Monday.
type WeeklyTrend struct {
	Week    string  `json:"week"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// MonthlyTrend is one calendar month of activity.
type MonthlyTrend struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// GetBestDayOfWeek finds which weekday historically earns the most.
func GetBestDayOfWeek(ctx context.Context, src DataSource, businessId string) (*BestDayReport, error) {
	products, err := src.Products(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return &BestDayReport{Day: "N/A", DailyBreakdown: []DayRevenue{}}, nil
	}

	sales, err := src.ProductSales(ctx, productIdsOf(products), nil, nil)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return &BestDayReport{Day: "N/A", DailyBreakdown: []DayRevenue{}}, nil
	}

	var revenueByDay [7]float64
	for _, s := range sales {
		revenueByDay[utils.WeekdayIndex(s.Date)] += s.Amount
	}

	bestIdx := 0
	breakdown := make([]DayRevenue, 7)
	for i, name := range dayNames {
		breakdown[i] = DayRevenue{Day: name, Revenue: utils.Round2(revenueByDay[i])}
		if revenueByDay[i] > revenueByDay[bestIdx] {
			bestIdx = i
		}
	}

	return &BestDayReport{
		Day:            dayNames[bestIdx],
		Revenue:        utils.Round2(revenueByDay[bestIdx]),
		DailyBreakdown: breakdown,
	}, nil
}

// GetWeeklyTrends buckets recent sales by week, oldest first. Week keys are
// the Monday of each week formatted as YYYY-MM-DD.
func GetWeeklyTrends(ctx context.Context, src DataSource, businessId string, now time.Time, weeks int) ([]WeeklyTrend, error) {
	products, err := src.Products(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []WeeklyTrend{}, nil
	}

	from := utils.DateOnly(now).AddDate(0, 0, -weeks*7)
	sales, err := src.ProductSales(ctx, productIdsOf(products), &from, nil)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		revenue float64
		orders  int
	}
	weekly := make(map[string]bucket)
	for _, s := range sales {
		weekStart := utils.DateOnly(s.Date).AddDate(0, 0, -utils.WeekdayIndex(s.Date))
		key := weekStart.Format("2006-01-02")
		b := weekly[key]
		b.revenue += s.Amount
		b.orders++
		weekly[key] = b
	}

	keys := make([]string, 0, len(weekly))
	for k := range weekly {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	trends := make([]WeeklyTrend, 0, len(keys))
	for _, k := range keys {
		b := weekly[k]
		trends = append(trends, WeeklyTrend{Week: k, Revenue: utils.Round2(b.revenue), Orders: b.orders})
	}
	return trends, nil
}

// GetMonthlyTrends buckets the whole history by month and keeps the most
// recent N months.
func GetMonthlyTrends(ctx context.Context, src DataSource, businessId string, months int) ([]MonthlyTrend, error) {
	products, err := src.Products(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []MonthlyTrend{}, nil
	}

	sales, err := src.ProductSales(ctx, productIdsOf(products), nil, nil)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		revenue float64
		orders  int
	}
	monthly := make(map[string]bucket)
	for _, s := range sales {
		key := s.Date.Format("2006-01")
		b := monthly[key]
		b.revenue += s.Amount
		b.orders++
		monthly[key] = b
	}

	keys := make([]string, 0, len(monthly))
	for k := range monthly {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if months > 0 && len(keys) > months {
		keys = keys[len(keys)-months:]
	}

	trends := make([]MonthlyTrend, 0, len(keys))
	for _, k := range keys {
		b := monthly[k]
		trends = append(trends, MonthlyTrend{Month: k, Revenue: utils.Round2(b.revenue), Orders: b.orders})
	}
	return trends, nil
}
