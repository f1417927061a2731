package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/bizlens/analytics_backend/utils"
)

// DashboardStats is the headline card of the dashboard.
type DashboardStats struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalProfit   float64 `json:"total_profit"`
	TotalOrders   int     `json:"total_orders"`
	TotalProducts int     `json:"total_products"`
}

// ProductPerformance is one row in the best/low sellers reports.
type ProductPerformance struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	QuantitySold int     `json:"quantity_sold"`
	Revenue      float64 `json:"revenue"`
}

// ProductProfit is one row of the profitability report.
type ProductProfit struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Profit       float64 `json:"profit"`
	ProfitMargin float64 `json:"profit_margin"`
}

// ProductRevenue is one slice of the revenue breakdown.
type ProductRevenue struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
}

type productTotals struct {
	quantity int
	revenue  float64
}

func totalsByProduct(sales []SaleView) map[int]productTotals {
	totals := make(map[int]productTotals)
	for _, s := range sales {
		t := totals[s.ProductId]
		t.quantity += s.Quantity
		t.revenue += s.Amount
		totals[s.ProductId] = t
	}
	return totals
}

// GetDashboardStats sums revenue, profit and order counts across the whole
// sales history. Profit uses the product's current unit margin.
func GetDashboardStats(ctx context.Context, src DataSource, businessId string) (*DashboardStats, error) {
	products, err := src.Products(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return &DashboardStats{}, nil
	}

	sales, err := src.ProductSales(ctx, productIdsOf(products), nil, nil)
	if err != nil {
		return nil, err
	}

	margin := make(map[int]float64, len(products))
	for _, p := range products {
		margin[p.ID] = p.SellingPrice - p.CostPrice
	}

	stats := &DashboardStats{TotalProducts: len(products), TotalOrders: len(sales)}
	for _, s := range sales {
		stats.TotalRevenue += s.Amount
		stats.TotalProfit += margin[s.ProductId] * float64(s.Quantity)
	}
	stats.TotalRevenue = utils.Round2(stats.TotalRevenue)
	stats.TotalProfit = utils.Round2(stats.TotalProfit)
	return stats, nil
}

// GetBestSellingProducts ranks products by units sold.
func GetBestSellingProducts(ctx context.Context, src DataSource, businessId string, limit int) ([]ProductPerformance, error) {
	products, err := src.Products(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []ProductPerformance{}, nil
	}

	sales, err := src.ProductSales(ctx, productIdsOf(products), nil, nil)
	if err != nil {
		return nil, err
	}
	totals := totalsByProduct(sales)

	// Only products with at least one sale appear.
	rows := make([]ProductPerformance, 0, len(totals))
	for _, p := range products {
		t, ok := totals[p.ID]
		if !ok {
			continue
		}
		rows = append(rows, ProductPerformance{
			Name:         p.Name,
			Category:     p.Category,
			QuantitySold: t.quantity,
			Revenue:      utils.Round2(t.revenue),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].QuantitySold > rows[j].QuantitySold
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// GetMostProfitableProducts ranks products by total profit, computed from
// the current unit margin times units sold.
func GetMostProfitableProducts(ctx context.Context, src DataSource, businessId string, limit int) ([]ProductProfit, error) {
	products, err := src.Products(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []ProductProfit{}, nil
	}

	sales, err := src.ProductSales(ctx, productIdsOf(products), nil, nil)
	if err != nil {
		return nil, err
	}
	totals := totalsByProduct(sales)

	rows := make([]ProductProfit, 0, len(totals))
	for _, p := range products {
		t, ok := totals[p.ID]
		if !ok {
			continue
		}
		unitProfit := p.SellingPrice - p.CostPrice
		marginPct := 0.0
		if p.SellingPrice > 0 {
			marginPct = unitProfit / p.SellingPrice * 100
		}
		rows = append(rows, ProductProfit{
			Name:         p.Name,
			Category:     p.Category,
			Profit:       utils.Round2(unitProfit * float64(t.quantity)),
			ProfitMargin: utils.RoundN(marginPct, 1),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Profit > rows[j].Profit
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// GetLowPerformingProducts lists the weakest products over the recent
// window. Products with zero sales are included, so new listings surface.
func GetLowPerformingProducts(ctx context.Context, src DataSource, businessId string, now time.Time, days int, limit int) ([]ProductPerformance, error) {
	products, err := src.Products(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []ProductPerformance{}, nil
	}

	cutoff := utils.DateOnly(now).AddDate(0, 0, -days)
	sales, err := src.ProductSales(ctx, productIdsOf(products), &cutoff, nil)
	if err != nil {
		return nil, err
	}
	totals := totalsByProduct(sales)

	rows := make([]ProductPerformance, 0, len(products))
	for _, p := range products {
		t := totals[p.ID]
		rows = append(rows, ProductPerformance{
			Name:         p.Name,
			Category:     p.Category,
			QuantitySold: t.quantity,
			Revenue:      utils.Round2(t.revenue),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Revenue < rows[j].Revenue
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// GetRevenueByProduct breaks total revenue down per product, highest first.
func GetRevenueByProduct(ctx context.Context, src DataSource, businessId string) ([]ProductRevenue, error) {
	products, err := src.Products(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []ProductRevenue{}, nil
	}

	sales, err := src.ProductSales(ctx, productIdsOf(products), nil, nil)
	if err != nil {
		return nil, err
	}
	totals := totalsByProduct(sales)

	rows := make([]ProductRevenue, 0, len(totals))
	for _, p := range products {
		t, ok := totals[p.ID]
		if !ok {
			continue
		}
		rows = append(rows, ProductRevenue{Name: p.Name, Revenue: utils.Round2(t.revenue)})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Revenue > rows[j].Revenue
	})
	return rows, nil
}
