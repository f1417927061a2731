package analytics

import (
	"context"
	"testing"
	"time"
)

type fakeData struct {
	products []ProductView
	sales    []SaleView
}

func (f fakeData) Products(ctx context.Context, businessId string) ([]ProductView, error) {
	return f.products, nil
}

func (f fakeData) ProductSales(ctx context.Context, productIds []int, from *time.Time, to *time.Time) ([]SaleView, error) {
	allowed := make(map[int]bool, len(productIds))
	for _, id := range productIds {
		allowed[id] = true
	}
	var out []SaleView
	for _, s := range f.sales {
		if !allowed[s.ProductId] {
			continue
		}
		if from != nil && s.Date.Before(*from) {
			continue
		}
		if to != nil && s.Date.After(*to) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cafeFixture() fakeData {
	return fakeData{
		products: []ProductView{
			{ID: 1, Name: "Coffee", CostPrice: 5, SellingPrice: 10, Category: "Beverages"},
			{ID: 2, Name: "Bread", CostPrice: 2, SellingPrice: 6, Category: "Bakery"},
			{ID: 3, Name: "Honey", CostPrice: 6, SellingPrice: 15, Category: "Pantry"},
		},
		sales: []SaleView{
			{ProductId: 1, Quantity: 2, Amount: 20, Date: day(2026, time.June, 1)},
			{ProductId: 1, Quantity: 1, Amount: 10, Date: day(2026, time.June, 5)},
			{ProductId: 2, Quantity: 5, Amount: 30, Date: day(2026, time.June, 5)},
			// Honey never sells.
		},
	}
}

func TestGetDashboardStats(t *testing.T) {
	src := cafeFixture()
	stats, err := GetDashboardStats(context.Background(), src, "biz")
	if err != nil {
		t.Fatalf("GetDashboardStats: %v", err)
	}
	if stats.TotalRevenue != 60 {
		t.Errorf("revenue = %v, want 60", stats.TotalRevenue)
	}
	// Coffee: 3 units x 5 margin; Bread: 5 units x 4 margin.
	if stats.TotalProfit != 35 {
		t.Errorf("profit = %v, want 35", stats.TotalProfit)
	}
	if stats.TotalOrders != 3 {
		t.Errorf("orders = %v, want 3", stats.TotalOrders)
	}
	if stats.TotalProducts != 3 {
		t.Errorf("products = %v, want 3", stats.TotalProducts)
	}
}

func TestGetDashboardStatsEmpty(t *testing.T) {
	stats, err := GetDashboardStats(context.Background(), fakeData{}, "biz")
	if err != nil {
		t.Fatalf("GetDashboardStats: %v", err)
	}
	if *stats != (DashboardStats{}) {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestGetBestSellingProducts(t *testing.T) {
	src := cafeFixture()
	rows, err := GetBestSellingProducts(context.Background(), src, "biz", 10)
	if err != nil {
		t.Fatalf("GetBestSellingProducts: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (no-sale products excluded)", len(rows))
	}
	if rows[0].Name != "Bread" || rows[0].QuantitySold != 5 {
		t.Errorf("top seller = %+v, want Bread x5", rows[0])
	}
	if rows[1].Name != "Coffee" || rows[1].Revenue != 30 {
		t.Errorf("second seller = %+v, want Coffee revenue 30", rows[1])
	}
}

func TestGetBestSellingProductsLimit(t *testing.T) {
	src := cafeFixture()
	rows, err := GetBestSellingProducts(context.Background(), src, "biz", 1)
	if err != nil {
		t.Fatalf("GetBestSellingProducts: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Bread" {
		t.Errorf("limited rows = %+v", rows)
	}
}

func TestGetMostProfitableProducts(t *testing.T) {
	src := cafeFixture()
	rows, err := GetMostProfitableProducts(context.Background(), src, "biz", 10)
	if err != nil {
		t.Fatalf("GetMostProfitableProducts: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	// Bread: 5 units x 4 = 20; Coffee: 3 units x 5 = 15.
	if rows[0].Name != "Bread" || rows[0].Profit != 20 {
		t.Errorf("top profit = %+v, want Bread 20", rows[0])
	}
	// Bread margin: 4/6 = 66.7%.
	if rows[0].ProfitMargin != 66.7 {
		t.Errorf("bread margin = %v, want 66.7", rows[0].ProfitMargin)
	}
	if rows[1].Name != "Coffee" || rows[1].ProfitMargin != 50 {
		t.Errorf("coffee row = %+v, want margin 50", rows[1])
	}
}

func TestGetMostProfitableProductsZeroPrice(t *testing.T) {
	src := fakeData{
		products: []ProductView{{ID: 1, Name: "Freebie", SellingPrice: 0}},
		sales:    []SaleView{{ProductId: 1, Quantity: 2, Amount: 0, Date: day(2026, time.June, 1)}},
	}
	rows, err := GetMostProfitableProducts(context.Background(), src, "biz", 10)
	if err != nil {
		t.Fatalf("GetMostProfitableProducts: %v", err)
	}
	if len(rows) != 1 || rows[0].ProfitMargin != 0 {
		t.Errorf("zero-price margin = %+v, want 0", rows)
	}
}

func TestGetLowPerformingProductsIncludesZeroSales(t *testing.T) {
	src := cafeFixture()
	now := day(2026, time.June, 10)
	rows, err := GetLowPerformingProducts(context.Background(), src, "biz", now, 30, 10)
	if err != nil {
		t.Fatalf("GetLowPerformingProducts: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want all 3 products", len(rows))
	}
	if rows[0].Name != "Honey" || rows[0].Revenue != 0 {
		t.Errorf("weakest product = %+v, want Honey at 0", rows[0])
	}
	// Ascending by revenue.
	for i := 1; i < len(rows); i++ {
		if rows[i].Revenue < rows[i-1].Revenue {
			t.Errorf("not ascending at %d", i)
		}
	}
}

func TestGetLowPerformingProductsWindow(t *testing.T) {
	src := cafeFixture()
	// Window that excludes the June 1 sale.
	now := day(2026, time.July, 3)
	rows, err := GetLowPerformingProducts(context.Background(), src, "biz", now, 30, 10)
	if err != nil {
		t.Fatalf("GetLowPerformingProducts: %v", err)
	}
	for _, row := range rows {
		if row.Name == "Coffee" && row.Revenue != 10 {
			t.Errorf("coffee revenue = %v, want 10 (old sale outside window)", row.Revenue)
		}
	}
}

func TestGetRevenueByProduct(t *testing.T) {
	src := cafeFixture()
	rows, err := GetRevenueByProduct(context.Background(), src, "biz")
	if err != nil {
		t.Fatalf("GetRevenueByProduct: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Name != "Coffee" || rows[0].Revenue != 30 {
		t.Errorf("top revenue = %+v, want Coffee 30", rows[0])
	}
	if rows[1].Name != "Bread" || rows[1].Revenue != 30 {
		t.Errorf("second = %+v, want Bread 30", rows[1])
	}
}
