package models

import (
	"context"
	"time"

	"github.com/bizlens/analytics_backend/analytics"
	"github.com/bizlens/analytics_backend/mlengine"
)

// DataStore adapts the gorm-backed models to the read interfaces the
// analytics and ml packages consume.
type DataStore struct{}

var _ mlengine.DataSource = DataStore{}
var _ analytics.DataSource = DataStore{}

func (DataStore) ProductIds(ctx context.Context, businessId string) ([]int, error) {
	return GetProductIds(ctx, businessId)
}

func (DataStore) Sales(ctx context.Context, productIds []int, from time.Time, to time.Time) ([]mlengine.SaleRecord, error) {
	sales, err := GetSales(ctx, productIds, &from, &to)
	if err != nil {
		return nil, err
	}
	records := make([]mlengine.SaleRecord, 0, len(sales))
	for _, s := range sales {
		records = append(records, mlengine.SaleRecord{
			ProductId: s.ProductId,
			Quantity:  s.Quantity,
			Amount:    s.TotalAmount.InexactFloat64(),
			Date:      s.SaleDate,
			Time:      s.SaleTime,
		})
	}
	return records, nil
}

func (DataStore) Posts(ctx context.Context, businessId string, from *time.Time, to *time.Time) ([]mlengine.PostRecord, error) {
	posts, err := GetMediaPosts(ctx, businessId, from, to)
	if err != nil {
		return nil, err
	}
	records := make([]mlengine.PostRecord, 0, len(posts))
	for _, p := range posts {
		records = append(records, mlengine.PostRecord{
			ID:       p.ID,
			PostType: p.PostType,
			Date:     p.PostedAt,
			Time:     p.PostTime,
		})
	}
	return records, nil
}

func (DataStore) SumSales(ctx context.Context, productIds []int, from time.Time, to time.Time) (float64, error) {
	total, err := SumSaleAmount(ctx, productIds, from, to)
	if err != nil {
		return 0, err
	}
	return total.InexactFloat64(), nil
}

func (DataStore) Products(ctx context.Context, businessId string) ([]analytics.ProductView, error) {
	products, err := GetProducts(ctx, businessId)
	if err != nil {
		return nil, err
	}
	views := make([]analytics.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, analytics.ProductView{
			ID:           p.ID,
			Name:         p.Name,
			CostPrice:    p.CostPrice.InexactFloat64(),
			SellingPrice: p.SellingPrice.InexactFloat64(),
			Category:     p.Category,
		})
	}
	return views, nil
}

func (DataStore) ProductSales(ctx context.Context, productIds []int, from *time.Time, to *time.Time) ([]analytics.SaleView, error) {
	sales, err := GetSales(ctx, productIds, from, to)
	if err != nil {
		return nil, err
	}
	views := make([]analytics.SaleView, 0, len(sales))
	for _, s := range sales {
		views = append(views, analytics.SaleView{
			ProductId: s.ProductId,
			Quantity:  s.Quantity,
			Amount:    s.TotalAmount.InexactFloat64(),
			Date:      s.SaleDate,
		})
	}
	return views, nil
}
