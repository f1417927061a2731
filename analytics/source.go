package analytics

import (
	"context"
	"time"
)

// ProductView is the analytics view of a product.
type ProductView struct {
	ID           int
	Name         string
	CostPrice    float64
	SellingPrice float64
	Category     string
}

// SaleView is the analytics view of a sale.
type SaleView struct {
	ProductId int
	Quantity  int
	Amount    float64
	Date      time.Time
}

// DataSource feeds the report builders. Nil bounds mean unbounded.
type DataSource interface {
	Products(ctx context.Context, businessId string) ([]ProductView, error)
	ProductSales(ctx context.Context, productIds []int, from *time.Time, to *time.Time) ([]SaleView, error)
}

func productIdsOf(products []ProductView) []int {
	ids := make([]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}
