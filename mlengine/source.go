package mlengine

import (
	"context"
	"time"
)

// SaleRecord is the engine's view of one sale.
type SaleRecord struct {
	ProductId int
	Quantity  int
	Amount    float64
	Date      time.Time
	Time      *string
}

// PostRecord is the engine's view of one media post.
type PostRecord struct {
	ID       int
	PostType string
	Date     time.Time
	Time     *string
}

// DataSource feeds the engine. The models package provides the gorm-backed
// implementation; tests use in-memory fakes. Nil post bounds mean unbounded.
type DataSource interface {
	ProductIds(ctx context.Context, businessId string) ([]int, error)
	Sales(ctx context.Context, productIds []int, from time.Time, to time.Time) ([]SaleRecord, error)
	Posts(ctx context.Context, businessId string, from *time.Time, to *time.Time) ([]PostRecord, error)
	SumSales(ctx context.Context, productIds []int, from time.Time, to time.Time) (float64, error)
}
