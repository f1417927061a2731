package models

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bizlens/analytics_backend/config"
	"github.com/bizlens/analytics_backend/utils"
)

// Sale records one transaction. TotalAmount is derived from the product's
// selling price at recording time and never recomputed afterwards.
type Sale struct {
	ID          int             `gorm:"primary_key;auto_increment" json:"id"`
	ProductId   int             `gorm:"index;not null" json:"product_id"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,4);" json:"total_amount"`
	SaleDate    time.Time       `gorm:"type:date;index;not null" json:"sale_date"`
	SaleTime    *string         `gorm:"size:5" json:"sale_time"`
}

type NewSale struct {
	ProductId int     `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	SaleDate  string  `json:"sale_date" binding:"required"`
	SaleTime  *string `json:"sale_time"`
}

// CSVImportResult summarizes a bulk sales upload.
type CSVImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

const saleDateLayout = "2006-01-02"

// RecordSale verifies product ownership, computes the total from the selling
// price and persists the sale.
func RecordSale(ctx context.Context, businessId string, input NewSale) (*Sale, error) {
	db := config.GetDB()
	logg := config.GetLogger()

	product, err := GetProductById(ctx, businessId, input.ProductId)
	if err != nil {
		return nil, err
	}

	saleDate, err := time.Parse(saleDateLayout, input.SaleDate)
	if err != nil {
		return nil, fmt.Errorf("invalid sale_date %q: expected YYYY-MM-DD", input.SaleDate)
	}

	sale := &Sale{
		ProductId:   product.ID,
		Quantity:    input.Quantity,
		TotalAmount: product.SellingPrice.Mul(decimal.NewFromInt(int64(input.Quantity))),
		SaleDate:    utils.DateOnly(saleDate),
		SaleTime:    input.SaleTime,
	}

	if err := db.WithContext(ctx).Create(sale).Error; err != nil {
		config.LogError(logg, "models", "RecordSale", "create sale", input, err)
		return nil, err
	}
	return sale, nil
}

// GetSales lists sales for the given products, optionally bounded by date.
func GetSales(ctx context.Context, productIds []int, from *time.Time, to *time.Time) ([]Sale, error) {
	db := config.GetDB()
	logg := config.GetLogger()

	if len(productIds) == 0 {
		return []Sale{}, nil
	}

	query := db.WithContext(ctx).Where("product_id IN ?", productIds)
	if from != nil {
		query = query.Where("sale_date >= ?", utils.DateOnly(*from))
	}
	if to != nil {
		query = query.Where("sale_date <= ?", utils.DateOnly(*to))
	}

	var sales []Sale
	if err := query.Order("sale_date asc, id asc").Find(&sales).Error; err != nil {
		config.LogError(logg, "models", "GetSales", "list sales", productIds, err)
		return nil, err
	}
	return sales, nil
}

// SumSaleAmount returns the total revenue over a closed date range. The
// aggregate runs in the database so impact windows stay cheap.
func SumSaleAmount(ctx context.Context, productIds []int, from time.Time, to time.Time) (decimal.Decimal, error) {
	db := config.GetDB()
	logg := config.GetLogger()

	if len(productIds) == 0 {
		return decimal.Zero, nil
	}

	var total decimal.NullDecimal
	err := db.WithContext(ctx).
		Model(&Sale{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("product_id IN ?", productIds).
		Where("sale_date >= ? AND sale_date <= ?", utils.DateOnly(from), utils.DateOnly(to)).
		Scan(&total).Error
	if err != nil {
		config.LogError(logg, "models", "SumSaleAmount", "sum sales", productIds, err)
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// ImportSalesCSV ingests a CSV with header
// product_id,quantity,sale_date[,sale_time]. Rows referencing products the
// business does not own are skipped, not failed.
func ImportSalesCSV(ctx context.Context, businessId string, r io.Reader) (*CSVImportResult, error) {
	db := config.GetDB()
	logg := config.GetLogger()

	ownedIds, err := GetProductIds(ctx, businessId)
	if err != nil {
		return nil, err
	}
	owned := make(map[int]bool, len(ownedIds))
	for _, id := range ownedIds {
		owned[id] = true
	}

	prices := make(map[int]decimal.Decimal)
	products, err := GetProducts(ctx, businessId)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		prices[p.ID] = p.SellingPrice
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("empty or unreadable CSV: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"product_id", "quantity", "sale_date"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("CSV missing required column %q", required)
		}
	}

	result := &CSVImportResult{}
	var batch []Sale
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		productId, err := strconv.Atoi(strings.TrimSpace(record[col["product_id"]]))
		if err != nil || !owned[productId] {
			result.Skipped++
			continue
		}
		quantity, err := strconv.Atoi(strings.TrimSpace(record[col["quantity"]]))
		if err != nil || quantity <= 0 {
			result.Skipped++
			continue
		}
		saleDate, err := time.Parse(saleDateLayout, strings.TrimSpace(record[col["sale_date"]]))
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: bad sale_date", line))
			continue
		}

		var saleTime *string
		if idx, ok := col["sale_time"]; ok && idx < len(record) {
			if v := strings.TrimSpace(record[idx]); v != "" {
				saleTime = &v
			}
		}

		batch = append(batch, Sale{
			ProductId:   productId,
			Quantity:    quantity,
			TotalAmount: prices[productId].Mul(decimal.NewFromInt(int64(quantity))),
			SaleDate:    utils.DateOnly(saleDate),
			SaleTime:    saleTime,
		})
	}

	if len(batch) > 0 {
		if err := db.WithContext(ctx).CreateInBatches(batch, 200).Error; err != nil {
			config.LogError(logg, "models", "ImportSalesCSV", "batch insert", businessId, err)
			return nil, err
		}
	}
	result.Imported = len(batch)
	return result, nil
}
