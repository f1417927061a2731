package models

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bizlens/analytics_backend/config"
	"github.com/bizlens/analytics_backend/utils"
)

// Product belongs to a business. Prices carry four decimal places in the
// database; API payloads render them as plain decimal strings.
type Product struct {
	ID           int             `gorm:"primary_key;auto_increment" json:"id"`
	BusinessId   string          `gorm:"type:char(36);index;not null" json:"business_id"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(20,4);" json:"cost_price"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(20,4);" json:"selling_price"`
	Category     string          `gorm:"size:100" json:"category"`
}

type NewProduct struct {
	Name         string          `json:"name" binding:"required"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Category     string          `json:"category"`
}

func CreateProduct(ctx context.Context, businessId string, input NewProduct) (*Product, error) {
	db := config.GetDB()
	logg := config.GetLogger()

	product := &Product{
		BusinessId:   businessId,
		Name:         input.Name,
		CostPrice:    input.CostPrice,
		SellingPrice: input.SellingPrice,
		Category:     input.Category,
	}

	if err := db.WithContext(ctx).Create(product).Error; err != nil {
		config.LogError(logg, "models", "CreateProduct", "create product", input.Name, err)
		return nil, err
	}
	return product, nil
}

func GetProducts(ctx context.Context, businessId string) ([]Product, error) {
	db := config.GetDB()
	logg := config.GetLogger()

	var products []Product
	err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Order("id asc").
		Find(&products).Error
	if err != nil {
		config.LogError(logg, "models", "GetProducts", "list products", businessId, err)
		return nil, err
	}
	return products, nil
}

func GetProductById(ctx context.Context, businessId string, id int) (*Product, error) {
	db := config.GetDB()

	var product Product
	err := db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessId).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetProductIds returns the ids of every product the business owns. Most
// sale queries scope by product ids rather than joining.
func GetProductIds(ctx context.Context, businessId string) ([]int, error) {
	db := config.GetDB()
	logg := config.GetLogger()

	var ids []int
	err := db.WithContext(ctx).
		Model(&Product{}).
		Where("business_id = ?", businessId).
		Pluck("id", &ids).Error
	if err != nil {
		config.LogError(logg, "models", "GetProductIds", "pluck ids", businessId, err)
		return nil, err
	}
	return ids, nil
}
