package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizlens/analytics_backend/config"
	"github.com/bizlens/analytics_backend/utils"
)

// Business is the tenant of the system. Every product, sale and media post
// belongs to exactly one business.
type Business struct {
	ID           uuid.UUID `gorm:"type:char(36);primary_key" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	OwnerName    string    `gorm:"size:255" json:"owner_name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Category     string    `gorm:"size:100" json:"category"`
	CreatedAt    time.Time `json:"created_at"`
}

type NewBusiness struct {
	Name      string `json:"name" binding:"required"`
	OwnerName string `json:"owner_name"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Category  string `json:"category"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func redisBusinessKey(id string) string {
	return "Business:" + id
}

// RegisterBusiness creates a business account with a bcrypt password hash.
func RegisterBusiness(ctx context.Context, input NewBusiness) (*Business, error) {
	db := config.GetDB()
	logg := config.GetLogger()

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		config.LogError(logg, "models", "RegisterBusiness", "hash password", nil, err)
		return nil, err
	}

	business := &Business{
		ID:           uuid.New(),
		Name:         input.Name,
		OwnerName:    input.OwnerName,
		Email:        input.Email,
		PasswordHash: string(hash),
		Category:     input.Category,
	}

	if err := db.WithContext(ctx).Create(business).Error; err != nil {
		config.LogError(logg, "models", "RegisterBusiness", "create business", input.Email, err)
		return nil, err
	}

	business.StoreRedis()
	return business, nil
}

// AuthenticateBusiness checks credentials and returns a signed JWT.
func AuthenticateBusiness(ctx context.Context, input LoginInput) (string, *Business, error) {
	db := config.GetDB()
	logg := config.GetLogger()

	var business Business
	err := db.WithContext(ctx).Where("email = ?", input.Email).First(&business).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, utils.ErrorRecordNotFound
		}
		config.LogError(logg, "models", "AuthenticateBusiness", "find by email", input.Email, err)
		return "", nil, err
	}

	if err := utils.ComparePassword(business.PasswordHash, input.Password); err != nil {
		return "", nil, utils.ErrorRecordNotFound
	}

	token, err := utils.JwtGenerate(business.ID.String())
	if err != nil {
		config.LogError(logg, "models", "AuthenticateBusiness", "sign token", business.ID, err)
		return "", nil, err
	}
	return token, &business, nil
}

// GetBusinessById reads through the redis cache.
func GetBusinessById(ctx context.Context, id string) (*Business, error) {
	db := config.GetDB()
	logg := config.GetLogger()

	var business Business
	found, err := config.GetRedisObject(redisBusinessKey(id), &business)
	if err != nil {
		config.LogError(logg, "models", "GetBusinessById", "redis read", id, err)
	}
	if found {
		return &business, nil
	}

	err = db.WithContext(ctx).Where("id = ?", id).First(&business).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		config.LogError(logg, "models", "GetBusinessById", "find by id", id, err)
		return nil, err
	}

	business.StoreRedis()
	return &business, nil
}

func (b *Business) StoreRedis() {
	logg := config.GetLogger()
	if err := config.SetRedisObject(redisBusinessKey(b.ID.String()), b, time.Hour); err != nil {
		config.LogError(logg, "models", "StoreRedis", "business cache", b.ID, err)
	}
}

func (b *Business) RemoveRedis() {
	logg := config.GetLogger()
	if err := config.RemoveRedisKey(redisBusinessKey(b.ID.String())); err != nil {
		config.LogError(logg, "models", "RemoveRedis", "business cache", b.ID, err)
	}
}
