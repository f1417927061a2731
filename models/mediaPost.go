package models

import (
	"context"
	"fmt"
	"time"

	"github.com/bizlens/analytics_backend/config"
	"github.com/bizlens/analytics_backend/utils"
)

// MediaPost is a social post the business published. Engagement counts are
// optional and default to zero.
type MediaPost struct {
	ID          int       `gorm:"primary_key;auto_increment" json:"id"`
	BusinessId  string    `gorm:"type:char(36);index;not null" json:"business_id"`
	PostType    string    `gorm:"size:20;not null" json:"post_type"`
	Caption     string    `gorm:"size:500" json:"caption"`
	PostedAt    time.Time `gorm:"type:date;index;not null" json:"posted_at"`
	PostTime    *string   `gorm:"size:5" json:"post_time"`
	Platform    *string   `gorm:"size:50" json:"platform"`
	Impressions int       `json:"impressions"`
	Likes       int       `json:"likes"`
	Comments    int       `json:"comments"`
	Shares      int       `json:"shares"`
}

type NewMediaPost struct {
	PostType    string  `json:"post_type" binding:"required,oneof=reel story image"`
	Caption     string  `json:"caption"`
	PostedAt    string  `json:"posted_at" binding:"required"`
	PostTime    *string `json:"post_time"`
	Platform    *string `json:"platform"`
	Impressions int     `json:"impressions"`
	Likes       int     `json:"likes"`
	Comments    int     `json:"comments"`
	Shares      int     `json:"shares"`
}

func CreateMediaPost(ctx context.Context, businessId string, input NewMediaPost) (*MediaPost, error) {
	db := config.GetDB()
	logg := config.GetLogger()

	postedAt, err := time.Parse("2006-01-02", input.PostedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid posted_at %q: expected YYYY-MM-DD", input.PostedAt)
	}

	post := &MediaPost{
		BusinessId:  businessId,
		PostType:    input.PostType,
		Caption:     input.Caption,
		PostedAt:    utils.DateOnly(postedAt),
		PostTime:    input.PostTime,
		Platform:    input.Platform,
		Impressions: input.Impressions,
		Likes:       input.Likes,
		Comments:    input.Comments,
		Shares:      input.Shares,
	}

	if err := db.WithContext(ctx).Create(post).Error; err != nil {
		config.LogError(logg, "models", "CreateMediaPost", "create post", input, err)
		return nil, err
	}
	return post, nil
}

func GetMediaPosts(ctx context.Context, businessId string, from *time.Time, to *time.Time) ([]MediaPost, error) {
	db := config.GetDB()
	logg := config.GetLogger()

	query := db.WithContext(ctx).Where("business_id = ?", businessId)
	if from != nil {
		query = query.Where("posted_at >= ?", utils.DateOnly(*from))
	}
	if to != nil {
		query = query.Where("posted_at <= ?", utils.DateOnly(*to))
	}

	var posts []MediaPost
	if err := query.Order("posted_at asc, id asc").Find(&posts).Error; err != nil {
		config.LogError(logg, "models", "GetMediaPosts", "list posts", businessId, err)
		return nil, err
	}
	return posts, nil
}
