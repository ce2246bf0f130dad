package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pacefoods/crm_backend/config"
	"github.com/pacefoods/crm_backend/utils"
)

// OrderActivity is the append-only audit trail of order-affecting actions.
// Rows are never updated or deleted.
type OrderActivity struct {
	ID           int       `gorm:"primary_key" json:"id"`
	OrderId      int       `gorm:"index;not null" json:"order_id"`
	ActivityType string    `gorm:"size:50;not null" json:"activity_type"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	UserId       int       `gorm:"index" json:"user_id"`
	UserName     string    `gorm:"size:100;not null" json:"user_name"`
	Before       string    `gorm:"type:text" json:"before"`
	After        string    `gorm:"type:text" json:"after"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewOrderActivity struct {
	OrderId      int
	ActivityType string
	Description  string
	// UserName overrides the context actor; used by the webhook path.
	UserName string
	Before   interface{}
	After    interface{}
}

// RecordOrderActivity appends one activity row. The actor comes from the
// request context unless input.UserName is set.
func RecordOrderActivity(ctx context.Context, input NewOrderActivity) error {
	activity := OrderActivity{
		OrderId:      input.OrderId,
		ActivityType: input.ActivityType,
		Description:  input.Description,
		UserName:     input.UserName,
	}

	if activity.UserName == "" {
		if name, ok := utils.GetUserNameFromContext(ctx); ok {
			activity.UserName = name
		}
		if id, ok := utils.GetUserIdFromContext(ctx); ok {
			activity.UserId = id
		}
	}
	if activity.UserName == "" {
		activity.UserName = "system"
	}

	if input.Before != nil {
		b, _ := json.Marshal(input.Before)
		activity.Before = string(b)
	}
	if input.After != nil {
		a, _ := json.Marshal(input.After)
		activity.After = string(a)
	}

	return config.GetDB().WithContext(ctx).Create(&activity).Error
}

func GetOrderActivities(ctx context.Context, orderId int, limit int) ([]OrderActivity, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var activities []OrderActivity
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("order_id = ?", orderId).
		Order("id desc").
		Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

// CountOrderActivities is used by reconciliation checks and tests.
func CountOrderActivities(ctx context.Context, orderId int, activityType string) (int64, error) {
	var count int64
	db := config.GetDB()
	err := db.WithContext(ctx).Model(&OrderActivity{}).
		Where("order_id = ? AND activity_type = ?", orderId, activityType).
		Count(&count).Error
	return count, err
}
