package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pacefoods/crm_backend/config"
	"github.com/pacefoods/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a tradable commodity (e.g. "Almonds - Nonpareil - Supreme").
// QboItemId, once set, is only ever cleared by an Item delete webhook.
type Product struct {
	ID              int              `gorm:"primary_key" json:"id"`
	Code            string           `gorm:"size:50;index" json:"code"`
	Name            string           `gorm:"size:255;not null" json:"name" binding:"required"`
	Variety         string           `gorm:"size:255" json:"variety"`
	Grade           string           `gorm:"size:100" json:"grade"`
	Category        string           `gorm:"size:100" json:"category"`
	DefaultUnitSize *decimal.Decimal `gorm:"type:decimal(10,2)" json:"default_unit_size"`
	Uom             string           `gorm:"size:50" json:"uom"`
	QboItemId       *string          `gorm:"size:50;index" json:"qbo_item_id"`
	Active          bool             `gorm:"default:true" json:"active"`
	ArchivedAt      *time.Time       `json:"archived_at"`
	ArchivedBy      string           `gorm:"size:100" json:"archived_by"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// DisplayName composes "name - variety - grade", blank parts omitted.
// This is the name the product is synced under in QuickBooks.
func (p *Product) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{p.Name, p.Variety, p.Grade} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " - ")
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	var product Product
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetProductByQboItemId returns nil (not an error) when no product holds the link.
func GetProductByQboItemId(ctx context.Context, qboItemId string) (*Product, error) {
	var product Product
	db := config.GetDB()
	err := db.WithContext(ctx).Where("qbo_item_id = ?", qboItemId).Take(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}
