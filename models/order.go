package models

import (
	"context"
	"errors"
	"time"

	"github.com/pacefoods/crm_backend/config"
	"github.com/pacefoods/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order carries the QuickBooks posting state alongside the local lifecycle.
// Invariant: QboDocId and QboDocType are set and cleared together.
type Order struct {
	ID              int             `gorm:"primary_key" json:"id"`
	OrderNo         string          `gorm:"size:50;uniqueIndex;not null" json:"order_no"`
	SellerId        int             `gorm:"index;not null" json:"seller_id"`
	BuyerId         int             `gorm:"index;not null" json:"buyer_id"`
	Status          string          `gorm:"size:20;not null;default:draft" json:"status"`
	ContractNo      string          `gorm:"size:100" json:"contract_no"`
	QboDocType      *string         `gorm:"size:20" json:"qbo_doc_type"`
	QboDocId        *string         `gorm:"size:50;index" json:"qbo_doc_id"`
	QboDocNumber    *string         `gorm:"size:50" json:"qbo_doc_number"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2)" json:"subtotal"`
	CommissionTotal decimal.Decimal `gorm:"type:decimal(12,2)" json:"commission_total"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_amount"`
	IsPickup        bool            `gorm:"default:false" json:"is_pickup"`
	Terms           string          `gorm:"type:text" json:"terms"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedBy       string          `gorm:"size:100;not null" json:"created_by"`
	Lines           []OrderLine     `gorm:"foreignKey:OrderId" json:"lines"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type OrderLine struct {
	ID            int              `gorm:"primary_key" json:"id"`
	OrderId       int              `gorm:"index;not null" json:"order_id"`
	LineNo        int              `gorm:"not null" json:"line_no"`
	ProductId     int              `gorm:"index;not null" json:"product_id"`
	Product       *Product         `gorm:"foreignKey:ProductId" json:"product,omitempty"`
	SizeGrade     string           `gorm:"size:100" json:"size_grade"`
	PackageType   string           `gorm:"size:50" json:"package_type"`
	Quantity      decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"quantity"`
	Uom           string           `gorm:"size:50;not null" json:"uom"`
	UnitPrice     decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	CommissionPct *decimal.Decimal `gorm:"type:decimal(5,2)" json:"commission_pct"`
	CommissionAmt *decimal.Decimal `gorm:"type:decimal(10,2)" json:"commission_amt"`
	LineTotal     decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"line_total"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	var order Order
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetOrderWithLines loads the order and its lines with products, ordered by line number.
func GetOrderWithLines(ctx context.Context, id int) (*Order, error) {
	var order Order
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no asc") }).
		Preload("Lines.Product").
		Where("id = ?", id).Take(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetOrderByQboDocId returns nil (not an error) when no order holds the document id.
func GetOrderByQboDocId(ctx context.Context, qboDocId string) (*Order, error) {
	var order Order
	db := config.GetDB()
	err := db.WithContext(ctx).Where("qbo_doc_id = ?", qboDocId).Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// RecalculateTotals recomputes the order's money fields from its lines.
// Totals stored on the order are never trusted by the QuickBooks push path.
func (o *Order) RecalculateTotals() {
	subtotal := decimal.Zero
	commission := decimal.Zero
	for _, line := range o.Lines {
		subtotal = subtotal.Add(line.LineTotal)
		if line.CommissionAmt != nil {
			commission = commission.Add(*line.CommissionAmt)
		}
	}
	o.Subtotal = subtotal
	o.CommissionTotal = commission
	o.TotalAmount = subtotal
}
