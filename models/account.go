package models

import (
	"context"
	"errors"
	"time"

	"github.com/pacefoods/crm_backend/config"
	"github.com/pacefoods/crm_backend/utils"
	"gorm.io/gorm"
)

// Account is a trading partner (buyer or seller).
// QboCustomerId, once set, is only ever cleared by a Customer delete webhook.
type Account struct {
	ID            int        `gorm:"primary_key" json:"id"`
	Code          string     `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name          string     `gorm:"size:255;not null" json:"name" binding:"required"`
	QboCustomerId *string    `gorm:"size:50;index" json:"qbo_customer_id"`
	Active        bool       `gorm:"default:true" json:"active"`
	Addresses     []Address  `gorm:"foreignKey:AccountId" json:"addresses"`
	Contacts      []Contact  `gorm:"foreignKey:AccountId" json:"contacts"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type Address struct {
	ID         int       `gorm:"primary_key" json:"id"`
	AccountId  int       `gorm:"index;not null" json:"account_id"`
	Type       string    `gorm:"size:20;not null" json:"type"`
	Line1      string    `gorm:"size:255;not null" json:"line1"`
	Line2      string    `gorm:"size:255" json:"line2"`
	City       string    `gorm:"size:100" json:"city"`
	State      string    `gorm:"size:10" json:"state"`
	PostalCode string    `gorm:"size:20" json:"postal_code"`
	Country    string    `gorm:"size:2;default:US" json:"country"`
	IsPrimary  bool      `gorm:"default:false" json:"is_primary"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Contact struct {
	ID        int       `gorm:"primary_key" json:"id"`
	AccountId int       `gorm:"index;not null" json:"account_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:50" json:"phone"`
	IsPrimary bool      `gorm:"default:false" json:"is_primary"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetAccount(ctx context.Context, id int) (*Account, error) {
	var account Account
	db := config.GetDB()
	if err := db.WithContext(ctx).Preload("Addresses").Preload("Contacts").
		Where("id = ?", id).Take(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountByQboCustomerId returns nil (not an error) when no account holds the link.
func GetAccountByQboCustomerId(ctx context.Context, qboCustomerId string) (*Account, error) {
	var account Account
	db := config.GetDB()
	err := db.WithContext(ctx).Where("qbo_customer_id = ?", qboCustomerId).Take(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// PrimaryBillingAddress returns the primary billing address, or any billing
// address, or nil.
func (a *Account) PrimaryBillingAddress() *Address {
	var fallback *Address
	for i := range a.Addresses {
		addr := &a.Addresses[i]
		if addr.Type != AddressTypeBilling {
			continue
		}
		if addr.IsPrimary {
			return addr
		}
		if fallback == nil {
			fallback = addr
		}
	}
	return fallback
}
