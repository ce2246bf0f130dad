package models

import (
	"context"
	"errors"
	"time"

	"github.com/pacefoods/crm_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuickbooksCredential holds the OAuth token set for a connected QuickBooks
// company (realm). Application logic keeps at most one row active; the typed
// accessors below are the only sanctioned way to read or mutate it.
type QuickbooksCredential struct {
	ID                    int       `gorm:"primary_key" json:"id"`
	RealmId               string    `gorm:"size:50;uniqueIndex;not null" json:"realm_id"`
	AccessToken           string    `gorm:"type:text;not null" json:"-"`
	RefreshToken          string    `gorm:"type:text;not null" json:"-"`
	TokenType             string    `gorm:"size:20;default:bearer" json:"token_type"`
	ExpiresAt             time.Time `gorm:"not null" json:"expires_at"`
	RefreshTokenExpiresAt time.Time `gorm:"not null" json:"refresh_token_expires_at"`
	IsActive              bool      `gorm:"index;default:true" json:"is_active"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ActiveCredential returns the most recently updated active credential, or
// nil when QuickBooks has never been connected (or was disconnected).
func ActiveCredential(ctx context.Context) (*QuickbooksCredential, error) {
	var cred QuickbooksCredential
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("updated_at desc").
		Take(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

// UpsertCredential stores a fresh token set keyed by realm, reactivating the
// row if it was previously disconnected.
func UpsertCredential(ctx context.Context, realmId, accessToken, refreshToken string, expiresAt, refreshExpiresAt time.Time) (*QuickbooksCredential, error) {
	cred := QuickbooksCredential{
		RealmId:               realmId,
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		TokenType:             "bearer",
		ExpiresAt:             expiresAt,
		RefreshTokenExpiresAt: refreshExpiresAt,
		IsActive:              true,
	}
	db := config.GetDB()
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "realm_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "expires_at",
			"refresh_token_expires_at", "is_active", "updated_at",
		}),
	}).Create(&cred).Error
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// UpdateTokens persists a refreshed token pair in place.
func (c *QuickbooksCredential) UpdateTokens(ctx context.Context, accessToken, refreshToken string, expiresAt, refreshExpiresAt time.Time) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(c).Updates(map[string]interface{}{
		"access_token":             accessToken,
		"refresh_token":            refreshToken,
		"expires_at":               expiresAt,
		"refresh_token_expires_at": refreshExpiresAt,
		"updated_at":               time.Now(),
	}).Error
}

// DeactivateCredential marks the active credential inactive. The token is
// not revoked at Intuit; reconnecting upserts the same realm row.
func DeactivateCredential(ctx context.Context) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&QuickbooksCredential{}).
		Where("is_active = ?", true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()}).Error
}
