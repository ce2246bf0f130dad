package models

import (
	"context"
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/pacefoods/crm_backend/config"
)

// SyncMap records the durable local<->QuickBooks id correspondence, written
// once per entity the first time it is synced. Rows are never updated or
// deleted; a deleted local entity simply orphans its row.
type SyncMap struct {
	ID           int       `gorm:"primary_key" json:"id"`
	EntityType   string    `gorm:"size:50;uniqueIndex:idx_sync_map,priority:1;not null" json:"entity_type"`
	EntityId     int       `gorm:"uniqueIndex:idx_sync_map,priority:2;not null" json:"entity_id"`
	QboType      string    `gorm:"size:50;not null" json:"qbo_type"`
	QboId        string    `gorm:"size:50;index;not null" json:"qbo_id"`
	LastSyncedAt time.Time `gorm:"autoCreateTime" json:"last_synced_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// RecordSyncMap appends a mapping row. A duplicate insert (two pushes racing
// on the same entity) is not an error: the first row wins.
func RecordSyncMap(ctx context.Context, entityType string, entityId int, qboType, qboId string) error {
	record := SyncMap{
		EntityType: entityType,
		EntityId:   entityId,
		QboType:    qboType,
		QboId:      qboId,
	}
	err := config.GetDB().WithContext(ctx).Create(&record).Error
	if err != nil && isDuplicateKeyErr(err) {
		return nil
	}
	return err
}

func GetSyncMap(ctx context.Context, entityType string, entityId int) (*SyncMap, error) {
	var record SyncMap
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityId).
		Take(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
