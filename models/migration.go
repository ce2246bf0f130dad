package models

import (
	"log"

	"github.com/pacefoods/crm_backend/config"
)

// MigrateTable runs AutoMigrate for every model. Call after the DB connects.
func MigrateTable() {
	db := config.GetDB()
	if db == nil {
		log.Println("migration skipped: db is nil")
		return
	}

	err := db.AutoMigrate(
		&User{},
		&Account{},
		&Address{},
		&Contact{},
		&Product{},
		&Order{},
		&OrderLine{},
		&OrderActivity{},
		&QuickbooksCredential{},
		&SyncMap{},
	)
	if err != nil {
		log.Printf("migration error: %v", err)
	}
}
