package models

import (
	"github.com/bizlens/analytics_backend/config"
)

// MigrateTable auto-migrates every entity. Controlled by SKIP_MIGRATIONS in
// main so production deploys can manage schema separately.
func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Business{},
		&Product{},
		&Sale{},
		&MediaPost{},
	)
}
