package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rental-portal/internal/config"
)

func sqliteDialector(cfg config.SQLiteConfig) gorm.Dialector {
	path := cfg.Path
	if path == "" {
		path = "rental.db"
	}
	return sqlite.Open(path)
}
