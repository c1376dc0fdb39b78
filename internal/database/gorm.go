package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"rental-portal/internal/config"
	"rental-portal/internal/models"
)

type GormDB struct {
	db *gorm.DB
}

// NewGormDB opens the database selected by cfg.Type and checks connectivity.
func NewGormDB(cfg config.DatabaseConfig, log gormlogger.Interface) (*GormDB, error) {
	var (
		dialector gorm.Dialector
		err       error
	)

	switch cfg.Type {
	case "mysql":
		dialector = mysqlDialector(cfg.MySQL)
	case "postgres":
		dialector, err = postgresDialector(cfg.Postgres)
	case "sqlite":
		dialector = sqliteDialector(cfg.SQLite)
	default:
		err = fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: log,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if cfg.Type == "sqlite" {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY inside cascades.
		sqlDB.SetMaxOpenConns(1)
	}

	return &GormDB{db: db}, nil
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (gdb *GormDB) InitSchema() error {
	return Migrate(gdb.db)
}

// Migrate creates or updates every table the platform owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.LandlordProfile{},
		&models.Property{},
		&models.CompanyMembership{},
		&models.Review{},
		&models.DeletionLog{},
	)
}
