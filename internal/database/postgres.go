package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"rental-portal/internal/config"
)

// postgresDialector opens the connection pool with lib/pq and hands it to
// gorm, so gorm never loads its default pgx driver.
func postgresDialector(cfg config.PostgresConfig) (gorm.Dialector, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	return postgres.New(postgres.Config{Conn: conn}), nil
}
