package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/assetledger/asset-transfer/backend/pkg/common"
	_ "github.com/lib/pq" // Postgres driver
)

const pingAttempts = 5

// Connect opens a Postgres connection and waits for the database to accept
// pings, so services started alongside the database don't race it.
func Connect(cfg common.DBConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	for i := 1; i <= pingAttempts; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		log.Printf("Waiting for DB... (%d/%d): %v", i, pingAttempts, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	log.Println("Successfully connected to database")
	return db, nil
}
