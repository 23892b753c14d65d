package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/blockclash/blockclash-backend/config"
)

var PostgreSQLDB *sql.DB

func ConnectToPostgreSQL(cfg *config.Config) error {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}
	PostgreSQLDB = db
	return nil
}
