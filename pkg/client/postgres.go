package client

import (
	"context"
	"courtkeeper/pkg/logger"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func (c *Client) SetPostgres(log *logger.Logger, dsn string, maxOpenConns int, connTimeout time.Duration) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		log.Fatal("Failed to open Postgres pool", "error", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		log.Fatal("Failed to ping Postgres", "error", err)
	}

	log.Info("Successfully connected to Postgres")
	c.Postgres = db
}
