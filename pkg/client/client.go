package client

import (
	"context"
	"courtkeeper/pkg/logger"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client holds the shared connections of a process. Redis may stay nil when
// the cache is unreachable; Postgres is only set for the postgres driver.
type Client struct {
	Mongo    *mongo.Client
	Redis    *redis.Client
	Postgres *sqlx.DB
}

func NewClient() *Client {
	return &Client{}
}

type MongoOptions struct {
	URI         string
	AppName     string
	ConnTimeout time.Duration
}

// SetMongo connects and pings the primary. Reservation writes run in
// transactions, so a secondary-only answer is not good enough.
func (c *Client) SetMongo(log *logger.Logger, opts MongoOptions) {
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetAppName(opts.AppName).
		SetServerSelectionTimeout(opts.ConnTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatal("Failed to ping MongoDB primary", "error", err)
	}

	log.Info("Successfully connected to MongoDB", "app_name", opts.AppName)
	c.Mongo = client
}

// GracefulShutdown closes every open connection, giving all of them one
// shared deadline.
func (c *Client) GracefulShutdown(log *logger.Logger, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error("Failed to disconnect from MongoDB", "error", err)
		}
		c.Mongo = nil
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
		c.Redis = nil
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(); err != nil {
			log.Error("Failed to close Postgres pool", "error", err)
		}
		c.Postgres = nil
	}
	log.Info("Connections closed")
}
