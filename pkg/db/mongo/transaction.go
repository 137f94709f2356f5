package mongo

import (
	"context"
	"courtkeeper/pkg/logger"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// TransactionFunc may run more than once: WithTransaction retries the whole
// callback on TransientTransactionError, so it must not keep state across
// attempts.
type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

// mongoTransactionManager runs callbacks under snapshot reads and majority
// writes. The caller's deadline bounds the driver's retry loop.
type mongoTransactionManager struct {
	client *mongo.Client
	opts   *options.TransactionOptions
	log    *logger.Logger
}

func NewTransactionManager(client *mongo.Client, log *logger.Logger) TransactionManager {
	return &mongoTransactionManager{
		client: client,
		opts: options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority()),
		log: log.Component("mongo_tx"),
	}
}

// ExecuteTransaction returns an error produced by fn itself unwrapped, so
// callers can match domain errors directly. Driver failures are wrapped.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	attempts := 0
	var fnErr error
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		attempts++
		fnErr = fn(sessCtx)
		return nil, fnErr
	}, m.opts)

	if attempts > 1 {
		m.log.Debug("Transaction retried", "attempts", attempts, "error", err)
	}
	if err == nil {
		return nil
	}
	// WithTransaction hands back the callback's error after aborting, so a
	// failed last attempt means err is fnErr.
	if fnErr != nil {
		return fnErr
	}
	return fmt.Errorf("transaction failed: %w", err)
}
