package mongo

import (
	"context"
	"fmt"

	apperrors "communa/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

type TransactionFunc func(ctx mongo.SessionContext) error

// TransactionManager wraps a check-then-write sequence in a Mongo
// multi-document transaction so availability checks and reservation writes
// commit or fail as one unit.
type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
	txOpts *options.TransactionOptions
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
		// Snapshot reads and majority commits: an overlap check inside
		// the transaction must not see writes that can still roll back.
		txOpts: options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority()),
	}
}

func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	body := func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	}

	if _, err := session.WithTransaction(ctx, body, m.txOpts); err != nil {
		// Domain errors carry their own HTTP mapping; only wrap
		// infrastructure failures.
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}
