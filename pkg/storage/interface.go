package storage

import (
	"context"
	"errors"
	"time"

	"github.com/solarsight/solarsight/pkg/types"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// Database defines the interface for persisting accounts and telemetry
// snapshots.
type Database interface {
	// Accounts
	GetAccount(ctx context.Context, accountID string) (types.Account, error)
	ListAccounts(ctx context.Context) ([]types.Account, error)
	UpsertAccount(ctx context.Context, account types.Account) error

	// Telemetry snapshots
	// UpsertSnapshot stores the outcome of one acquisition run.
	UpsertSnapshot(ctx context.Context, accountID string, res types.AggregateResult) error
	GetLatestSnapshot(ctx context.Context, accountID string) (types.AggregateResult, error)
	GetSnapshotHistory(ctx context.Context, accountID string, start, end time.Time) ([]types.AggregateResult, error)

	// Lifecycle
	Close() error
}
