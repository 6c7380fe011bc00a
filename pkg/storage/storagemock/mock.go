package storagemock

import (
	"context"
	"time"

	"github.com/solarsight/solarsight/pkg/storage"
	"github.com/solarsight/solarsight/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetAccount(ctx context.Context, accountID string) (types.Account, error) {
	args := m.Called(ctx, accountID)
	// return empty if not specified, or checks args
	if len(args) > 0 {
		return args.Get(0).(types.Account), args.Error(1)
	}
	return types.Account{}, nil
}

func (m *MockDatabase) ListAccounts(ctx context.Context) ([]types.Account, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).([]types.Account), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) UpsertAccount(ctx context.Context, account types.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockDatabase) UpsertSnapshot(ctx context.Context, accountID string, res types.AggregateResult) error {
	args := m.Called(ctx, accountID, res)
	return args.Error(0)
}

func (m *MockDatabase) GetLatestSnapshot(ctx context.Context, accountID string) (types.AggregateResult, error) {
	args := m.Called(ctx, accountID)
	if len(args) > 0 {
		return args.Get(0).(types.AggregateResult), args.Error(1)
	}
	return types.AggregateResult{}, nil
}

func (m *MockDatabase) GetSnapshotHistory(ctx context.Context, accountID string, start, end time.Time) ([]types.AggregateResult, error) {
	args := m.Called(ctx, accountID, start, end)
	if len(args) > 0 {
		return args.Get(0).([]types.AggregateResult), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
