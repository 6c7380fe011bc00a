package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/solarsight/solarsight/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirestoreProvider(t *testing.T) {
	// Check if emulator is running or configured
	// We assume it is running on localhost:8087 as per task
	os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")

	// Use a test project ID
	projectID := "test-project-id"

	// Use a random database for isolation
	randDB := fmt.Sprintf("test-db-%d", time.Now().UnixNano())
	f := &FirestoreProvider{
		projectID: projectID,
		database:  randDB,
	}

	ctx := context.Background()
	require.NoError(t, f.Init(ctx))
	defer f.Close()

	t.Run("Validate", func(t *testing.T) {
		require.NoError(t, f.Validate())
	})

	t.Run("Accounts", func(t *testing.T) {
		account := types.Account{
			ID:     "test-account",
			Name:   "Test Account",
			Vendor: types.VendorGrowatt,
			Credentials: types.Credentials{
				Growatt: &types.GrowattCredentials{Username: "u", Password: "p"},
			},
		}
		require.NoError(t, f.UpsertAccount(ctx, account))

		got, err := f.GetAccount(ctx, "test-account")
		require.NoError(t, err)
		assert.Equal(t, account, got)

		accounts, err := f.ListAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		assert.Equal(t, "test-account", accounts[0].ID)
	})

	t.Run("AccountNotFound", func(t *testing.T) {
		_, err := f.GetAccount(ctx, "missing")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("EmptyAccountID", func(t *testing.T) {
		err := f.UpsertSnapshot(ctx, "", types.AggregateResult{})
		assert.ErrorContains(t, err, "accountID cannot be empty")
	})

	t.Run("Snapshots", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Hour)

		// three snapshots an hour apart
		for i := 0; i < 3; i++ {
			ts := base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339)
			res := types.AggregateResult{
				Status:       types.StatusOnline,
				CurrentPower: float64(i),
				PlantCount:   1,
				Plants:       []types.PlantSummary{{PlantID: "100"}},
				LastUpdate:   &ts,
			}
			require.NoError(t, f.UpsertSnapshot(ctx, "test-account", res))
		}

		latest, err := f.GetLatestSnapshot(ctx, "test-account")
		require.NoError(t, err)
		assert.Equal(t, 2.0, latest.CurrentPower)

		// range query excludes the end bound
		history, err := f.GetSnapshotHistory(ctx, "test-account", base, base.Add(2*time.Hour))
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, 0.0, history[0].CurrentPower)
		assert.Equal(t, 1.0, history[1].CurrentPower)
	})

	t.Run("NoSnapshots", func(t *testing.T) {
		_, err := f.GetLatestSnapshot(ctx, "snapless")
		assert.ErrorIs(t, err, ErrSnapshotNotFound)
	})

	t.Run("SnapshotUpsertIdempotent", func(t *testing.T) {
		ts := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour).Format(time.RFC3339)
		res := types.AggregateResult{Status: types.StatusOffline, LastUpdate: &ts}
		require.NoError(t, f.UpsertSnapshot(ctx, "test-account", res))
		res.Status = types.StatusOnline
		require.NoError(t, f.UpsertSnapshot(ctx, "test-account", res))

		latest, err := f.GetLatestSnapshot(ctx, "test-account")
		require.NoError(t, err)
		assert.Equal(t, types.StatusOnline, latest.Status)
	})
}
