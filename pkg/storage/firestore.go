package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/solarsight/solarsight/pkg/log"
	"github.com/solarsight/solarsight/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProvider implements the Database interface using Google
// Cloud Firestore. Accounts live in the "accounts" collection and each
// acquisition run is stored as a snapshot in a per-account
// sub-collection.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID verification could be here, but we allow empty if inferred.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) getCollection(accountID, name string) (*firestore.CollectionRef, error) {
	if accountID == "" {
		return nil, fmt.Errorf("accountID cannot be empty")
	}
	return f.client.Collection("accounts").Doc(accountID).Collection(name), nil
}

// GetAccount retrieves an account from the "accounts" collection.
func (f *FirestoreProvider) GetAccount(ctx context.Context, accountID string) (types.Account, error) {
	doc, err := f.client.Collection("accounts").Doc(accountID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
		}
		return types.Account{}, fmt.Errorf("failed to get account %s: %w", accountID, err)
	}

	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "account doc missing json", slog.String("accountID", accountID))
		return types.Account{}, fmt.Errorf("account %s missing json: %w", accountID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "account doc json not string", slog.String("accountID", accountID))
		return types.Account{}, fmt.Errorf("account %s json not string", accountID)
	}

	var account types.Account
	if err := json.Unmarshal([]byte(jsonStr), &account); err != nil {
		return types.Account{}, fmt.Errorf("failed to unmarshal account %s: %w", accountID, err)
	}
	return account, nil
}

// ListAccounts retrieves all accounts from the "accounts" collection.
func (f *FirestoreProvider) ListAccounts(ctx context.Context) ([]types.Account, error) {
	iter := f.client.Collection("accounts").Documents(ctx)
	defer iter.Stop()

	var accounts []types.Account
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating accounts: %w", err)
		}

		val, err := doc.DataAt("json")
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "account doc missing json", slog.String("accountID", doc.Ref.ID))
			// Skip malformed documents
			continue
		}
		jsonStr, ok := val.(string)
		if !ok {
			log.Ctx(ctx).WarnContext(ctx, "account doc json not string", slog.String("accountID", doc.Ref.ID))
			continue
		}

		var account types.Account
		if err := json.Unmarshal([]byte(jsonStr), &account); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal account", slog.String("accountID", doc.Ref.ID), slog.Any("err", err))
			// Skip malformed JSON
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// UpsertAccount creates or updates an account document.
func (f *FirestoreProvider) UpsertAccount(ctx context.Context, account types.Account) error {
	if account.ID == "" {
		return fmt.Errorf("account missing id")
	}
	accountJSON, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account %s: %w", account.ID, err)
	}
	_, err = f.client.Collection("accounts").Doc(account.ID).Set(ctx, map[string]interface{}{
		"json": string(accountJSON),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", account.ID, err)
	}
	return nil
}

// UpsertSnapshot stores an acquisition result in the "telemetry_history"
// sub-collection of the account as a JSON blob.
// The document ID is the RFC3339 timestamp for efficient range queries.
func (f *FirestoreProvider) UpsertSnapshot(ctx context.Context, accountID string, res types.AggregateResult) error {
	ts := time.Now().UTC()
	if res.LastUpdate != nil {
		if parsed, err := time.Parse(time.RFC3339, *res.LastUpdate); err == nil {
			ts = parsed.UTC()
		}
	}
	jsonBytes, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	coll, err := f.getCollection(accountID, "telemetry_history")
	if err != nil {
		return err
	}
	// Use RFC3339 as document ID for lexicographic ordering and efficient range queries
	docID := ts.Format(time.RFC3339)
	_, err = coll.Doc(docID).Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"timestamp": ts,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// GetLatestSnapshot retrieves the most recent stored acquisition result
// for an account.
func (f *FirestoreProvider) GetLatestSnapshot(ctx context.Context, accountID string) (types.AggregateResult, error) {
	coll, err := f.getCollection(accountID, "telemetry_history")
	if err != nil {
		return types.AggregateResult{}, err
	}

	// firestore automatically creates indexes for top-level fields
	iter := coll.
		OrderBy("timestamp", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return types.AggregateResult{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, accountID)
	}
	if err != nil {
		return types.AggregateResult{}, fmt.Errorf("failed to get latest snapshot doc: %w", err)
	}

	return decodeSnapshot(ctx, accountID, doc)
}

// GetSnapshotHistory retrieves stored acquisition results within the
// specified time range.
// Uses document ID range queries for efficient filtering without reading all documents.
func (f *FirestoreProvider) GetSnapshotHistory(ctx context.Context, accountID string, start, end time.Time) ([]types.AggregateResult, error) {
	startDocID := start.UTC().Format(time.RFC3339)
	endDocID := end.UTC().Format(time.RFC3339)

	coll, err := f.getCollection(accountID, "telemetry_history")
	if err != nil {
		return nil, err
	}
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDocID)).
		Where(firestore.DocumentID, "<", coll.Doc(endDocID)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var results []types.AggregateResult
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating snapshots: %w", err)
		}

		res, err := decodeSnapshot(ctx, accountID, doc)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func decodeSnapshot(ctx context.Context, accountID string, doc *firestore.DocumentSnapshot) (types.AggregateResult, error) {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "snapshot doc missing json", slog.String("docID", doc.Ref.ID), slog.String("accountID", accountID), slog.Any("err", err))
		return types.AggregateResult{}, fmt.Errorf("snapshot document %s missing 'json' field: %w", doc.Ref.ID, err)
	}

	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "snapshot doc json not string", slog.String("docID", doc.Ref.ID), slog.String("accountID", accountID))
		return types.AggregateResult{}, fmt.Errorf("snapshot document %s 'json' field is not string", doc.Ref.ID)
	}

	var res types.AggregateResult
	if err := json.Unmarshal([]byte(jsonStr), &res); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal snapshot", slog.String("docID", doc.Ref.ID), slog.String("accountID", accountID), slog.Any("err", err))
		return types.AggregateResult{}, fmt.Errorf("failed to unmarshal snapshot (id=%s): %w", doc.Ref.ID, err)
	}
	return res, nil
}
