package storage

import (
	"context"
	"fmt"

	"github.com/levenlabs/go-lflag"
)

// Configured sets up the snapshot database based on flags. Firestore is
// the only backend today; the flag exists so an alternative can be
// added without touching callers.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Database backend for accounts and telemetry snapshots (available: firestore)")

	var db struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("invalid firestore config: %v", err))
			}
			db.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore client init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage-provider: %s", *provider))
		}
	})

	return &db
}
