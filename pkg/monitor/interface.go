package monitor

import (
	"context"

	"github.com/solarsight/solarsight/pkg/types"
)

// Platform defines the interface for acquiring telemetry from a vendor
// monitoring platform (like the Growatt cloud).
type Platform interface {
	// Acquire runs one acquisition pass against the vendor platform
	// using the given credentials. It never returns an error: fatal
	// conditions (missing credentials, rejected login, unreachable
	// vendor) are reported through the result's Error field with all
	// quantities zeroed, and everything below that degrades the
	// affected plant or device to a zero contribution instead of
	// failing the run.
	Acquire(ctx context.Context, creds types.Credentials) types.AggregateResult
}
