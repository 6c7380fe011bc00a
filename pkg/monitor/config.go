package monitor

import (
	"time"

	"github.com/levenlabs/go-lflag"
)

// Configured sets up the platform Map backed by the Growatt client.
func Configured() *Map {
	baseURL := lflag.String("growatt-base-url", defaultBaseURL, "Base URL of the Growatt monitoring platform")
	runTimeout := lflag.Duration("acquire-run-timeout", 2*time.Minute, "Overall deadline for one acquisition run; runs past it return partial results")
	attemptTimeout := lflag.Duration("acquire-attempt-timeout", 10*time.Second, "Timeout for a single endpoint attempt; the vendor hangs on stale sessions")

	m := NewMap(nil)
	lflag.Do(func() {
		opts := growattOptions{
			baseURL:        *baseURL,
			runTimeout:     *runTimeout,
			attemptTimeout: *attemptTimeout,
		}
		m.newPlatform = func() Platform { return newGrowatt(opts) }
	})
	return m
}
