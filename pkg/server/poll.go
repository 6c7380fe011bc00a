package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/solarsight/solarsight/pkg/log"
	"golang.org/x/sync/errgroup"
)

const pollWorkers = 4

// Poll periodically acquires telemetry for every stored account and
// stores the results. It blocks until the context is canceled; when
// polling is disabled it returns immediately.
func (s *Server) Poll(ctx context.Context) error {
	if s.pollInterval <= 0 {
		log.Ctx(ctx).InfoContext(ctx, "polling disabled")
		return nil
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	log.Ctx(ctx).InfoContext(ctx, "polling started", slog.Duration("interval", s.pollInterval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

// pollOnce runs one acquisition sweep. Per-account failures are logged
// and skipped so a single broken account cannot stall the sweep.
func (s *Server) pollOnce(ctx context.Context) {
	accounts, err := s.storage.ListAccounts(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "poll failed to list accounts", slog.Any("error", err))
		return
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(pollWorkers)
	for _, account := range accounts {
		grp.Go(func() error {
			actx := log.WithAttrs(grpCtx, slog.String("accountID", account.ID))
			res := s.monitors.Account(account.ID).Acquire(actx, account.Credentials)
			if err := s.storage.UpsertSnapshot(actx, account.ID, res); err != nil {
				log.Ctx(actx).WarnContext(actx, "poll failed to store snapshot", slog.Any("error", err))
			}
			return nil
		})
	}
	_ = grp.Wait()
}
