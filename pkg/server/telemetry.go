package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/solarsight/solarsight/pkg/log"
	"github.com/solarsight/solarsight/pkg/storage"
	"github.com/solarsight/solarsight/pkg/types"
)

// handleAcquireTelemetry runs a live acquisition against the account's
// vendor platform, stores the outcome as a snapshot and returns it.
// Acquisitions never fail; a fully degraded run is still a 200 with the
// error in the body, matching what the dashboard expects.
func (s *Server) handleAcquireTelemetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := r.PathValue("accountID")

	account, err := s.storage.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			writeJSONError(w, "account not found", http.StatusNotFound)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to get account", slog.String("accountID", accountID), slog.Any("error", err))
		writeJSONError(w, "failed to get account", http.StatusInternalServerError)
		return
	}

	ctx = log.WithAttrs(ctx, slog.String("accountID", accountID))
	res := s.monitors.Account(accountID).Acquire(ctx, account.Credentials)

	// a failed write only costs us history, the caller still gets the result
	if err := s.storage.UpsertSnapshot(ctx, accountID, res); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to store snapshot", slog.String("accountID", accountID), slog.Any("error", err))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// handleLatestTelemetry returns the last stored snapshot without
// touching the vendor.
func (s *Server) handleLatestTelemetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := r.PathValue("accountID")

	res, err := s.storage.GetLatestSnapshot(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrSnapshotNotFound) {
			writeJSONError(w, "no snapshots for account", http.StatusNotFound)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest snapshot", slog.String("accountID", accountID), slog.Any("error", err))
		writeJSONError(w, "failed to get latest snapshot", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=60")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleTelemetryHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := r.PathValue("accountID")
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	results, err := s.storage.GetSnapshotHistory(ctx, accountID, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get snapshot history", slog.String("accountID", accountID), slog.Any("error", err))
		writeJSONError(w, "failed to get snapshot history", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []types.AggregateResult{}
	}

	w.Header().Set("Content-Type", "application/json")

	// ranges that ended before today are immutable and can cache longer
	today := time.Now().Truncate(24 * time.Hour)
	if end.Before(today) {
		w.Header().Set("Cache-Control", "private, max-age=86400")
	} else {
		w.Header().Set("Cache-Control", "private, max-age=60")
	}

	if err := json.NewEncoder(w).Encode(results); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		// Default to last 24 hours if not specified
		end := time.Now()
		start := end.Add(-24 * time.Hour)
		return start, end, nil
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}

	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start time must be before end time")
	}

	if end.Sub(start) > 7*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("time range cannot exceed 7 days")
	}

	return start, end, nil
}
