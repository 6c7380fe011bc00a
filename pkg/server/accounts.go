package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/solarsight/solarsight/pkg/log"
	"github.com/solarsight/solarsight/pkg/types"
)

// handleListAccounts lists stored accounts with credentials redacted.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accounts, err := s.storage.ListAccounts(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list accounts", slog.Any("error", err))
		writeJSONError(w, "failed to list accounts", http.StatusInternalServerError)
		return
	}

	out := make([]types.Account, 0, len(accounts))
	for _, a := range accounts {
		a.Credentials = types.Credentials{}
		out = append(out, a)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// handleUpsertAccount creates or replaces an account, including its
// vendor credentials.
func (s *Server) handleUpsertAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := r.PathValue("accountID")

	var account types.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		writeJSONError(w, "invalid account body: "+err.Error(), http.StatusBadRequest)
		return
	}
	// the path wins over whatever the body claims
	account.ID = accountID
	if account.Vendor == "" {
		account.Vendor = types.VendorGrowatt
	}
	if account.Vendor != types.VendorGrowatt {
		writeJSONError(w, "unsupported vendor: "+account.Vendor, http.StatusBadRequest)
		return
	}

	if err := s.storage.UpsertAccount(ctx, account); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to upsert account", slog.String("accountID", accountID), slog.Any("error", err))
		writeJSONError(w, "failed to upsert account", http.StatusInternalServerError)
		return
	}

	account.Credentials = types.Credentials{}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(account); err != nil {
		panic(http.ErrAbortHandler)
	}
}
