package accounts

import (
	"context"
	"fmt"

	"github.com/pysugar/oauth-connect/internal/logging"
	"github.com/pysugar/oauth-connect/internal/metrics"
	"github.com/pysugar/oauth-connect/internal/providers"
	"github.com/pysugar/oauth-connect/internal/upstream"
	"github.com/rs/zerolog"
)

// AccountInfo is the per-provider view returned to the dashboard.
type AccountInfo struct {
	Connected bool   `json:"connected"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
	AccountID string `json:"accountId,omitempty"`
}

// Status always holds every supported provider key.
type Status map[providers.Key]AccountInfo

// NewStatus returns a Status with every provider disconnected.
func NewStatus() Status {
	status := make(Status, len(providers.Keys()))
	for _, key := range providers.Keys() {
		status[key] = AccountInfo{}
	}
	return status
}

// Lister fetches the live account listing.
type Lister interface {
	ListAccounts(ctx context.Context) ([]upstream.Account, error)
}

// Merge builds the status from cached entries overlaid with the upstream
// listing. It also returns the entries that should be written back to the
// cache for listed accounts carrying an id. Listed accounts whose provider
// cannot be mapped are skipped. When the listing names a provider twice the
// later account wins.
func Merge(cached []Entry, listing []upstream.Account) (Status, []Entry) {
	status := NewStatus()

	for _, entry := range cached {
		if entry.Record.Status != StatusConnected {
			continue
		}
		if _, ok := status[entry.Key]; !ok {
			continue
		}
		status[entry.Key] = AccountInfo{
			Connected: true,
			Email:     entry.Record.Email,
			Username:  entry.Record.Username,
			AccountID: entry.Record.AccountID,
		}
	}

	var refreshed []Entry
	for _, account := range listing {
		upstreamID, ok := providers.Normalize(account.ProviderType())
		if !ok {
			continue
		}
		key, ok := providers.ToCanonical(string(upstreamID))
		if !ok {
			continue
		}

		email := ExtractEmail(account.Fields)
		username := ExtractUsername(account.Fields)
		accountID := account.Identifier()

		status[key] = AccountInfo{
			Connected: true,
			Email:     email,
			Username:  username,
			AccountID: accountID,
		}

		if accountID == "" {
			continue
		}
		recordStatus := account.Status
		if recordStatus == "" {
			recordStatus = StatusConnected
		}
		refreshed = append(refreshed, Entry{Key: key, Record: Record{
			Provider:  upstreamID,
			AccountID: accountID,
			Status:    recordStatus,
			Email:     email,
			Username:  username,
		}})
	}

	return status, refreshed
}

// Reconciler answers status queries from the cache and the live listing.
type Reconciler struct {
	store  Store
	lister Lister
}

// NewReconciler creates a reconciler over store and lister.
func NewReconciler(store Store, lister Lister) *Reconciler {
	return &Reconciler{store: store, lister: lister}
}

// Status returns the connection status of every provider. A failing upstream
// listing degrades to the cached view instead of failing; only a store read
// error is returned.
func (r *Reconciler) Status(ctx context.Context) (Status, error) {
	log := zerolog.Ctx(ctx)

	cached, err := r.store.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("read account cache: %w", err)
	}

	listing, err := r.lister.ListAccounts(ctx)
	if err != nil {
		metrics.ReconcileDegradedTotal.Inc()
		log.Warn().Err(err).Msg("Could not list upstream accounts, answering from cache")
		status, _ := Merge(cached, nil)
		return status, nil
	}

	status, refreshed := Merge(cached, listing)
	for _, entry := range refreshed {
		if err := r.store.Upsert(ctx, entry.Key, entry.Record); err != nil {
			log.Warn().Err(err).Str("provider", string(entry.Key)).Msg("Could not refresh cached account")
			continue
		}
		log.Debug().
			Str("provider", string(entry.Key)).
			Str("account_id", entry.Record.AccountID).
			Str("email", logging.MaskEmail(entry.Record.Email)).
			Msg("Refreshed cached account from listing")
	}
	return status, nil
}
