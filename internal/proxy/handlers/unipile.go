package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/oauth-connect/internal/accounts"
	"github.com/pysugar/oauth-connect/internal/config"
	"github.com/pysugar/oauth-connect/internal/logging"
	"github.com/pysugar/oauth-connect/internal/metrics"
	"github.com/pysugar/oauth-connect/internal/providers"
	"github.com/pysugar/oauth-connect/internal/upstream"
	"github.com/rs/zerolog"
)

// Unipile is the part of the upstream client the handlers call.
type Unipile interface {
	CreateAuthLink(ctx context.Context, provider providers.UpstreamID, notifyURL, successURL, failureURL string) (string, error)
	FetchAccount(ctx context.Context, accountID string) (upstream.Account, error)
	DeleteAccount(ctx context.Context, accountID string) error
}

// StatusSource answers account-status queries.
type StatusSource interface {
	Status(ctx context.Context) (accounts.Status, error)
}

// AuthLinkRequest is the body of POST /api/unipile/auth-link.
type AuthLinkRequest struct {
	Provider string `json:"provider" validate:"required,oneof=gmail outlook instagram linkedin"`
}

// AuthLinkResponse carries the hosted auth URL.
type AuthLinkResponse struct {
	AuthURL string `json:"auth_url"`
}

// WebhookPayload is the notification Unipile posts after a hosted auth.
type WebhookPayload struct {
	AccountID string `json:"account_id"`
	Provider  string `json:"provider"`
	Status    string `json:"status"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

// WebhookResponse acknowledges every notification.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// AccountStatusResponse wraps the per-provider status.
type AccountStatusResponse struct {
	Accounts accounts.Status `json:"accounts"`
}

// DisconnectResponse is returned once the local entry is gone.
type DisconnectResponse struct {
	Success bool `json:"success"`
}

// AuthLinkHandler handles POST /api/unipile/auth-link
func AuthLinkHandler(client Unipile, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := zerolog.Ctx(r.Context())

		var req AuthLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Debug().Err(err).Msg("Malformed auth-link body")
			respondError(w, r, http.StatusBadRequest, providers.ErrInvalidProvider.Error())
			return
		}
		if err := validate.Struct(req); err != nil {
			respondError(w, r, http.StatusBadRequest, providers.ErrInvalidProvider.Error())
			return
		}
		upstreamID, err := providers.ToUpstream(req.Provider)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		authURL, err := client.CreateAuthLink(r.Context(), upstreamID,
			cfg.WebhookURL(), cfg.SuccessURL(req.Provider), cfg.FailureURL(req.Provider))
		if err != nil {
			log.Error().Err(err).Str("provider", req.Provider).Msg("Failed to create hosted auth link")
			respondError(w, r, http.StatusInternalServerError, authLinkErrorMessage(err))
			return
		}

		log.Info().Str("provider", req.Provider).Msg("Hosted auth link created")
		respondJSON(w, r, http.StatusOK, AuthLinkResponse{AuthURL: authURL})
	}
}

func authLinkErrorMessage(err error) string {
	var linkErr *upstream.AuthLinkError
	if errors.As(err, &linkErr) {
		return linkErr.Message
	}
	if errors.Is(err, upstream.ErrMissingAPIKey) {
		return upstream.ErrMissingAPIKey.Error()
	}
	return err.Error()
}

// WebhookHandler handles POST /api/unipile/webhook. Unipile retries on
// non-2xx, so every delivery is acknowledged and problems are only logged.
func WebhookHandler(client Unipile, store accounts.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := processWebhook(r, client, store)
		metrics.WebhooksTotal.WithLabelValues(result).Inc()
		respondJSON(w, r, http.StatusOK, WebhookResponse{Received: true})
	}
}

func processWebhook(r *http.Request, client Unipile, store accounts.Store) string {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)

	var payload WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Warn().Err(err).Msg("Ignoring malformed webhook body")
		return metrics.WebhookIgnored
	}
	payload.AccountID = strings.TrimSpace(payload.AccountID)
	payload.Provider = strings.TrimSpace(payload.Provider)

	log.Info().
		Str("account_id", payload.AccountID).
		Str("provider", payload.Provider).
		Str("status", payload.Status).
		Str("email", logging.MaskEmail(payload.Email)).
		Msg("Webhook received")

	if payload.AccountID == "" || payload.Provider == "" {
		return metrics.WebhookIgnored
	}
	upstreamID, ok := providers.Normalize(payload.Provider)
	if !ok {
		log.Warn().Str("provider", payload.Provider).Msg("Ignoring webhook for unsupported provider")
		return metrics.WebhookIgnored
	}
	key, _ := providers.ToCanonical(string(upstreamID))

	result := metrics.WebhookStored
	email, username := payload.Email, payload.Username
	details, err := client.FetchAccount(ctx, payload.AccountID)
	if err != nil {
		log.Warn().Err(err).Str("account_id", payload.AccountID).Msg("Could not fetch account details, using webhook fields")
	} else {
		if v := accounts.ExtractEmail(details.Fields); v != "" {
			email = v
		}
		if v := accounts.ExtractUsername(details.Fields); v != "" {
			username = v
		}
		result = metrics.WebhookEnriched
	}

	status := payload.Status
	if status == "" {
		status = accounts.StatusConnected
	}
	record := accounts.Record{
		Provider:  upstreamID,
		AccountID: payload.AccountID,
		Status:    status,
		Email:     email,
		Username:  username,
	}
	if err := store.Upsert(ctx, key, record); err != nil {
		log.Error().Err(err).Str("provider", string(key)).Msg("Failed to cache account from webhook")
		return metrics.WebhookFailed
	}

	log.Info().
		Str("provider", string(key)).
		Str("account_id", record.AccountID).
		Str("email", logging.MaskEmail(email)).
		Msg("Account stored")
	return result
}

// AccountStatusHandler handles GET /api/unipile/account-status
func AccountStatusHandler(source StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := source.Status(r.Context())
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to compute account status")
			respondError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, r, http.StatusOK, AccountStatusResponse{Accounts: status})
	}
}

// DisconnectHandler handles DELETE /api/unipile/disconnect/{provider}. The
// local entry is removed even when the upstream delete fails.
func DisconnectHandler(client Unipile, store accounts.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := zerolog.Ctx(ctx)

		raw := chi.URLParam(r, "provider")
		if !providers.IsValidKey(raw) {
			respondError(w, r, http.StatusBadRequest, providers.ErrInvalidProvider.Error())
			return
		}
		key := providers.Key(raw)

		result := metrics.DisconnectLocalOnly
		record, ok, err := store.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("provider", raw).Msg("Could not read cached account")
		}
		if ok && record.AccountID != "" {
			if err := client.DeleteAccount(ctx, record.AccountID); err != nil {
				log.Warn().Err(err).Str("account_id", record.AccountID).Msg("Upstream delete failed, removing local entry anyway")
				result = metrics.DisconnectUpstreamFailed
			} else {
				result = metrics.DisconnectDeleted
			}
		}

		if _, err := store.Remove(ctx, key); err != nil {
			log.Error().Err(err).Str("provider", raw).Msg("Failed to remove cached account")
			respondError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		metrics.Disconnects.WithLabelValues(result).Inc()
		log.Info().Str("provider", raw).Str("result", result).Msg("Account disconnected")
		respondJSON(w, r, http.StatusOK, DisconnectResponse{Success: true})
	}
}

// NotFoundHandler sends unknown API paths a JSON 404 and any other GET back
// to the dashboard.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
			respondError(w, r, http.StatusNotFound, errMsgNotFound)
			return
		}
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		respondError(w, r, http.StatusNotFound, errMsgNotFound)
	}
}
