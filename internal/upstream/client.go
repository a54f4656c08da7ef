// Package upstream is a thin client for the Unipile account API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pysugar/oauth-connect/internal/metrics"
	"github.com/pysugar/oauth-connect/internal/providers"
	"github.com/pysugar/oauth-connect/internal/util"
	"github.com/rs/zerolog"
)

const (
	apiPrefix = "/api/v1"

	// APIKeyHeader carries the Unipile secret on every request.
	APIKeyHeader = "X-API-KEY"

	// AuthLinkTTL is how long a hosted auth link stays valid.
	AuthLinkTTL = 24 * time.Hour

	expiresOnLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Operation names used in errors and metrics.
const (
	OpCreateAuthLink = "create_auth_link"
	OpFetchAccount   = "fetch_account"
	OpListAccounts   = "list_accounts"
	OpDeleteAccount  = "delete_account"
)

// listKeys are the envelope fields Unipile has been seen to nest account
// listings under, in probe order.
var listKeys = []string{"items", "accounts", "data"}

// Client handles communication with the Unipile API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a client. A zero timeout leaves requests bounded only by
// their context.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return NewClientWithHTTP(baseURL, apiKey, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP creates a client on top of an existing *http.Client.
func NewClientWithHTTP(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
		now:        time.Now,
	}
}

// BaseURL is the configured Unipile DSN without the API prefix.
func (c *Client) BaseURL() string { return c.baseURL }

type hostedAuthRequest struct {
	Type               string   `json:"type"`
	Providers          []string `json:"providers"`
	NotifyURL          string   `json:"notify_url,omitempty"`
	SuccessRedirectURL string   `json:"success_redirect_url,omitempty"`
	FailureRedirectURL string   `json:"failure_redirect_url,omitempty"`
	ExpiresOn          string   `json:"expiresOn"`
	APIURL             string   `json:"api_url"`
}

type hostedAuthResponse struct {
	URL     string `json:"url"`
	AuthURL string `json:"auth_url"`
}

// CreateAuthLink asks Unipile for a hosted authentication link for one
// provider. Unipile calls notifyURL once the account is connected and sends
// the browser to successURL or failureURL.
func (c *Client) CreateAuthLink(ctx context.Context, provider providers.UpstreamID, notifyURL, successURL, failureURL string) (string, error) {
	payload := hostedAuthRequest{
		Type:               "create",
		Providers:          []string{string(provider)},
		NotifyURL:          notifyURL,
		SuccessRedirectURL: successURL,
		FailureRedirectURL: failureURL,
		ExpiresOn:          c.now().Add(AuthLinkTTL).UTC().Format(expiresOnLayout),
		APIURL:             c.baseURL,
	}

	zerolog.Ctx(ctx).Debug().
		Str("provider", string(provider)).
		Str("notify_url", notifyURL).
		Str("expires_on", payload.ExpiresOn).
		Msg("Requesting hosted auth link")

	status, body, err := c.do(ctx, OpCreateAuthLink, http.MethodPost, "/hosted/accounts/link", payload)
	if err != nil {
		return "", &AuthLinkError{Message: err.Error(), Err: err}
	}
	if !isSuccess(status) {
		return "", newAuthLinkError(status, body)
	}

	var resp hostedAuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &AuthLinkError{
			StatusCode: status,
			Message:    fmt.Sprintf("Unipile error (%d): malformed auth link response: %v", status, err),
			Err:        err,
		}
	}
	authURL := resp.URL
	if authURL == "" {
		authURL = resp.AuthURL
	}
	if authURL == "" {
		return "", &AuthLinkError{
			StatusCode: status,
			Message:    fmt.Sprintf("Unipile error (%d): auth URL not found in response", status),
		}
	}
	return authURL, nil
}

// FetchAccount returns the details of a single account.
func (c *Client) FetchAccount(ctx context.Context, accountID string) (Account, error) {
	status, body, err := c.do(ctx, OpFetchAccount, http.MethodGet, "/accounts/"+url.PathEscape(accountID), nil)
	if err != nil {
		return Account{}, err
	}
	if !isSuccess(status) {
		return Account{}, &Error{Op: OpFetchAccount, StatusCode: status, Message: errorMessage(body)}
	}

	var account Account
	if err := json.Unmarshal(body, &account); err != nil {
		return Account{}, &Error{Op: OpFetchAccount, StatusCode: status, Message: "malformed account: " + err.Error(), Err: err}
	}
	return account, nil
}

// ListAccounts returns every account known to Unipile. The listing may be a
// bare array or nested under one of listKeys; an unrecognised shape yields
// an empty slice.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	status, body, err := c.do(ctx, OpListAccounts, http.MethodGet, "/accounts", nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &Error{Op: OpListAccounts, StatusCode: status, Message: errorMessage(body)}
	}

	accounts, err := decodeListing(body)
	if err != nil {
		return nil, &Error{Op: OpListAccounts, StatusCode: status, Message: "malformed listing: " + err.Error(), Err: err}
	}
	zerolog.Ctx(ctx).Debug().Int("count", len(accounts)).Msg("Listed upstream accounts")
	return accounts, nil
}

func decodeListing(body []byte) ([]Account, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return []Account{}, nil
	}
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if accounts, ok := decodeArray(raw); ok {
		return accounts, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return []Account{}, nil
	}
	for _, key := range listKeys {
		if accounts, ok := decodeArray(envelope[key]); ok {
			return accounts, nil
		}
	}
	return []Account{}, nil
}

// decodeArray reports false unless raw is a JSON array. Elements that are
// not objects, or that fail to decode, are skipped one by one.
func decodeArray(raw json.RawMessage) ([]Account, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, false
	}
	accounts := make([]Account, 0, len(elems))
	for _, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			continue
		}
		var account Account
		if err := json.Unmarshal(elem, &account); err != nil {
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts, true
}

// DeleteAccount removes an account from Unipile. An account that is already
// gone (404) counts as deleted.
func (c *Client) DeleteAccount(ctx context.Context, accountID string) error {
	status, body, err := c.do(ctx, OpDeleteAccount, http.MethodDelete, "/accounts/"+url.PathEscape(accountID), nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		zerolog.Ctx(ctx).Warn().Str("account_id", accountID).Msg("Account not found upstream, treating as deleted")
		return nil
	}
	if !isSuccess(status) {
		return &Error{Op: OpDeleteAccount, StatusCode: status, Message: errorMessage(body)}
	}
	return nil
}

// do sends one request and returns the status and full body. Only transport
// failures are returned as errors; status handling is left to the caller.
func (c *Client) do(ctx context.Context, op, method, path string, payload any) (int, []byte, error) {
	if c.apiKey == "" {
		return 0, nil, &Error{Op: op, Message: ErrMissingAPIKey.Error(), Err: ErrMissingAPIKey}
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, &Error{Op: op, Message: "encode request: " + err.Error(), Err: err}
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.baseURL + apiPrefix + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, &Error{Op: op, Message: "build request: " + err.Error(), Err: err}
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	defer func() {
		metrics.UpstreamRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(op, metrics.OutcomeTransport).Inc()
		return 0, nil, &Error{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(op, metrics.OutcomeTransport).Inc()
		return resp.StatusCode, nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: "read response: " + err.Error(), Err: err}
	}

	outcome := metrics.OutcomeSuccess
	if !isSuccess(resp.StatusCode) {
		outcome = metrics.OutcomeHTTPError
		zerolog.Ctx(ctx).Debug().
			Str("operation", op).
			Int("status", resp.StatusCode).
			Str("body", util.TruncateBytes(body)).
			Msg("Unipile returned an error status")
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(op, outcome).Inc()
	return resp.StatusCode, body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
