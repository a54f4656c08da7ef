package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pysugar/oauth-connect/internal/accounts"
	"github.com/pysugar/oauth-connect/internal/config"
	"github.com/pysugar/oauth-connect/internal/providers"
	"github.com/pysugar/oauth-connect/internal/upstream"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUnipile struct {
	mock.Mock
}

func (m *MockUnipile) CreateAuthLink(ctx context.Context, provider providers.UpstreamID, notifyURL, successURL, failureURL string) (string, error) {
	args := m.Called(ctx, provider, notifyURL, successURL, failureURL)
	return args.String(0), args.Error(1)
}

func (m *MockUnipile) FetchAccount(ctx context.Context, accountID string) (upstream.Account, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(upstream.Account), args.Error(1)
}

func (m *MockUnipile) DeleteAccount(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

type stubLister struct {
	accounts []upstream.Account
	err      error
}

func (s stubLister) ListAccounts(context.Context) ([]upstream.Account, error) {
	return s.accounts, s.err
}

type testServer struct {
	handler http.Handler
	client  *MockUnipile
	store   *accounts.MemoryStore
}

func newTestServer(t *testing.T, lister accounts.Lister) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.UnipileAPIKey = "test-key"
	store := accounts.NewMemoryStore()
	client := new(MockUnipile)
	t.Cleanup(func() { client.AssertExpectations(t) })

	return &testServer{
		handler: NewRouter(Deps{
			Config:   cfg,
			Logger:   zerolog.Nop(),
			Client:   client,
			Store:    store,
			Statuses: accounts.NewReconciler(store, lister),
		}),
		client: client,
		store:  store,
	}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func accountFrom(t *testing.T, raw string) upstream.Account {
	t.Helper()
	var account upstream.Account
	require.NoError(t, json.Unmarshal([]byte(raw), &account))
	return account
}

func TestAuthLink_Success(t *testing.T) {
	s := newTestServer(t, stubLister{})
	s.client.On("CreateAuthLink", mock.Anything, providers.UpstreamGoogle,
		"http://localhost:3000/api/unipile/webhook",
		"http://localhost:3000/auth/success?provider=gmail",
		"http://localhost:3000/auth/failure?provider=gmail",
	).Return("https://account.unipile.com/abc", nil)

	rec := s.do(http.MethodPost, "/api/unipile/auth-link", `{"provider":"gmail"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://account.unipile.com/abc", decode[AuthLinkResponse](t, rec).AuthURL)
}

func TestAuthLink_InvalidProvider(t *testing.T) {
	tests := map[string]string{
		"unknown":    `{"provider":"fax"}`,
		"missing":    `{}`,
		"wrong case": `{"provider":"Gmail"}`,
		"malformed":  `{"provider":`,
		"non-string": `{"provider":42}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			s := newTestServer(t, stubLister{})
			rec := s.do(http.MethodPost, "/api/unipile/auth-link", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Provider invalide", decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestAuthLink_UpstreamFailure(t *testing.T) {
	s := newTestServer(t, stubLister{})
	s.client.On("CreateAuthLink", mock.Anything, providers.UpstreamLinkedIn, mock.Anything, mock.Anything, mock.Anything).
		Return("", &upstream.AuthLinkError{StatusCode: 401, Message: "Unipile error 401 - invalid or missing API key"})

	rec := s.do(http.MethodPost, "/api/unipile/auth-link", `{"provider":"linkedin"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "401")
}

func TestWebhook_ThenStatusShowsAccount(t *testing.T) {
	s := newTestServer(t, stubLister{})
	s.client.On("FetchAccount", mock.Anything, "a1").Return(upstream.Account{}, errors.New("unreachable"))

	rec := s.do(http.MethodPost, "/api/unipile/webhook",
		`{"account_id":"a1","provider":"GOOGLE_OAUTH","status":"connected","email":"x@y.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[WebhookResponse](t, rec).Received)

	rec = s.do(http.MethodGet, "/api/unipile/account-status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[AccountStatusResponse](t, rec).Accounts
	assert.Len(t, status, 4)
	assert.Equal(t, accounts.AccountInfo{Connected: true, Email: "x@y.com", AccountID: "a1"}, status[providers.Gmail])
	assert.False(t, status[providers.Outlook].Connected)
}

func TestWebhook_EnrichesFromAccountDetails(t *testing.T) {
	s := newTestServer(t, stubLister{})
	s.client.On("FetchAccount", mock.Anything, "m1").Return(accountFrom(t,
		`{"id":"m1","type":"MICROSOFT","connection_params":{"mail":{"id":"me@outlook.com","username":"Me"}}}`), nil)

	rec := s.do(http.MethodPost, "/api/unipile/webhook",
		`{"account_id":"m1","provider":"MICROSOFT","email":"webhook@example.com","username":"hook"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	record, ok, err := s.store.Get(context.Background(), providers.Outlook)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, providers.UpstreamMicrosoft, record.Provider)
	assert.Equal(t, "me@outlook.com", record.Email)
	assert.Equal(t, "Me", record.Username)
	assert.Equal(t, accounts.StatusConnected, record.Status)
}

func TestWebhook_DetailsWithoutIdentityKeepWebhookFields(t *testing.T) {
	s := newTestServer(t, stubLister{})
	s.client.On("FetchAccount", mock.Anything, "i1").Return(accountFrom(t, `{"id":"i1","type":"INSTAGRAM"}`), nil)

	s.do(http.MethodPost, "/api/unipile/webhook",
		`{"account_id":"i1","provider":"INSTAGRAM","status":"OK","username":"insta"}`)

	record, ok, err := s.store.Get(context.Background(), providers.Instagram)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "insta", record.Username)
	assert.Equal(t, "OK", record.Status)
}

func TestWebhook_IgnoredPayloadsStillAcknowledged(t *testing.T) {
	tests := map[string]string{
		"malformed":        `{"account_id":`,
		"missing account":  `{"provider":"GOOGLE"}`,
		"missing provider": `{"account_id":"a1"}`,
		"unsupported":      `{"account_id":"w1","provider":"WHATSAPP"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			s := newTestServer(t, stubLister{})
			rec := s.do(http.MethodPost, "/api/unipile/webhook", body)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.True(t, decode[WebhookResponse](t, rec).Received)
			entries, err := s.store.Entries(context.Background())
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestAccountStatus_ListingFailureStillOK(t *testing.T) {
	s := newTestServer(t, stubLister{err: errors.New("network down")})
	require.NoError(t, s.store.Upsert(context.Background(), providers.LinkedIn, accounts.Record{
		Provider: providers.UpstreamLinkedIn, AccountID: "l1", Status: accounts.StatusConnected, Username: "pro",
	}))

	rec := s.do(http.MethodGet, "/api/unipile/account-status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[AccountStatusResponse](t, rec).Accounts
	assert.Len(t, status, 4)
	assert.Equal(t, accounts.AccountInfo{Connected: true, Username: "pro", AccountID: "l1"}, status[providers.LinkedIn])
}

func TestAccountStatus_JSONShape(t *testing.T) {
	s := newTestServer(t, stubLister{})
	rec := s.do(http.MethodGet, "/api/unipile/account-status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accounts":{
		"gmail":{"connected":false},
		"outlook":{"connected":false},
		"instagram":{"connected":false},
		"linkedin":{"connected":false}
	}}`, rec.Body.String())
}

func TestDisconnect_TwiceSucceeds(t *testing.T) {
	s := newTestServer(t, stubLister{})
	require.NoError(t, s.store.Upsert(context.Background(), providers.Gmail, accounts.Record{
		Provider: providers.UpstreamGoogle, AccountID: "a1", Status: accounts.StatusConnected,
	}))
	s.client.On("DeleteAccount", mock.Anything, "a1").Return(nil).Once()

	for i := 0; i < 2; i++ {
		rec := s.do(http.MethodDelete, "/api/unipile/disconnect/gmail", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[DisconnectResponse](t, rec).Success)
	}

	_, ok, err := s.store.Get(context.Background(), providers.Gmail)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDisconnect_UpstreamFailureStillRemovesLocally(t *testing.T) {
	s := newTestServer(t, stubLister{})
	require.NoError(t, s.store.Upsert(context.Background(), providers.Outlook, accounts.Record{
		Provider: providers.UpstreamMicrosoft, AccountID: "m1", Status: accounts.StatusConnected,
	}))
	s.client.On("DeleteAccount", mock.Anything, "m1").Return(&upstream.Error{Op: "delete account", StatusCode: 500, Message: "boom"})

	rec := s.do(http.MethodDelete, "/api/unipile/disconnect/outlook", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	_, ok, err := s.store.Get(context.Background(), providers.Outlook)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDisconnect_InvalidProvider(t *testing.T) {
	s := newTestServer(t, stubLister{})
	rec := s.do(http.MethodDelete, "/api/unipile/disconnect/fax", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Provider invalide", decode[ErrorResponse](t, rec).Error)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, stubLister{})
	rec := s.do(http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
}

func TestUnknownRoutes(t *testing.T) {
	s := newTestServer(t, stubLister{})

	rec := s.do(http.MethodGet, "/settings/profile", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = s.do(http.MethodGet, "/api/unipile/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decode[ErrorResponse](t, rec).Error)

	rec = s.do(http.MethodGet, "/api/other", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDEchoed(t *testing.T) {
	s := newTestServer(t, stubLister{})
	rec := s.do(http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
