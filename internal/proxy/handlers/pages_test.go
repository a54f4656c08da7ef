package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDashboard_ListsProvidersGrouped(t *testing.T) {
	s := newTestServer(t, stubLister{})
	rec := s.do(http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	for _, label := range []string{"Email accounts", "Social accounts", "Gmail", "Outlook", "Instagram", "LinkedIn"} {
		assert.Contains(t, body, label)
	}
	assert.Contains(t, body, `data-api="/api/unipile"`)
	assert.Contains(t, body, "setInterval(loadAccountStatus, 5000)")
}

func TestAuthSuccessPage(t *testing.T) {
	s := newTestServer(t, stubLister{})
	rec := s.do(http.MethodGet, "/auth/success?provider=linkedin", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `content="2;url=/"`)
	assert.Contains(t, body, "Your LinkedIn account has been connected.")
}

func TestAuthFailurePage(t *testing.T) {
	s := newTestServer(t, stubLister{})
	rec := s.do(http.MethodGet, "/auth/failure?provider=gmail", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `content="3;url=/"`)
	assert.Contains(t, body, "Connecting your Gmail account failed.")
}

func TestAuthFailurePage_EscapesProvider(t *testing.T) {
	s := newTestServer(t, stubLister{})
	rec := s.do(http.MethodGet, "/auth/failure?provider=%3Cscript%3E", "")

	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}

func TestAuthSuccessPage_NoProvider(t *testing.T) {
	s := newTestServer(t, stubLister{})
	rec := s.do(http.MethodGet, "/auth/success", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Your ")
}
