package handlers

import (
	"html/template"
	"net/http"

	"github.com/pysugar/oauth-connect/internal/providers"
	"github.com/rs/zerolog"
)

type landingPage struct {
	Title         string
	Symbol        string
	Kind          string
	Message       string
	RedirectAfter int
}

// AuthSuccessHandler serves /auth/success and returns to the dashboard after 2s.
func AuthSuccessHandler() http.HandlerFunc {
	return landingHandler(func(label string) landingPage {
		page := landingPage{Title: "Connection successful!", Symbol: "✓", Kind: "success", RedirectAfter: 2}
		if label != "" {
			page.Message = "Your " + label + " account has been connected."
		}
		return page
	})
}

// AuthFailureHandler serves /auth/failure and returns to the dashboard after 3s.
func AuthFailureHandler() http.HandlerFunc {
	return landingHandler(func(label string) landingPage {
		page := landingPage{Title: "Connection failed", Symbol: "✗", Kind: "failure", RedirectAfter: 3}
		if label != "" {
			page.Message = "Connecting your " + label + " account failed."
		}
		return page
	})
}

func landingHandler(build func(label string) landingPage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := r.URL.Query().Get("provider")
		label := provider
		if providers.IsValidKey(provider) {
			label = providers.Key(provider).Label()
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := landingTemplate.Execute(w, build(label)); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render landing page")
		}
	}
}

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta http-equiv="refresh" content="{{.RedirectAfter}};url=/">
    <title>{{.Title}}</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; flex-direction: column; align-items: center; justify-content: center; min-height: 100vh; gap: 16px; margin: 0; }
        .symbol { font-size: 48px; }
        .note { color: #999; font-size: 14px; }
        .success { color: #16a34a; }
        .failure { color: #dc3545; }
    </style>
</head>
<body>
    <div class="symbol {{.Kind}}">{{.Symbol}}</div>
    <h2 class="{{.Kind}}">{{.Title}}</h2>
    {{if .Message}}<p style="color: #666">{{.Message}}</p>{{end}}
    <p class="note">Redirecting...</p>
</body>
</html>
`))
