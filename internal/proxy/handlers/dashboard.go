package handlers

import (
	"html/template"
	"net/http"

	"github.com/pysugar/oauth-connect/internal/config"
	"github.com/pysugar/oauth-connect/internal/providers"
	"github.com/rs/zerolog"
)

type dashboardProvider struct {
	Key   string
	Label string
}

type dashboardGroup struct {
	Title       string
	Description string
	Providers   []dashboardProvider
}

type dashboardView struct {
	APIPrefix string
	Groups    []dashboardGroup
}

// DashboardHandler serves the connections page. The page polls
// account-status every 5 seconds so webhook deliveries show up without a reload.
func DashboardHandler() http.HandlerFunc {
	view := newDashboardView()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := dashboardTemplate.Execute(w, view); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render dashboard")
		}
	}
}

func newDashboardView() dashboardView {
	email := dashboardGroup{Title: "Email accounts", Description: "Connect the mailboxes used for outreach."}
	social := dashboardGroup{Title: "Social accounts", Description: "Connect the social profiles used for campaigns."}
	for _, key := range providers.Keys() {
		p := dashboardProvider{Key: string(key), Label: key.Label()}
		if key.Category() == providers.CategoryEmail {
			email.Providers = append(email.Providers, p)
		} else {
			social.Providers = append(social.Providers, p)
		}
	}
	return dashboardView{APIPrefix: config.APIPrefix, Groups: []dashboardGroup{email, social}}
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Connections</title>
    <script src="https://cdn.tailwindcss.com"></script>
    <style>
        /* Fallback styles if Tailwind fails to load */
        body:not(.bg-gray-100) { font-family: system-ui, sans-serif; background: #f3f4f6; padding: 2rem; }
    </style>
</head>
<body class="bg-gray-100 min-h-screen" data-api="{{.APIPrefix}}">
    <div class="container mx-auto px-4 py-10 max-w-5xl">
        <header class="mb-8">
            <h1 class="text-3xl font-bold text-gray-900">Connections</h1>
            <p class="text-gray-500">Manage and sync outreach and campaign tracking across accounts.</p>
        </header>
        {{range .Groups}}
        <section class="bg-white rounded-xl border border-gray-200 p-6 mb-6" data-group>
            <div class="flex justify-between items-start mb-4">
                <div>
                    <h3 class="text-lg font-semibold text-gray-900">{{.Title}}</h3>
                    <p class="text-sm text-gray-500">{{.Description}}</p>
                </div>
                <span class="text-sm text-gray-500" data-count>0 connected</span>
            </div>
            <div class="space-y-3">
                {{range .Providers}}
                <div class="flex items-center justify-between border border-gray-200 rounded-lg p-4" data-provider="{{.Key}}" data-label="{{.Label}}">
                    <div>
                        <div class="font-medium text-gray-900">{{.Label}}</div>
                        <div class="text-sm text-gray-500" data-identity>Not connected</div>
                    </div>
                    <button class="px-4 py-2 rounded-lg text-sm font-medium text-white bg-violet-600 hover:bg-violet-700" data-action>Connect</button>
                </div>
                {{end}}
            </div>
        </section>
        {{end}}
    </div>
    <script>
        const api = document.body.dataset.api;
        const busy = {};
        let current = {};

        async function loadAccountStatus() {
            try {
                const res = await fetch(api + '/account-status');
                if (!res.ok) throw new Error('HTTP ' + res.status);
                const data = await res.json();
                current = data.accounts || {};
                render();
            } catch (err) {
                console.error('Failed to load account status:', err);
            }
        }

        function render() {
            document.querySelectorAll('[data-group]').forEach(group => {
                let connected = 0;
                group.querySelectorAll('[data-provider]').forEach(row => {
                    const key = row.dataset.provider;
                    const info = current[key] || { connected: false };
                    const identity = row.querySelector('[data-identity]');
                    const button = row.querySelector('[data-action]');
                    if (info.connected) {
                        connected++;
                        identity.textContent = info.email || info.username || 'Connected';
                        button.textContent = 'Disconnect';
                        button.className = 'px-4 py-2 rounded-lg text-sm font-medium text-red-600 border border-red-200 hover:bg-red-50';
                    } else {
                        identity.textContent = 'Not connected';
                        button.textContent = busy[key] ? 'Redirecting...' : 'Connect';
                        button.className = 'px-4 py-2 rounded-lg text-sm font-medium text-white bg-violet-600 hover:bg-violet-700';
                    }
                    button.disabled = !!busy[key];
                });
                group.querySelector('[data-count]').textContent = connected + ' connected';
            });
        }

        async function connect(key) {
            busy[key] = true;
            render();
            try {
                const res = await fetch(api + '/auth-link', {
                    method: 'POST',
                    headers: { 'Content-Type': 'application/json' },
                    body: JSON.stringify({ provider: key })
                });
                const data = await res.json();
                if (!res.ok) throw new Error(data.error || 'HTTP ' + res.status);
                window.location.href = data.auth_url;
            } catch (err) {
                alert('Connection failed: ' + err.message);
                busy[key] = false;
                render();
            }
        }

        async function disconnect(key, label) {
            if (!confirm('Are you sure you want to disconnect your ' + label + ' account?')) return;
            try {
                const res = await fetch(api + '/disconnect/' + encodeURIComponent(key), { method: 'DELETE' });
                if (!res.ok) {
                    const data = await res.json().catch(() => ({}));
                    throw new Error(data.error || 'HTTP ' + res.status);
                }
                await loadAccountStatus();
            } catch (err) {
                alert('Disconnect failed: ' + err.message);
            }
        }

        document.querySelectorAll('[data-provider]').forEach(row => {
            row.querySelector('[data-action]').addEventListener('click', () => {
                const key = row.dataset.provider;
                if ((current[key] || {}).connected) {
                    disconnect(key, row.dataset.label);
                } else {
                    connect(key);
                }
            });
        });

        loadAccountStatus();
        setInterval(loadAccountStatus, 5000);
    </script>
</body>
</html>
`))
