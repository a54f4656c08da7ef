package version

// Set at build time, e.g.
// go build -ldflags "-X github.com/pysugar/oauth-connect/internal/version.Version=v0.2.0"
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
