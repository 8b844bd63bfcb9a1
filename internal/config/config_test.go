package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// writeConfig stores data as config.toml in a temp dir and returns a CLI pointing at it.
func writeConfig(t *testing.T, data string) *CLI {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	return &CLI{Config: path}
}

func TestLoad_ValidConfig(t *testing.T) {
	cli := writeConfig(t, `
[server]
host = "127.0.0.1"
port = 9000
body_max_bytes = 5242880
cors_origins = ["https://dashboard.example"]

[lichess]
api_token = "lip_test"
account_id = "magnus"

[upstream]
base_url = "https://lichess.org/"
site_url = "https://lichess.dev"
timeout_seconds = 15
idle_connections = 50

[log]
level = "debug"
format = "text"
`)

	cfg, err := Load(cli)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("Server.Addr() = %q, want %q", cfg.Server.Addr(), "127.0.0.1:9000")
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "https://dashboard.example" {
		t.Errorf("Server.CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Lichess.APIToken != "lip_test" || !cfg.Lichess.HasToken() {
		t.Errorf("Lichess.APIToken = %q, want %q", cfg.Lichess.APIToken, "lip_test")
	}
	if cfg.Lichess.AccountID != "magnus" {
		t.Errorf("Lichess.AccountID = %q, want %q", cfg.Lichess.AccountID, "magnus")
	}
	if cfg.Upstream.BaseURL != "https://lichess.org" {
		t.Errorf("Upstream.BaseURL = %q, want trailing slash trimmed", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.SiteURL != "https://lichess.dev" {
		t.Errorf("Upstream.SiteURL = %q, want %q", cfg.Upstream.SiteURL, "https://lichess.dev")
	}
	if cfg.Upstream.TimeoutSeconds != 15 {
		t.Errorf("Upstream.TimeoutSeconds = %d, want %d", cfg.Upstream.TimeoutSeconds, 15)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want debug/text", cfg.Log)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "# empty\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Server.Host", cfg.Server.Host, "0.0.0.0"},
		{"Server.Port", cfg.Server.Port, 8000},
		{"Server.BodyMaxBytes", cfg.Server.BodyMaxBytes, int64(1024 * 1024)},
		{"Upstream.BaseURL", cfg.Upstream.BaseURL, "https://lichess.org"},
		{"Upstream.SiteURL", cfg.Upstream.SiteURL, "https://lichess.org"},
		{"Upstream.TimeoutSeconds", cfg.Upstream.TimeoutSeconds, 30},
		{"Upstream.IdleConnections", cfg.Upstream.IdleConnections, 100},
		{"Upstream.MaxBodyBytes", cfg.Upstream.MaxBodyBytes, int64(64 * 1024 * 1024)},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Log.Format", cfg.Log.Format, "json"},
		{"Log.Output", cfg.Log.Output, "stdout"},
		{"Log.Rotation.MaxSizeMB", cfg.Log.Rotation.MaxSizeMB, 100},
		{"Metrics.Path", cfg.Metrics.Path, "/metrics"},
		{"Lichess.HasToken", cfg.Lichess.HasToken(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_SiteURLFollowsBaseURL(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[upstream]
base_url = "https://lichess.dev"
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Upstream.SiteURL != "https://lichess.dev" {
		t.Errorf("Upstream.SiteURL = %q, want base URL", cfg.Upstream.SiteURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(&CLI{Config: "/nonexistent/config.toml"})
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "[server\nport = "))
	if err == nil {
		t.Fatal("Load() expected parse error, got nil")
	}
	if !strings.Contains(err.Error(), "parse") {
		t.Errorf("error = %q, want mention of parse", err)
	}
}

func TestLoad_CLIOverrides(t *testing.T) {
	cli := writeConfig(t, `
[server]
host = "0.0.0.0"
port = 8000

[lichess]
api_token = "toml-token"
account_id = "toml-account"

[log]
level = "info"
`)
	cli.Host = "127.0.0.1"
	cli.Port = 3000
	cli.APIToken = "cli-token"
	cli.AccountID = "cli-account"
	cli.LogLevel = "debug"

	cfg, err := Load(cli)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q (CLI override)", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want %d (CLI override)", cfg.Server.Port, 3000)
	}
	if cfg.Lichess.APIToken != "cli-token" {
		t.Errorf("Lichess.APIToken = %q, want %q (CLI override)", cfg.Lichess.APIToken, "cli-token")
	}
	if cfg.Lichess.AccountID != "cli-account" {
		t.Errorf("Lichess.AccountID = %q, want %q (CLI override)", cfg.Lichess.AccountID, "cli-account")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q (CLI override)", cfg.Log.Level, "debug")
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"placeholder token", "[lichess]\napi_token = \"YOUR_TOKEN_HERE\"\n", "placeholder"},
		{"http upstream", "[upstream]\nbase_url = \"http://lichess.org\"\n", "HTTPS"},
		{"http site url", "[upstream]\nsite_url = \"http://lichess.org\"\n", "upstream.site_url"},
		{"negative port", "[server]\nport = -1\n", "server.port"},
		{"port too large", "[server]\nport = 70000\n", "server.port"},
		{"negative body limit", "[server]\nbody_max_bytes = -1\n", "body_max_bytes"},
		{"negative timeout", "[upstream]\ntimeout_seconds = -5\n", "timeout_seconds"},
		{"negative idle connections", "[upstream]\nidle_connections = -1\n", "idle_connections"},
		{"negative upstream body limit", "[upstream]\nmax_body_bytes = -1\n", "max_body_bytes"},
		{"invalid log level", "[log]\nlevel = \"verbose\"\n", "log.level"},
		{"invalid log format", "[log]\nformat = \"xml\"\n", "log.format"},
		{"negative rotation", "[log.rotation]\nmax_backups = -2\n", "log.rotation"},
		{"rate limit zero", "[server.rate_limit]\nenabled = true\nrequests_per_second = 0\n", "requests_per_second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.data))
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_RateLimitConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[server.rate_limit]
enabled = true
requests_per_second = 50.0
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Server.RateLimit.Enabled {
		t.Error("expected RateLimit.Enabled = true")
	}
	if cfg.Server.RateLimit.RequestsPerSecond != 50.0 {
		t.Errorf("RateLimit.RequestsPerSecond = %v, want 50.0", cfg.Server.RateLimit.RequestsPerSecond)
	}
}

func TestLoad_MetricsPath(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		path     string
		wantErr  string
		wantPath string
	}{
		{name: "custom", enabled: true, path: "/custom-metrics", wantPath: "/custom-metrics"},
		{name: "no leading slash", enabled: true, path: "metrics", wantErr: "metrics.path"},
		{name: "api prefix", enabled: true, path: "/api/lichess", wantErr: "conflicts"},
		{name: "api sub path", enabled: true, path: "/api/lichess/metrics", wantErr: "conflicts"},
		{name: "healthz", enabled: true, path: "/healthz", wantErr: "conflicts"},
		{name: "status", enabled: true, path: "/gateway/status", wantErr: "conflicts"},
		{name: "disabled skips validation", enabled: false, path: "bad-no-slash", wantPath: "bad-no-slash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := "[metrics]\npath = \"" + tt.path + "\"\n"
			if tt.enabled {
				data += "enabled = true\n"
			}
			cfg, err := Load(writeConfig(t, data))
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Load() expected error for metrics.path=%q, got nil", tt.path)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %q, want mention of %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Metrics.Path != tt.wantPath {
				t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, tt.wantPath)
			}
		})
	}
}

func TestWarnPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not meaningful on Windows")
	}

	tests := []struct {
		name     string
		mode     os.FileMode
		wantWarn bool
	}{
		{"group readable", 0o644, true},
		{"owner only", 0o600, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("# test"), tt.mode); err != nil {
				t.Fatal(err)
			}
			if err := os.Chmod(path, tt.mode); err != nil {
				t.Fatal(err)
			}

			cfg := &Config{filePath: path}
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
			cfg.WarnPermissions(logger)

			gotWarn := strings.Contains(buf.String(), "readable by group/others")
			if gotWarn != tt.wantWarn {
				t.Errorf("warning = %v, want %v (log: %q)", gotWarn, tt.wantWarn, buf.String())
			}
		})
	}
}

func TestFindConfigInPaths(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	path1 := filepath.Join(dir1, "config.toml")
	path2 := filepath.Join(dir2, "config.toml")
	for _, p := range []string{path1, path2} {
		if err := os.WriteFile(p, []byte("# test\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if got := findConfigInPaths([]string{"/nonexistent/a.toml", path2, path1}); got != path2 {
		t.Errorf("findConfigInPaths() = %q, want first existing %q", got, path2)
	}
	if got := findConfigInPaths([]string{"/nonexistent/a.toml", "/nonexistent/b.toml"}); got != "" {
		t.Errorf("findConfigInPaths() = %q, want empty", got)
	}
}
