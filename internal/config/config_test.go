package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
api:
  base_url: https://crm.example.com/api
  token: abc123
user:
  id: 17
  account_name: Support Line
session:
  qr_timeout: 45s
realtime:
  max_attempts: 3
database:
  host: localhost
  port: 5433
  name: console
  user: console
  password: secret
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://crm.example.com/api" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://crm.example.com/api")
	}
	if cfg.User.ID != 17 {
		t.Errorf("User.ID = %d, want %d", cfg.User.ID, 17)
	}
	if cfg.User.AccountName != "Support Line" {
		t.Errorf("User.AccountName = %q, want %q", cfg.User.AccountName, "Support Line")
	}
	if cfg.Session.QRTimeout != 45*time.Second {
		t.Errorf("Session.QRTimeout = %v, want %v", cfg.Session.QRTimeout, 45*time.Second)
	}
	if cfg.Realtime.MaxAttempts != 3 {
		t.Errorf("Realtime.MaxAttempts = %d, want %d", cfg.Realtime.MaxAttempts, 3)
	}
	if cfg.Database.Port != 5433 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5433)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_API_TOKEN", "tok-from-env")

	yaml := `
api:
  base_url: https://crm.example.com/api
  token: ${TEST_API_TOKEN}
user:
  id: 1
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.Token != "tok-from-env" {
		t.Errorf("API.Token = %q, want %q", cfg.API.Token, "tok-from-env")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
api:
  base_url: https://crm.example.com/api
user:
  id: 1
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want default %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Session.QRTimeout != 30*time.Second {
		t.Errorf("Session.QRTimeout = %v, want %v", cfg.Session.QRTimeout, 30*time.Second)
	}
	if cfg.Session.AutoCloseDelay != 2*time.Second {
		t.Errorf("Session.AutoCloseDelay = %v, want %v", cfg.Session.AutoCloseDelay, 2*time.Second)
	}
	if cfg.Realtime.ReconnectInterval != 2*time.Second {
		t.Errorf("Realtime.ReconnectInterval = %v, want %v", cfg.Realtime.ReconnectInterval, 2*time.Second)
	}
	if cfg.Realtime.MaxAttempts != 5 {
		t.Errorf("Realtime.MaxAttempts = %d, want %d", cfg.Realtime.MaxAttempts, 5)
	}
	if cfg.Realtime.CooldownInterval != 60*time.Second {
		t.Errorf("Realtime.CooldownInterval = %v, want %v", cfg.Realtime.CooldownInterval, 60*time.Second)
	}
	if cfg.User.AccountName != DefaultAccountName {
		t.Errorf("User.AccountName = %q, want default %q", cfg.User.AccountName, DefaultAccountName)
	}
	if cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics.Path = %q, want default %q", cfg.Metrics.Path, DefaultMetricsPath)
	}
	if cfg.Database.Port != 0 {
		t.Errorf("Database.Port = %d, want 0 when journal disabled", cfg.Database.Port)
	}
}

func TestLoadAndValidate_MissingFile(t *testing.T) {
	_, err := LoadAndValidate(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() ConsoleConfig {
		cfg := ConsoleConfig{
			API:  APIConfig{BaseURL: "https://crm.example.com/api"},
			User: UserConfig{ID: 9},
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*ConsoleConfig)
		wantErr string
	}{
		{
			name:    "missing base url",
			mutate:  func(c *ConsoleConfig) { c.API.BaseURL = "" },
			wantErr: "api.base_url is required",
		},
		{
			name:    "non http base url",
			mutate:  func(c *ConsoleConfig) { c.API.BaseURL = "ftp://crm.example.com" },
			wantErr: `api.base_url must be an http(s) URL, got "ftp://crm.example.com"`,
		},
		{
			name:    "bad ws url",
			mutate:  func(c *ConsoleConfig) { c.API.WSURL = "https://crm.example.com/ws" },
			wantErr: `api.ws_url must be a ws(s) URL, got "https://crm.example.com/ws"`,
		},
		{
			name: "token and token file",
			mutate: func(c *ConsoleConfig) {
				c.API.Token = "a"
				c.API.TokenFile = "/tmp/token"
			},
			wantErr: "api.token and api.token_file are mutually exclusive",
		},
		{
			name:    "missing user id",
			mutate:  func(c *ConsoleConfig) { c.User.ID = 0 },
			wantErr: "user.id is required",
		},
		{
			name:    "cooldown shorter than interval",
			mutate:  func(c *ConsoleConfig) { c.Realtime.CooldownInterval = time.Second },
			wantErr: "realtime.cooldown_interval (1s) cannot be shorter than reconnect_interval (2s)",
		},
		{
			name: "database missing password",
			mutate: func(c *ConsoleConfig) {
				c.Database = DatabaseConfig{Host: "localhost", Name: "db", User: "user"}
				applyDBDefaults(&c.Database)
			},
			wantErr: "database.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *ConsoleConfig) {
				c.Database = DatabaseConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 2, MinConns: 5}
			},
			wantErr: "database.min_conns (5) cannot exceed max_conns (2)",
		},
		{
			name:    "metrics port out of range",
			mutate:  func(c *ConsoleConfig) { c.Metrics.Port = 70000 },
			wantErr: "metrics.port must be between 0 and 65535, got 70000",
		},
		{
			name:    "bad log level",
			mutate:  func(c *ConsoleConfig) { c.Logging.Level = "trace" },
			wantErr: `logging.level must be one of debug, info, warn, error, got "trace"`,
		},
		{
			name:    "valid config",
			mutate:  func(c *ConsoleConfig) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
