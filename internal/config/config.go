package config

import "time"

// ConsoleConfig is the root configuration for a pairing console.
type ConsoleConfig struct {
	API      APIConfig      `yaml:"api"`
	User     UserConfig     `yaml:"user"`
	Session  SessionConfig  `yaml:"session"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Cache    CacheConfig    `yaml:"cache"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// APIConfig holds connection backend settings.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`   // REST base, e.g. https://crm.example.com/api
	WSURL      string        `yaml:"ws_url"`     // Derived from base_url when empty
	Token      string        `yaml:"token"`      // Bearer token
	TokenFile  string        `yaml:"token_file"` // Alternative to token
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// UserConfig identifies the operator the console acts for.
type UserConfig struct {
	ID          int64  `yaml:"id"`           // Sent in the socket authenticate message
	AccountName string `yaml:"account_name"` // Default name for new connections
}

// SessionConfig holds pairing session timings.
type SessionConfig struct {
	QRTimeout      time.Duration `yaml:"qr_timeout"`
	AutoCloseDelay time.Duration `yaml:"auto_close_delay"`
}

// RealtimeConfig holds event socket settings.
type RealtimeConfig struct {
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	MaxAttempts       int           `yaml:"max_attempts"`
	CooldownInterval  time.Duration `yaml:"cooldown_interval"`
	PingInterval      time.Duration `yaml:"ping_interval"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
}

// CacheConfig holds local cache settings for connections and proxies.
type CacheConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	ProxyTTL        time.Duration `yaml:"proxy_ttl"`
	Concurrency     int           `yaml:"concurrency"`
}

// DatabaseConfig holds the optional session journal database.
// The journal is disabled when Host is empty.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether a journal database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// MetricsConfig holds Prometheus and health endpoint settings.
// Port 0 disables the local HTTP server.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LoggingConfig holds slog handler settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}
