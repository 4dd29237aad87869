package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAPITimeout        = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultAccountName       = "WhatsApp"
	DefaultQRTimeout         = 30 * time.Second
	DefaultAutoCloseDelay    = 2 * time.Second
	DefaultReconnectInterval = 2 * time.Second
	DefaultMaxAttempts       = 5
	DefaultCooldownInterval  = 60 * time.Second
	DefaultPingInterval      = 30 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultRefreshInterval   = 5 * time.Minute
	DefaultProxyTTL          = time.Minute
	DefaultCacheConcurrency  = 2
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultMetricsPath       = "/metrics"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

func (c *ConsoleConfig) applyDefaults() {
	// API defaults
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	if c.User.AccountName == "" {
		c.User.AccountName = DefaultAccountName
	}

	// Session defaults
	if c.Session.QRTimeout == 0 {
		c.Session.QRTimeout = DefaultQRTimeout
	}
	if c.Session.AutoCloseDelay == 0 {
		c.Session.AutoCloseDelay = DefaultAutoCloseDelay
	}

	// Realtime defaults
	if c.Realtime.ReconnectInterval == 0 {
		c.Realtime.ReconnectInterval = DefaultReconnectInterval
	}
	if c.Realtime.MaxAttempts == 0 {
		c.Realtime.MaxAttempts = DefaultMaxAttempts
	}
	if c.Realtime.CooldownInterval == 0 {
		c.Realtime.CooldownInterval = DefaultCooldownInterval
	}
	if c.Realtime.PingInterval == 0 {
		c.Realtime.PingInterval = DefaultPingInterval
	}
	if c.Realtime.WriteTimeout == 0 {
		c.Realtime.WriteTimeout = DefaultWriteTimeout
	}

	// Cache defaults
	if c.Cache.RefreshInterval == 0 {
		c.Cache.RefreshInterval = DefaultRefreshInterval
	}
	if c.Cache.ProxyTTL == 0 {
		c.Cache.ProxyTTL = DefaultProxyTTL
	}
	if c.Cache.Concurrency == 0 {
		c.Cache.Concurrency = DefaultCacheConcurrency
	}

	// Database defaults only matter when the journal is enabled
	if c.Database.Enabled() {
		applyDBDefaults(&c.Database)
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DatabaseConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
