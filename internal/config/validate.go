package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *ConsoleConfig) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.WSURL != "" {
		w, err := url.Parse(c.API.WSURL)
		if err != nil || (w.Scheme != "ws" && w.Scheme != "wss") {
			return fmt.Errorf("api.ws_url must be a ws(s) URL, got %q", c.API.WSURL)
		}
	}
	if c.API.Token != "" && c.API.TokenFile != "" {
		return errors.New("api.token and api.token_file are mutually exclusive")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}

	if c.User.ID < 1 {
		return errors.New("user.id is required")
	}

	if c.Session.QRTimeout <= 0 {
		return errors.New("session.qr_timeout must be > 0")
	}
	if c.Session.AutoCloseDelay < 0 {
		return errors.New("session.auto_close_delay must be >= 0")
	}

	if c.Realtime.MaxAttempts < 1 {
		return errors.New("realtime.max_attempts must be >= 1")
	}
	if c.Realtime.ReconnectInterval <= 0 {
		return errors.New("realtime.reconnect_interval must be > 0")
	}
	if c.Realtime.CooldownInterval < c.Realtime.ReconnectInterval {
		return fmt.Errorf("realtime.cooldown_interval (%s) cannot be shorter than reconnect_interval (%s)",
			c.Realtime.CooldownInterval, c.Realtime.ReconnectInterval)
	}

	if c.Cache.Concurrency < 1 {
		return errors.New("cache.concurrency must be >= 1")
	}

	if c.Database.Enabled() {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 0 and 65535, got %d", c.Metrics.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (db *DatabaseConfig) validate(prefix string) error {
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
