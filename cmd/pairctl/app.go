package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rickgao/channel-console/internal/api"
	"github.com/rickgao/channel-console/internal/auth"
	"github.com/rickgao/channel-console/internal/config"
	"github.com/rickgao/channel-console/internal/connlist"
	"github.com/rickgao/channel-console/internal/proxy"
	"github.com/rickgao/channel-console/internal/version"
)

// app holds the components shared by every command.
type app struct {
	cfg    *config.ConsoleConfig
	logger *slog.Logger
	creds  *auth.Credentials

	client  *api.Client
	proxies *proxy.Selector
	conns   *connlist.Cache
}

func newApp(cfg *config.ConsoleConfig, logger *slog.Logger) (*app, error) {
	creds, err := auth.LoadCredentials(cfg.API.Token, cfg.API.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if creds.Anonymous() {
		logger.Warn("no api token configured, requests are unauthenticated")
	}

	client := api.NewClient(
		cfg.API.BaseURL,
		creds,
		api.WithLogger(logger.With("component", "api")),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
		api.WithUserAgent(version.UserAgent()),
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		creds:   creds,
		client:  client,
		proxies: proxy.NewSelector(client, cfg.Cache.ProxyTTL, clockwork.NewRealClock(), logger.With("component", "proxies")),
		conns:   connlist.New(client, logger.With("component", "connections")),
	}, nil
}
