package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/channel-console/internal/database"
	"github.com/rickgao/channel-console/internal/health"
	"github.com/rickgao/channel-console/internal/metrics"
	"github.com/rickgao/channel-console/internal/poller"
	"github.com/rickgao/channel-console/internal/realtime"
	"github.com/rickgao/channel-console/internal/session"
	"github.com/rickgao/channel-console/internal/terminal"
	"github.com/rickgao/channel-console/internal/version"
)

const cleanupTimeout = 15 * time.Second

// pairOptions holds the flags shared by pair and reconnect.
type pairOptions struct {
	proxyID int64 // 0 = keep current / direct
	name    string
	qrPNG   string
}

func (o pairOptions) proxy() *int64 {
	if o.proxyID == 0 {
		return nil
	}
	id := o.proxyID
	return &id
}

func (o *pairOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&o.proxyID, "proxy", 0, "proxy server id (0 = direct)")
	cmd.Flags().StringVar(&o.qrPNG, "qr-png", "", "also write each QR code to this PNG file")
}

func newPairCmd(root *rootOptions) *cobra.Command {
	opts := &pairOptions{}

	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Create a connection and pair it by QR code",
		Long: `Create a new WhatsApp connection and pair it by scanning a QR code.

Type r and Enter to request a new QR code after a timeout, q and Enter (or
Ctrl-C) to cancel. A cancelled pairing deletes the connection it created.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPairing(cmd, root.app, *opts, 0)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.name, "name", "", "account name (default: user.account_name)")

	return cmd
}

func newReconnectCmd(root *rootOptions) *cobra.Command {
	opts := &pairOptions{}

	cmd := &cobra.Command{
		Use:   "reconnect ID",
		Short: "Pair an existing connection again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 1 {
				return fmt.Errorf("invalid connection id %q", args[0])
			}
			return runPairing(cmd, root.app, *opts, id)
		},
	}

	opts.addFlags(cmd)

	return cmd
}

// runPairing wires the session manager to the realtime socket and the
// local surfaces, then supervises one pairing. reconnectID 0 creates a new
// connection.
func runPairing(cmd *cobra.Command, a *app, opts pairOptions, reconnectID int64) error {
	cfg := a.cfg
	logger := a.logger
	out := cmd.OutOrStdout()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Validate the proxy before anything is created on the backend.
	if _, err := a.proxies.Select(ctx, opts.proxy()); err != nil {
		return fmt.Errorf("select proxy: %w", err)
	}

	m := metrics.New()

	presenterOpts := []terminal.Option{terminal.WithLogger(logger)}
	if opts.qrPNG != "" {
		presenterOpts = append(presenterOpts, terminal.WithPNGFile(opts.qrPNG))
	}
	presenter := terminal.New(out, presenterOpts...)

	accountName := cfg.User.AccountName
	if opts.name != "" {
		accountName = opts.name
	}

	mgrOpts := []session.Option{
		session.WithLogger(logger.With("component", "session")),
		session.WithPresenter(presenter),
		session.WithInvalidator(a.conns),
		session.WithObserver(m),
	}

	if cfg.Database.Enabled() {
		connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
		defer connectCancel()

		if _, err := database.Migrate(connectCtx, cfg.Database, logger); err != nil {
			return fmt.Errorf("migrate journal database: %w", err)
		}
		pool, err := database.Connect(connectCtx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect journal database: %w", err)
		}
		defer pool.Close()

		mgrOpts = append(mgrOpts, session.WithJournal(database.NewJournal(pool)))
		logger.Info("session journal enabled", "host", cfg.Database.Host, "database", cfg.Database.Name)
	}

	mgr := session.NewManager(session.Config{
		AccountName:    accountName,
		QRTimeout:      cfg.Session.QRTimeout,
		AutoCloseDelay: cfg.Session.AutoCloseDelay,
		CleanupTimeout: cleanupTimeout,
		EventBuffer:    64,
	}, a.client, mgrOpts...)

	socket, err := newSocket(a)
	if err != nil {
		return err
	}
	socket.OnMessage(mgr.HandleMessage)
	socket.OnStateChange(func(st realtime.SocketState) {
		m.SocketState(st)
		mgr.HandleSocketState(st)
	})
	socket.OnMalformed(m.MalformedMessage)

	// The socket must be authenticated before the first connect request or
	// the QR code can be missed.
	if err := socket.Connect(ctx, cfg.User.ID); err != nil {
		return fmt.Errorf("connect realtime socket: %w", err)
	}
	defer socket.Close()

	refresher := poller.New(poller.Config{
		Interval:    cfg.Cache.RefreshInterval,
		Concurrency: cfg.Cache.Concurrency,
		Timeout:     cfg.API.Timeout,
	}, []poller.Source{a.proxies, a.conns}, logger.With("component", "refresher"))

	states, unsubscribe := mgr.Subscribe()
	defer unsubscribe()

	interrupts := make(chan struct{}, 1)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return mgr.Run(gctx)
	})

	g.Go(func() error {
		if err := refresher.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		return refresher.Stop(stopCtx)
	})

	if cfg.Metrics.Port > 0 {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           health.NewHandler(mgr, socket, m.Handler(), cfg.Metrics.Path, logger).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("starting health server", "port", cfg.Metrics.Port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("health server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case sig := <-sigCh:
				logger.Info("received signal", "signal", sig)
				select {
				case interrupts <- struct{}{}:
				default:
				}
			}
		}
	})

	go readKeys(cmd.InOrStdin(), mgr, interrupts)

	g.Go(func() error {
		// Ending supervision stops the manager, the socket and the servers.
		defer cancel()
		sup := &supervisor{
			ctrl:        mgr,
			render:      presenter.RenderState,
			out:         out,
			reconnectID: reconnectID,
			proxyID:     opts.proxy(),
		}
		return sup.run(gctx, states, interrupts)
	})

	logger.Info("pairing started",
		"version", version.Version,
		"user_id", cfg.User.ID,
		"reconnect_id", reconnectID,
	)

	return g.Wait()
}

// newSocket builds the realtime client from config.
func newSocket(a *app) (*realtime.Client, error) {
	cfg := a.cfg

	wsURL := cfg.API.WSURL
	if wsURL == "" {
		u, err := realtime.URLFromBase(cfg.API.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("derive socket url: %w", err)
		}
		wsURL = u
	}

	rc := realtime.DefaultClientConfig()
	rc.URL = wsURL
	rc.ReconnectInterval = cfg.Realtime.ReconnectInterval
	rc.MaxAttempts = cfg.Realtime.MaxAttempts
	rc.CooldownInterval = cfg.Realtime.CooldownInterval
	rc.PingInterval = cfg.Realtime.PingInterval
	rc.WriteTimeout = cfg.Realtime.WriteTimeout

	header := a.creds.Header()
	header.Set("User-Agent", version.UserAgent())

	return realtime.NewClient(rc,
		realtime.WithHeader(header),
		realtime.WithLogger(a.logger.With("component", "realtime")),
	), nil
}
