package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rickgao/channel-console/internal/config"
	"github.com/rickgao/channel-console/internal/version"
)

// rootOptions holds global flags and the state built from them.
type rootOptions struct {
	configPath string
	logLevel   string

	app *app
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pairctl",
		Short: "Pair WhatsApp channel connections",
		Long: `Pair WhatsApp channel connections from a terminal.

  pairctl creates a channel connection on the backend, shows the QR code
  pushed over the realtime socket and waits until the phone confirms the
  link. Interrupting a pairing removes the half-created connection.

  Quick start:
    pairctl proxies
    pairctl pair --proxy 3
    pairctl connections --reconnectable
    pairctl reconnect 42`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.LoadAndValidate(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}

			logger, err := newLogger(cfg.Logging, os.Stderr)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			opts.app, err = newApp(cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath(), "config file path")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	cmd.AddCommand(
		newPairCmd(opts),
		newReconnectCmd(opts),
		newProxiesCmd(opts),
		newConnectionsCmd(opts),
		newMigrateCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

// defaultConfigPath honors PAIRCTL_CONFIG.
func defaultConfigPath() string {
	if p := os.Getenv("PAIRCTL_CONFIG"); p != "" {
		return p
	}
	return "configs/pairctl.yaml"
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pairctl %s\n", version.String())
		},
	}
}
