package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/channel-console/internal/database"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply session journal migrations",
		Long: `Apply the session journal schema migrations to the configured database.

pair and reconnect also migrate on start; this command is for preparing a
database ahead of time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.app.cfg
			if !cfg.Database.Enabled() {
				return errors.New("database.host is not configured")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			version, err := database.Migrate(ctx, cfg.Database, root.app.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "journal schema at version %d\n", version)
			return nil
		},
	}
}
