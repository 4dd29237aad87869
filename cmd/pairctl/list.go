package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/channel-console/internal/model"
)

func newProxiesCmd(root *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "proxies",
		Short: "List proxy servers available for pairing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := root.app.proxies

			var (
				proxies []model.ProxyServer
				err     error
			)
			if all {
				proxies, err = sel.All(cmd.Context())
			} else {
				proxies, err = sel.Enabled(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("list proxies: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(proxies) == 0 {
				fmt.Fprintln(out, "No proxy servers. Pairing will connect directly.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tADDRESS\tENABLED")
			for _, p := range proxies {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", p.ID, p.Name, p.Type, p.Address(), p.Enabled)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include disabled and invalid proxies")

	return cmd
}

func newConnectionsCmd(root *rootOptions) *cobra.Command {
	var reconnectable bool

	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"ls"},
		Short:   "List channel connections",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := root.app.conns

			var (
				conns []model.ChannelConnection
				err   error
			)
			if reconnectable {
				conns, err = cache.Reconnectable(cmd.Context())
			} else {
				conns, err = cache.List(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("list connections: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(conns) == 0 {
				fmt.Fprintln(out, "No connections.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCHANNEL\tNAME\tSTATUS\tPROXY\tCREATED")
			for _, c := range conns {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					c.ID, c.ChannelType, c.AccountName, c.Status, proxyColumn(c.ProxyServerID), createdColumn(c.CreatedAt))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&reconnectable, "reconnectable", false, "only connections that can be paired again")

	return cmd
}

func proxyColumn(id *int64) string {
	if id == nil {
		return "direct"
	}
	return strconv.FormatInt(*id, 10)
}

func createdColumn(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
