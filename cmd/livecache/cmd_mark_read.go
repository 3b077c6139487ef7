package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/junaikey/livecache/internal/codec"
	"github.com/junaikey/livecache/pkg/config"
	"github.com/junaikey/livecache/pkg/filter"
	"github.com/junaikey/livecache/pkg/live"
	"github.com/junaikey/livecache/pkg/logger"
	"github.com/junaikey/livecache/pkg/metrics"
	"github.com/junaikey/livecache/pkg/models"
)

func markReadCmd(configPath *string) *cobra.Command {
	var viewer string

	cmd := &cobra.Command{
		Use:   "mark-read <notification-id>...",
		Short: "Mark notifications of a viewer as read",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("viewer") {
				cfg.Page.Viewer = viewer
			}
			if cfg.Viewer().Anonymous() {
				return fmt.Errorf("mark-read needs a viewer")
			}

			log, closeLog, err := newLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer closeLog()

			return markRead(cmd.Context(), cmd.OutOrStdout(), cfg, log, args)
		},
	}

	cmd.Flags().StringVar(&viewer, "viewer", "", "viewer owning the notifications")
	return cmd
}

func markRead(ctx context.Context, out io.Writer, cfg *config.Config, log logger.Logger, ids []string) error {
	conn, err := dial(ctx, cfg.Server, log)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(context.Background()) }()

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	page, err := newPage(conn, models.Notifications, cfg, log, m)
	if err != nil {
		return err
	}
	defer func() { _ = page.Close() }()

	if err := page.Establish(ctx, cfg.Viewer(), filter.Filter{}); err != nil {
		return err
	}

	enc := codec.NewJSON()
	for _, id := range ids {
		n, err := live.MarkAsRead(ctx, page, id)
		if err != nil {
			return err
		}
		line, err := enc.Marshal(n)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%s\n", line); err != nil {
			return err
		}
	}
	return nil
}
