package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/junaikey/livecache/contrib/resync"
	"github.com/junaikey/livecache/internal/codec"
	"github.com/junaikey/livecache/pkg/config"
	"github.com/junaikey/livecache/pkg/connection"
	"github.com/junaikey/livecache/pkg/connection/gorillaws"
	"github.com/junaikey/livecache/pkg/filter"
	"github.com/junaikey/livecache/pkg/live"
	"github.com/junaikey/livecache/pkg/logger"
	"github.com/junaikey/livecache/pkg/metrics"
	"github.com/junaikey/livecache/pkg/models"
)

func watchCmd(configPath *string) *cobra.Command {
	var (
		table      string
		viewer     string
		typ        string
		tags       string
		unread     bool
		optimistic bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print a page's entities every time they change",
		Long: "watch establishes a live page for one table, viewer and filter, prints its entities " +
			"and prints them again after every change. Dropped subscriptions are re-established " +
			"with backoff.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("table") {
				cfg.Page.Table = table
			}
			if flags.Changed("viewer") {
				cfg.Page.Viewer = viewer
			}
			if flags.Changed("type") {
				cfg.Page.Filter.Type = typ
			}
			if flags.Changed("tags") {
				cfg.Page.Filter.Tags = filter.ParseTags(tags)
			}
			if flags.Changed("unread") {
				cfg.Page.Filter.UnreadOnly = unread
			}
			if flags.Changed("optimistic") {
				cfg.Page.Optimistic = optimistic
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, closeLog, err := newLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer closeLog()

			return watch(cmd.Context(), cmd.OutOrStdout(), cfg, log)
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "table to watch: templates, glossary_terms, knowledge_collections or notifications")
	cmd.Flags().StringVar(&viewer, "viewer", "", "viewer id; empty watches as an anonymous viewer")
	cmd.Flags().StringVar(&typ, "type", "", "only entities of this type")
	cmd.Flags().StringVar(&tags, "tags", "", "only entities with one of these comma-separated tags")
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread entities")
	cmd.Flags().BoolVar(&optimistic, "optimistic", false, "apply mutation results before their change events arrive")
	return cmd
}

// dial connects to the entity service described by cfg.
func dial(ctx context.Context, cfg config.ServerConfig, log logger.Logger) (*gorillaws.Connection, error) {
	c, err := codec.ByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, err
	}

	conn := gorillaws.New(connection.NewConfig(u).WithCodec(c).WithLogger(log))
	conn.SetTimeOut(cfg.Timeout)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.URL, err)
	}
	return conn, nil
}

func watch(ctx context.Context, out io.Writer, cfg *config.Config, log logger.Logger) error {
	conn, err := dial(ctx, cfg.Server, log)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(context.Background()) }()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}
	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr, reg, log)
		defer stop()
	}

	switch models.Table(cfg.Page.Table) {
	case models.TemplateTable:
		return watchPage(ctx, out, conn, models.Templates, cfg, log, m)
	case models.GlossaryTable:
		return watchPage(ctx, out, conn, models.Glossary, cfg, log, m)
	case models.CollectionTable:
		return watchPage(ctx, out, conn, models.Collections, cfg, log, m)
	case models.NotificationTable:
		return watchPage(ctx, out, conn, models.Notifications, cfg, log, m)
	default:
		return fmt.Errorf("no page kind for table %q", cfg.Page.Table)
	}
}

func newPage[E models.Entity](conn *gorillaws.Connection, kind models.Kind[E], cfg *config.Config, log logger.Logger, m *metrics.Metrics) (*live.Page[E], error) {
	table := connection.NewTable(conn, kind, log)
	return live.New(kind, live.From[E](table), live.Options{
		Optimistic: cfg.Page.Optimistic,
		Logger:     log,
		Metrics:    m.For(kind.Table),
		Recorder:   live.LogRecorder{Logger: log},
		QueueSize:  cfg.Page.QueueSize,
	})
}

func watchPage[E models.Entity](ctx context.Context, out io.Writer, conn *gorillaws.Connection, kind models.Kind[E], cfg *config.Config, log logger.Logger, m *metrics.Metrics) error {
	page, err := newPage(conn, kind, cfg, log, m)
	if err != nil {
		return err
	}
	defer func() { _ = page.Close() }()

	if err := page.Establish(ctx, cfg.Viewer(), cfg.Page.Filter); err != nil {
		return err
	}

	sup := resync.New(page,
		resync.WithRetryer(retryer(cfg.Retry)),
		resync.WithLogger(log),
		resync.WithReconnect(func(ctx context.Context) error {
			if conn.IsClosed() {
				return conn.Connect(ctx)
			}
			return nil
		}),
	)
	supErr := make(chan error, 1)
	go func() { supErr <- sup.Run(ctx) }()

	enc := codec.NewJSON()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-supErr:
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		case _, ok := <-page.Changes():
			if !ok {
				return nil
			}
			if err := render(out, enc, kind.Table, page.Snapshot()); err != nil {
				return err
			}
		}
	}
}

func retryer(cfg config.RetryConfig) resync.Retryer {
	return &resync.ExponentialBackoffRetryer{
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		Multiplier:   cfg.Multiplier,
		MaxRetries:   cfg.MaxRetries,
		Jitter:       true,
		JitterFactor: 0.3,
	}
}

// render writes a header line followed by one JSON line per entity.
func render[E models.Entity](out io.Writer, enc codec.Marshaler, table models.Table, entities []E) error {
	if _, err := fmt.Fprintf(out, "== %s (%d) ==\n", table, len(entities)); err != nil {
		return err
	}
	for _, e := range entities {
		line, err := enc.Marshal(e)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", e.GetID(), err)
		}
		if _, err := fmt.Fprintf(out, "%s\n", line); err != nil {
			return err
		}
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log logger.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", "error", err.Error())
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
