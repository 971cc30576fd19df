package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/minimact-dev/minimact"
	"github.com/minimact-dev/minimact/internal/config"
	"github.com/minimact-dev/minimact/internal/errors"
	"github.com/minimact-dev/minimact/pkg/dom"
)

func newConnectCmd() *cobra.Command {
	var (
		urlFlag    string
		htmlFlag   string
		listenFlag string
		snapshots  bool
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a minimact server and hydrate a page",
		Long: `Connect dials the server, hydrates the given server-rendered HTML
page, registers its components, and streams patches into the live
tree. With --snapshots the markup of every component prints once
after connecting and once more on exit. With --listen a diagnostics endpoint serves
/metrics and /healthz.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(".")
			if err != nil {
				return err
			}
			if urlFlag != "" {
				cfg.ServerURL = urlFlag
			}
			if htmlFlag != "" {
				cfg.Page = htmlFlag
			}
			if listenFlag != "" {
				cfg.Listen = listenFlag
			}
			return runConnect(cmd.Context(), cfg, snapshots, listenFlag != "")
		},
	}

	cmd.Flags().StringVar(&urlFlag, "url", "", "server WebSocket URL (default from minimact.json)")
	cmd.Flags().StringVar(&htmlFlag, "html", "", "server-rendered HTML page to hydrate")
	cmd.Flags().StringVar(&listenFlag, "listen", "", "serve diagnostics (/metrics, /healthz) on this address")
	cmd.Flags().BoolVar(&snapshots, "snapshots", false, "print component markup after connection events")

	return cmd
}

func runConnect(ctx context.Context, cfg *config.Config, snapshots, diagnostics bool) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	rt := minimact.New(cfg.ServerURL,
		minimact.WithLogger(logger),
		minimact.WithMetrics(),
	)

	if cfg.Page != "" {
		markup, err := os.ReadFile(cfg.Page)
		if err != nil {
			return fmt.Errorf("read page: %w", err)
		}
		if err := rt.LoadHTML(string(markup)); err != nil {
			return err
		}
	}

	if diagnostics {
		go serveDiagnostics(cfg.Listen, logger)
	}

	if err := rt.Start(ctx); err != nil {
		return errors.ErrConnectFailed(cfg.ServerURL, err)
	}
	defer rt.Stop()

	components := rt.Components()
	if len(components) == 0 && cfg.Page != "" {
		logger.Warn("page hydrated no components")
	}
	for _, c := range components {
		logger.Info("component mounted", "component_id", c.ID)
	}

	rt.Connection().OnReconnected(func() {
		logger.Info("reconnected, components re-registered")
	})
	rt.Connection().OnDisconnected(func(err error) {
		if err != nil {
			logger.Error("disconnected", "error", err)
		}
	})

	if snapshots {
		for _, c := range components {
			fmt.Println(dom.Render(c.Container))
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}

	if snapshots {
		rt.Flush()
		for _, c := range rt.Components() {
			fmt.Println(dom.Render(c.Container))
		}
	}
	return nil
}

func serveDiagnostics(addr string, logger *slog.Logger) {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	logger.Info("diagnostics listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Error("diagnostics server failed", "error", err)
	}
}
