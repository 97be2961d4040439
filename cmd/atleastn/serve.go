package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/atleastn/internal/rankservice"
)

// #region serve-cmd
func serveCmd(a *app) *cobra.Command {
	var noStore bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the Ranker gRPC API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := rankservice.Options{
				Base:      a.settings.EvaluatorConfig(),
				CacheSize: a.settings.CacheSize,
				Workers:   a.settings.Workers,
				Logger:    a.log,
				Metrics:   rankservice.NewMetrics(),
			}
			if !noStore {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				defer store.Close()
				opts.Store = store
			}

			srv, err := rankservice.NewServer(opts)
			if err != nil {
				return err
			}

			lis, err := net.Listen("tcp", a.settings.ListenAddr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", a.settings.ListenAddr, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Serve(ctx, lis) })
			if a.settings.MetricsAddr != "" {
				reg := prometheus.NewRegistry()
				if err := opts.Metrics.Register(reg); err != nil {
					return fmt.Errorf("register metrics: %w", err)
				}
				g.Go(func() error { return serveMetrics(ctx, a.settings.MetricsAddr, reg, a.log) })
			}
			return g.Wait()
		},
	}

	cmd.Flags().String("listen", "localhost:50061", "address to listen on")
	configFlag(cmd.Flags(), "listen", "listen_addr")
	cmd.Flags().String("metrics-listen", "", "address for the Prometheus /metrics endpoint (empty disables it)")
	configFlag(cmd.Flags(), "metrics-listen", "metrics_addr")
	cmd.Flags().Int("cache-size", 128, "number of Rank responses kept in the LRU cache")
	configFlag(cmd.Flags(), "cache-size", "cache_size")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "serve without the SQLite store")
	addEvaluationFlags(cmd)
	addWorkersFlag(cmd)
	return cmd
}

// #endregion serve-cmd

// #region metrics-endpoint
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	hs := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()
	log.Info("metrics listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}

// #endregion metrics-endpoint
