package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tailored-agentic-units/broker/broker"
	"github.com/tailored-agentic-units/broker/cache"
	"github.com/tailored-agentic-units/broker/dispatcher"
	"github.com/tailored-agentic-units/broker/observability"
	"github.com/tailored-agentic-units/broker/remote"
)

var (
	serveAddr    string
	cacheBackend string
	cacheTTL     time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the built-in action catalog over connect",
	Long: `Start an HTTP server exposing the built-in actions as a connect
DispatchService, with Prometheus metrics on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&cacheBackend, "cache", "", "Result cache backend for math.* actions (bigcache, memory)")
	serveCmd.Flags().DurationVar(&cacheTTL, "cache-ttl", 0, "Result cache TTL (default 10m)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := loadOptions()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics("dispatch", registry)
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	otel.SetTracerProvider(tp)
	tracing := observability.NewTracing(tp.Tracer("github.com/tailored-agentic-units/broker"))

	opts = append(opts,
		dispatcher.WithListener(metrics.Listener()),
		dispatcher.WithListener(tracing.Listener()),
	)

	cacheCfg := cache.DefaultConfig()
	cacheCfg.Merge(&cache.Config{Backend: cacheBackend, TTL: cacheTTL})
	store, err := cache.NewStore(ctx, &cacheCfg)
	if err != nil {
		return err
	}

	b := broker.NewBuilder()
	registerBuiltinActions(b, store)
	brk, err := b.Build(opts...)
	if err != nil {
		return fmt.Errorf("build broker: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(remote.NewHandler(brk))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: serveAddr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", serveAddr, "actions", brk.ActionsList())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
