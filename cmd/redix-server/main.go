// Command redix-server is the process entry point: it loads
// configuration, wires every long-lived collaborator together, starts the
// RESP listener and the metrics HTTP mux, and waits for SIGINT/SIGTERM to
// shut down cleanly (SPEC_FULL.md §10). Structure follows the teacher's
// cmd/server/main.go: flag parsing, logger construction, dependency
// wiring, then signal.NotifyContext-driven graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vivekkdagar/redix/internal/config"
	"github.com/vivekkdagar/redix/internal/dispatcher"
	"github.com/vivekkdagar/redix/internal/keyspace"
	"github.com/vivekkdagar/redix/internal/logging"
	"github.com/vivekkdagar/redix/internal/metrics"
	"github.com/vivekkdagar/redix/internal/pubsub"
	"github.com/vivekkdagar/redix/internal/replication"
	"github.com/vivekkdagar/redix/internal/resp"
	"github.com/vivekkdagar/redix/internal/session"
	"github.com/vivekkdagar/redix/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "redix-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	metricsRegistry := metrics.NewRegistry()
	ks := keyspace.New(cfg.Server.NumDBs)
	ps := pubsub.NewHub()
	replRegistry := replication.NewRegistry()
	sessHub := session.NewHub(metricsRegistry)

	d := dispatcher.New(ks, ps, replRegistry, metricsRegistry, logger)
	d.ConfigDir = cfg.Server.Dir
	d.ConfigDBFilename = cfg.Server.DBFilename
	d.ListenPort = cfg.Server.Port
	d.IsReplica = cfg.IsReplica()

	srv := transport.NewServer(cfg, logger, sessHub, d, ks, ps, replRegistry, metricsRegistry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return err
	}

	var metricsHTTP *http.Server
	if cfg.Metrics.Enabled {
		metricsHTTP = startMetricsServer(cfg, metricsRegistry, logger)
	}

	if cfg.IsReplica() {
		go runReplicaClient(ctx, cfg, d, logger)
	}

	logger.Info("redix-server ready",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("replica", cfg.IsReplica()),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	srv.Stop()
	if metricsHTTP != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsHTTP.Shutdown(shutdownCtx)
	}
	return nil
}

// startMetricsServer runs the Prometheus /metrics endpoint on its own
// listener, the way the teacher keeps its metrics mux independent of the
// main protocol listener.
func startMetricsServer(cfg config.Config, m *metrics.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Endpoint, m.Handler())

	srv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", cfg.Metrics.ListenAddr), zap.String("path", cfg.Metrics.Endpoint))
	return srv
}

// runReplicaClient drives this process's replication.Client for as long as
// the process runs, reconnecting after a backoff if the master connection
// drops (spec.md §4.6 names no reconnect policy; dropping the link and
// retrying is the conservative reading, matching real Redis's reconnect
// behavior rather than giving up permanently).
func runReplicaClient(ctx context.Context, cfg config.Config, d *dispatcher.Dispatcher, logger *zap.Logger) {
	applySess := session.New()
	apply := func(args []string) error {
		reply := d.Dispatch(applySess, args)
		if reply.Kind == resp.Error {
			return fmt.Errorf("replica apply: %s", reply.Str)
		}
		return nil
	}

	client := &replication.Client{
		MasterHost:    cfg.Replicaof.Host,
		MasterPort:    cfg.Replicaof.Port,
		ListeningPort: cfg.Server.Port,
		Apply:         apply,
		Logger:        logger,
	}

	for {
		if ctx.Err() != nil {
			return
		}
		if err := client.Run(); err != nil {
			logger.Warn("replication link dropped", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
