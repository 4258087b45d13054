// Command streamgen drives synthetic load against a Postgres-backed
// event store: a fixed number of streams receive messages at a target
// rate, with a configurable share of appends racing a stale expected
// version so the retry package's backoff path gets exercised too.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"github.com/streamstore-go/streamstore/config"
	"github.com/streamstore-go/streamstore/eventstore"
	"github.com/streamstore-go/streamstore/eventstore/oteladapters"
	"github.com/streamstore-go/streamstore/eventstore/postgresengine"
)

const (
	defaultRate           = 30
	defaultStreamCount    = 100
	defaultConflictShare  = 10
	defaultDurationSec    = 0 // 0 means run until interrupted
	shutdownGraceDuration = 10 * time.Second
)

type runConfig struct {
	rate          int
	streamCount   int
	conflictShare int
	durationSec   int
	observability bool
}

func main() {
	cfg := parseFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, mustPoolConfig())
	if err != nil {
		log.Fatalf("creating pgx pool: %v", err)
	}
	defer pool.Close()

	if err = pool.Ping(ctx); err != nil {
		log.Fatalf("pinging database: %v", err)
	}

	driver, err := postgresengine.NewPostgresDriverFromPGXPool(pool)
	if err != nil {
		log.Fatalf("creating driver: %v", err)
	}

	if err = driver.CreateSchema(ctx); err != nil {
		log.Fatalf("creating schema: %v", err)
	}

	store, err := eventstore.New(driver, observabilityOptions(cfg)...)
	if err != nil {
		log.Fatalf("creating event store: %v", err)
	}
	defer func() { _ = store.Close(context.Background()) }()

	gen := newGenerator(store, cfg)

	log.Printf("streamgen: rate=%d/s streams=%d conflict_share=%d%%", cfg.rate, cfg.streamCount, cfg.conflictShare)

	if cfg.durationSec > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, time.Duration(cfg.durationSec)*time.Second)
		defer timeoutCancel()
	}

	gen.run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGraceDuration)
	defer shutdownCancel()

	if err = store.Close(shutdownCtx); err != nil {
		log.Printf("error closing event store: %v", err)
	}

	log.Printf("streamgen: stopped after %d appends (%d appends failed after retrying)", gen.appends.Load(), gen.retries.Load())
}

func parseFlags() runConfig {
	rate := flag.Int("rate", defaultRate, "target appends per second")
	streamCount := flag.Int("streams", defaultStreamCount, "number of distinct streams to cycle through")
	conflictShare := flag.Int("conflict-share", defaultConflictShare, "percentage of appends that race a stale expected version")
	durationSec := flag.Int("duration", defaultDurationSec, "stop after this many seconds (0 = run until interrupted)")
	observability := flag.Bool("observability", false, "wire OpenTelemetry metrics/tracing/logging via oteladapters")

	flag.Parse()

	return runConfig{
		rate:          *rate,
		streamCount:   *streamCount,
		conflictShare: *conflictShare,
		durationSec:   *durationSec,
		observability: *observability,
	}
}

func mustPoolConfig() *pgxpool.Config {
	cfg, err := config.PostgresPGXPoolConfig()
	if err != nil {
		log.Fatalf("building pool config: %v", err)
	}

	return cfg
}

func observabilityOptions(cfg runConfig) []eventstore.Option {
	if !cfg.observability {
		return nil
	}

	tracer := otel.Tracer("streamgen")
	meter := otel.Meter("streamgen")

	return []eventstore.Option{
		eventstore.WithContextualLogger(oteladapters.NewSlogBridgeLogger("streamgen")),
		eventstore.WithMetrics(oteladapters.NewMetricsCollector(meter)),
		eventstore.WithTracing(oteladapters.NewTracingCollector(tracer)),
	}
}
