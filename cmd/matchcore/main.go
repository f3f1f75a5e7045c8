// Command matchcore reads a line-oriented order stream and runs it
// through the matching engine, rendering results to stdout. It is the
// Driver (SPEC_FULL.md §4.8/C8): the only component in this module
// allowed to call os.Exit, and the one that bootstraps the fx DI graph.
//
// Grounded on cmd/marketdata/main.go's fx.New(Module, fx.Invoke(...));
// app.Run() pattern, adapted from a long-running gRPC server lifecycle
// to a batch job that starts on OnStart and calls Shutdown once the
// input stream reaches EOF.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"golang.org/x/time/rate"

	"github.com/lattice-trading/matchcore/internal/app"
	"github.com/lattice-trading/matchcore/internal/config"
	"github.com/lattice-trading/matchcore/internal/driver"
	"github.com/lattice-trading/matchcore/internal/matching/bus"
	"github.com/lattice-trading/matchcore/internal/matching/engine"
	"github.com/lattice-trading/matchcore/internal/matching/metrics"
	"github.com/lattice-trading/matchcore/internal/matching/report"
)

func main() {
	configPath := flag.String("config", "", "directory containing config.yaml")
	inputPath := flag.String("input", "", "input file (defaults to stdin)")
	flag.Parse()

	src, closeSrc, err := openInput(*inputPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeSrc()

	var exitCode int

	fxApp := fx.New(
		fx.Supply(app.ConfigPath(*configPath)),
		app.Module,
		fx.Invoke(func(lc fx.Lifecycle, shutdowner fx.Shutdowner, eng *engine.Engine, eb *bus.EventBus, w *report.Writer, m *metrics.Metrics, cfg *config.Config, logger *zap.Logger) {
			runID := uuid.New().String()
			logger.Info("matchcore: starting run", zap.String("run_id", runID))

			reportCtx, cancelReport := context.WithCancel(context.Background())

			// Subscribe before either the report writer or the driver
			// starts running: gochannel is non-persistent, so an event
			// published before a subscriber is registered is dropped, not
			// queued. Subscribing here, synchronously, before any
			// goroutine exists to publish anything, rules that race out
			// entirely (the same ordering engine_test.go's
			// newTestEngine helper uses).
			events, err := eb.Subscribe(reportCtx)
			if err != nil {
				logger.Error("report: subscribe failed", zap.Error(err))
				cancelReport()
				return
			}

			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					writerDone := make(chan struct{})
					go func() {
						defer close(writerDone)
						limiter := rate.NewLimiter(rate.Limit(cfg.Report.FlushPerSecond), 1)
						if err := w.RunChannel(reportCtx, events, limiter); err != nil {
							logger.Error("report: writer stopped", zap.Error(err))
						}
					}()
					go runDriver(context.Background(), eng, cfg, logger, src, shutdowner, &exitCode, func() {
						eb.Close()
						cancelReport()
						<-writerDone
					})
					return nil
				},
				OnStop: func(ctx context.Context) error {
					cancelReport()
					logger.Info("matchcore: metrics at shutdown", zap.String("run_id", runID), zap.String("metrics", m.Dump()))
					return nil
				},
			})
		}),
		fx.NopLogger,
	)

	fxApp.Run()

	if err := fxApp.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func runDriver(ctx context.Context, eng *engine.Engine, cfg *config.Config, logger *zap.Logger, src *os.File, shutdowner fx.Shutdowner, exitCode *int, done func()) {
	defer func() { _ = shutdowner.Shutdown() }()
	defer done()

	d := driver.New(eng, logger, driver.WithRateLimit(cfg.Input.RateLimitPerSecond, cfg.Input.RateLimitBurst))
	if err := d.Run(ctx, src); err != nil {
		logger.Error("driver: fatal error, stopping", zap.Error(err))
		*exitCode = 1
		return
	}

	processed, rejected := d.Stats()
	logger.Info("driver: finished", zap.Uint64("processed", processed), zap.Uint64("rejected", rejected))
}

func openInput(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("matchcore: open input %q: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
