// Package app wires the matching engine's dependency graph with
// go.uber.org/fx: logger, config, directory, metrics, bus, engine and
// report writer. Grounded on
// internal/trading/matching/lazy/module.go's fx.Options(fx.Provide(...))
// shape, flattened from that file's lazy-loading/adaptive-metrics/
// initialization-manager machinery — infrastructure built to amortize
// cold starts across dozens of independently-deployed services, which a
// single in-process matching core has no use for.
package app

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lattice-trading/matchcore/internal/config"
	"github.com/lattice-trading/matchcore/internal/matching/bus"
	"github.com/lattice-trading/matchcore/internal/matching/directory"
	"github.com/lattice-trading/matchcore/internal/matching/engine"
	"github.com/lattice-trading/matchcore/internal/matching/metrics"
	"github.com/lattice-trading/matchcore/internal/matching/report"
)

// ConfigPath is an fx-injectable override for where config.Load looks
// for config.yaml; the zero value lets config.Load fall back to its own
// default search path.
type ConfigPath string

// Module provides every matchcore component the Driver needs.
var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideLogger),
	fx.Provide(provideSideBookCapacity),
	fx.Provide(directory.New),
	fx.Provide(func() *metrics.Metrics { return metrics.New() }),
	fx.Provide(bus.New),
	fx.Provide(engine.New),
	fx.Provide(provideReportWriter),
)

// provideReportWriter honors cfg.Report.Compress (§C7's "optionally
// compressed sink"): when set, events render through a gzip-compressing
// sink wrapping stdout, and the gzip footer is written by closing it on
// shutdown; otherwise stdout is written to directly.
func provideReportWriter(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) *report.Writer {
	if !cfg.Report.Compress {
		return report.New(os.Stdout, logger)
	}

	w, gz := report.NewGzip(os.Stdout, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := w.Flush(); err != nil {
				return err
			}
			return gz.Close()
		},
	})
	return w
}

func provideConfig(path ConfigPath) (*config.Config, error) {
	return config.Load(string(path))
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return config.NewLogger(cfg)
}

// provideSideBookCapacity lets directory.New (which wants a plain int)
// receive the capacity out of the loaded config instead of a fixed
// constant, without directory importing the config package itself.
func provideSideBookCapacity(cfg *config.Config) int {
	return cfg.Engine.SideBookCapacity
}
