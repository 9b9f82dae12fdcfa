// Package backtest replays historical bars through the portfolio
// controller. The replay path and the live path share every decision
// component; only the bar feed differs.
package backtest

import (
	"context"
	"sort"
	"time"

	"github.com/riptide-labs/riptide/internal/config"
	"github.com/riptide-labs/riptide/internal/datasource"
	"github.com/riptide-labs/riptide/internal/engine/ledger"
	"github.com/riptide-labs/riptide/internal/engine/portfolio"
	"github.com/riptide-labs/riptide/internal/logger"
	"github.com/riptide-labs/riptide/internal/strategy"
	"github.com/riptide-labs/riptide/internal/types"
	"github.com/riptide-labs/riptide/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// Result is the outcome of one backtest run.
type Result struct {
	Performance ledger.Performance
	Ticks       int
}

// Engine runs one backtest: load bars, prepare signals, replay ticks,
// export results.
type Engine struct {
	cfg        config.Config
	strat      strategy.Strategy
	dataDir    string
	resultsDir string
	log        *logger.Logger
}

// NewEngine creates a backtest engine. Bars are read from
// dataDir/{SYMBOL}.csv and results are written under resultsDir.
func NewEngine(cfg config.Config, strat strategy.Strategy, dataDir, resultsDir string, log *logger.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		strat:      strat,
		dataDir:    dataDir,
		resultsDir: resultsDir,
		log:        log,
	}
}

// Run executes the full backtest. It honors ctx cancellation between ticks.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	htfInterval, err := types.ParseInterval(e.cfg.HTFInterval)
	if err != nil {
		return Result{}, err
	}

	ltfInterval, err := types.ParseInterval(e.cfg.Interval)
	if err != nil {
		return Result{}, err
	}

	source, err := datasource.NewCSVSource(e.dataDir, e.log)
	if err != nil {
		return Result{}, err
	}
	defer source.Close()

	history, err := source.ReadAll(e.cfg.Symbols)
	if err != nil {
		return Result{}, err
	}

	signals := make(map[string]map[time.Time]types.SignalBar, len(history))

	for sym, bars := range history {
		bars = e.clipWindow(bars)
		if len(bars) == 0 {
			return Result{}, errors.Newf(errors.ErrCodeDataNotFound, "no bars for %s inside the configured window", sym)
		}

		prepared, err := e.strat.Prepare(bars, strategy.ResampleHTF(bars, htfInterval))
		if err != nil {
			return Result{}, err
		}

		bySymbol := make(map[time.Time]types.SignalBar, len(prepared))
		for _, sig := range prepared {
			bySymbol[sig.Time] = sig
		}

		signals[sym] = bySymbol
	}

	ticks := commonTimestamps(signals)
	if len(ticks) == 0 {
		return Result{}, errors.New(errors.ErrCodeNoCommonBars, "symbols share no common bar timestamps")
	}

	events, err := ledger.NewEquityLedger(":memory:", e.log)
	if err != nil {
		return Result{}, err
	}
	defer events.Close()

	if err := events.Initialize(); err != nil {
		return Result{}, err
	}

	controller := portfolio.NewController(e.cfg, events, e.log)

	e.log.Info("Starting backtest",
		zap.Strings("symbols", e.cfg.Symbols),
		zap.Int("ticks", len(ticks)),
		zap.String("strategy", e.strat.Name()),
	)

	bar := progressbar.Default(int64(len(ticks)), "replaying bars")

	for _, ts := range ticks {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		snapshots := make(map[string]types.SignalBar, len(signals))
		for sym, bySymbol := range signals {
			snapshots[sym] = bySymbol[ts]
		}

		if err := controller.ProcessTick(ts, snapshots); err != nil {
			return Result{}, err
		}

		_ = bar.Add(1)
	}

	perf, err := events.Performance(e.cfg.InitialCapital, periodsPerYear(ltfInterval))
	if err != nil {
		return Result{}, err
	}

	if e.resultsDir != "" {
		if err := events.Write(e.resultsDir); err != nil {
			return Result{}, err
		}
	}

	e.log.Info("Backtest finished",
		zap.Float64("final_equity", perf.FinalEquity),
		zap.Float64("total_return_pct", perf.TotalReturnPct),
		zap.Float64("max_drawdown_pct", perf.MaxDrawdownPct),
		zap.Int("trades", perf.TotalTrades),
	)

	return Result{Performance: perf, Ticks: len(ticks)}, nil
}

// clipWindow applies the configured start/end bounds to a bar series.
func (e *Engine) clipWindow(bars []types.Bar) []types.Bar {
	start, end := e.cfg.Window()

	out := bars[:0:0]

	for _, bar := range bars {
		if start.IsSome() && bar.Time.Before(start.Unwrap()) {
			continue
		}

		if end.IsSome() && bar.Time.After(end.Unwrap()) {
			continue
		}

		out = append(out, bar)
	}

	return out
}

// commonTimestamps intersects the signal timestamps of all symbols, sorted
// ascending. Every symbol must have a snapshot on every replayed tick so the
// portfolio sees a consistent market view.
func commonTimestamps(signals map[string]map[time.Time]types.SignalBar) []time.Time {
	var common map[time.Time]struct{}

	for _, bySymbol := range signals {
		if common == nil {
			common = make(map[time.Time]struct{}, len(bySymbol))
			for ts := range bySymbol {
				common[ts] = struct{}{}
			}

			continue
		}

		for ts := range common {
			if _, ok := bySymbol[ts]; !ok {
				delete(common, ts)
			}
		}
	}

	out := make([]time.Time, 0, len(common))
	for ts := range common {
		out = append(out, ts)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })

	return out
}

// periodsPerYear converts the bar interval into the annualization factor
// used for the Sharpe ratio.
func periodsPerYear(interval time.Duration) float64 {
	return float64(365 * 24 * time.Hour / interval)
}
