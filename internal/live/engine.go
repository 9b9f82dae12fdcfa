// Package live drives the portfolio controller from exchange polling. Each
// poll fetches fresh history per symbol, recomputes the signal series and
// feeds the controller one tick when at least one symbol has a new closed
// bar. The decision path is byte-for-byte the backtest's; only the feed
// differs.
package live

import (
	"context"
	"time"

	"github.com/riptide-labs/riptide/internal/config"
	"github.com/riptide-labs/riptide/internal/engine/ledger"
	"github.com/riptide-labs/riptide/internal/engine/portfolio"
	"github.com/riptide-labs/riptide/internal/logger"
	"github.com/riptide-labs/riptide/internal/strategy"
	"github.com/riptide-labs/riptide/internal/types"
	"github.com/riptide-labs/riptide/pkg/errors"
	"github.com/riptide-labs/riptide/pkg/marketdata"
	"go.uber.org/zap"
)

const defaultHistoryBars = 600

// Options bound a live run.
type Options struct {
	// PollInterval is the sleep between exchange polls.
	PollInterval time.Duration
	// MaxRunDuration stops the engine after this much wall time. Zero
	// means run until the context is cancelled.
	MaxRunDuration time.Duration
	// HistoryBars is how many bars to fetch per symbol and timeframe.
	HistoryBars int
}

// Engine is the live trading loop.
type Engine struct {
	cfg        config.Config
	provider   marketdata.Provider
	strat      strategy.Strategy
	events     *ledger.EquityLedger
	controller *portfolio.Controller
	log        *logger.Logger
	opts       Options

	symbols     []string
	lastBarSeen map[string]time.Time
}

// NewEngine wires a live engine. The equity ledger must be initialized.
func NewEngine(cfg config.Config, provider marketdata.Provider, strat strategy.Strategy, events *ledger.EquityLedger, log *logger.Logger, opts Options) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 15 * time.Second
	}

	if opts.HistoryBars <= 0 {
		opts.HistoryBars = defaultHistoryBars
	}

	return &Engine{
		cfg:         cfg,
		provider:    provider,
		strat:       strat,
		events:      events,
		controller:  portfolio.NewController(cfg, events, log),
		log:         log,
		opts:        opts,
		lastBarSeen: make(map[string]time.Time),
	}
}

// Run validates the configured symbols against the venue and polls until
// the context is cancelled or the run duration elapses.
func (e *Engine) Run(ctx context.Context) error {
	valid, err := e.provider.ValidSymbols(ctx, e.cfg.Symbols)
	if err != nil {
		return err
	}

	if len(valid) == 0 {
		return errors.New(errors.ErrCodeNoSymbols, "none of the configured symbols are tradable on the venue")
	}

	if len(valid) < len(e.cfg.Symbols) {
		e.log.Warn("Dropped unsupported symbols",
			zap.Strings("requested", e.cfg.Symbols),
			zap.Strings("valid", valid),
		)
	}

	e.symbols = valid

	e.log.Info("Starting live engine",
		zap.Strings("symbols", e.symbols),
		zap.String("interval", e.cfg.Interval),
		zap.Duration("poll_interval", e.opts.PollInterval),
	)

	deadline := time.Time{}
	if e.opts.MaxRunDuration > 0 {
		deadline = time.Now().Add(e.opts.MaxRunDuration)
	}

	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	for {
		if err := e.poll(ctx); err != nil {
			return err
		}

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			e.log.Info("Run duration elapsed, stopping")

			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll fetches fresh history for every symbol and processes one tick if any
// symbol closed a new bar. Per-symbol fetch or prepare failures skip that
// symbol for this poll; they never kill the loop.
func (e *Engine) poll(ctx context.Context) error {
	snapshots := make(map[string]types.SignalBar, len(e.symbols))

	progressed := false

	var tickTime time.Time

	for _, sym := range e.symbols {
		sig, ok := e.fetchSnapshot(ctx, sym)
		if !ok {
			continue
		}

		snapshots[sym] = sig

		if !e.lastBarSeen[sym].Equal(sig.Time) {
			e.lastBarSeen[sym] = sig.Time
			progressed = true

			if sig.Time.After(tickTime) {
				tickTime = sig.Time
			}
		}
	}

	if !progressed {
		return nil
	}

	return e.controller.ProcessTick(tickTime, snapshots)
}

// fetchSnapshot fetches both timeframes for one symbol and returns the
// latest closed signal bar.
func (e *Engine) fetchSnapshot(ctx context.Context, sym string) (types.SignalBar, bool) {
	ltf, err := e.provider.FetchBars(ctx, sym, e.cfg.Interval, e.opts.HistoryBars)
	if err != nil {
		e.log.Warn("Failed to fetch bars, skipping symbol this poll",
			zap.String("symbol", sym),
			zap.Error(err),
		)

		return types.SignalBar{}, false
	}

	htf, err := e.provider.FetchBars(ctx, sym, e.cfg.HTFInterval, e.opts.HistoryBars)
	if err != nil {
		e.log.Warn("Failed to fetch HTF bars, skipping symbol this poll",
			zap.String("symbol", sym),
			zap.Error(err),
		)

		return types.SignalBar{}, false
	}

	// The newest bar is still forming; decisions are made on closed bars
	// only.
	if len(ltf) < 2 {
		return types.SignalBar{}, false
	}

	ltf = ltf[:len(ltf)-1]

	signals, err := e.strat.Prepare(ltf, htf)
	if err != nil || len(signals) == 0 {
		e.log.Warn("Failed to prepare signals, skipping symbol this poll",
			zap.String("symbol", sym),
			zap.Error(err),
		)

		return types.SignalBar{}, false
	}

	return signals[len(signals)-1], true
}

// Controller exposes the portfolio state for reporting.
func (e *Engine) Controller() *portfolio.Controller {
	return e.controller
}
