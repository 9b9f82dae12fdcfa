// Package portfolio orchestrates one engine tick: exit management for open
// positions, the daily-loss circuit breaker, per-symbol cooldowns and the
// entry scan. The same controller drives backtest replay and live polling.
package portfolio

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/riptide-labs/riptide/internal/config"
	"github.com/riptide-labs/riptide/internal/engine/exit"
	"github.com/riptide-labs/riptide/internal/engine/ledger"
	"github.com/riptide-labs/riptide/internal/engine/risk"
	"github.com/riptide-labs/riptide/internal/logger"
	"github.com/riptide-labs/riptide/internal/types"
	"go.uber.org/zap"
)

// Controller owns the portfolio state that persists across ticks: running
// equity, the daily R budget, the circuit breaker latch and per-symbol
// cooldown counters. It is not safe for concurrent use; callers feed it one
// tick at a time.
type Controller struct {
	cfg    config.Config
	log    *logger.Logger
	sizer  risk.Sizer
	policy *exit.Policy

	positions *ledger.PositionLedger
	events    *ledger.EquityLedger

	equity         float64
	dailyR         float64
	breakerTripped bool
	currentDay     time.Time
	cooldowns      map[string]int
}

// NewController wires a controller from its parts. The equity ledger must
// already be initialized.
func NewController(cfg config.Config, events *ledger.EquityLedger, log *logger.Logger) *Controller {
	policy := exit.NewPolicy(cfg.Exit)

	return &Controller{
		cfg:       cfg,
		log:       log,
		sizer:     risk.NewSizer(cfg.RiskPerTrade, cfg.MaxPositionPct, cfg.LotStep),
		policy:    policy,
		positions: ledger.NewPositionLedger(policy, log),
		events:    events,
		equity:    cfg.InitialCapital,
		cooldowns: make(map[string]int),
	}
}

// ProcessTick runs one full engine tick against the per-symbol snapshots:
// day-boundary reset, exit pass, breaker latch, cooldown pass, entry scan,
// equity snapshot. Symbols missing from snapshots are skipped everywhere
// this tick; their positions and cooldowns are untouched.
func (c *Controller) ProcessTick(ts time.Time, snapshots map[string]types.SignalBar) error {
	c.rollDay(ts)

	if err := c.manageExits(ts, snapshots); err != nil {
		return err
	}

	if !c.breakerTripped && c.dailyR <= c.cfg.DailyLossCapR {
		c.breakerTripped = true
		c.log.Warn("Daily loss cap reached, entries halted for the day",
			zap.Float64("daily_r", c.dailyR),
			zap.Float64("cap_r", c.cfg.DailyLossCapR),
			zap.Time("time", ts),
		)
	}

	blocked := c.tickCooldowns(snapshots)

	if !c.breakerTripped {
		if err := c.scanEntries(ts, snapshots, blocked); err != nil {
			return err
		}
	}

	return c.events.AppendEquity(types.EquityPoint{Time: ts, Equity: c.equity})
}

// rollDay resets the daily R budget and the breaker latch when the bar
// timestamp crosses a calendar-day boundary (UTC). The breaker is a one-way
// latch within a day: intraday recovery never re-enables entries.
func (c *Controller) rollDay(ts time.Time) {
	day := ts.Truncate(24 * time.Hour)
	if day.Equal(c.currentDay) {
		return
	}

	c.currentDay = day
	c.dailyR = 0
	c.breakerTripped = false
}

// manageExits runs the exit state machine over all open positions, records
// every fill, accumulates daily R credits and arms cooldowns on losing
// closes.
func (c *Controller) manageExits(ts time.Time, snapshots map[string]types.SignalBar) error {
	fills, equity := c.positions.UpdateAll(ts, snapshots, c.equity)
	c.equity = equity

	for _, fill := range fills {
		if err := c.events.AppendEvent(fill.Event); err != nil {
			return err
		}

		c.dailyR += fill.RCredit

		if fill.Closed && fill.Loss && c.cfg.CooldownBarsAfterLoss > 0 {
			c.cooldowns[fill.Event.Symbol] = c.cfg.CooldownBarsAfterLoss
		}
	}

	return nil
}

// tickCooldowns decrements the cooldown of every flat symbol that has a
// snapshot this tick and returns the set of symbols still blocked. A symbol
// is blocked by its counter value before the decrement, so a cooldown of n
// blocks n bars starting with the bar the position closed on.
func (c *Controller) tickCooldowns(snapshots map[string]types.SignalBar) map[string]bool {
	blocked := make(map[string]bool)

	for sym, remaining := range c.cooldowns {
		if remaining <= 0 {
			delete(c.cooldowns, sym)
			continue
		}

		if c.positions.Has(sym) {
			continue
		}

		if _, ok := snapshots[sym]; !ok {
			continue
		}

		blocked[sym] = true

		c.cooldowns[sym] = remaining - 1
		if c.cooldowns[sym] == 0 {
			delete(c.cooldowns, sym)
		}
	}

	return blocked
}

// scanEntries walks the configured symbols in order and opens positions for
// actionable signals until the concurrency cap is hit.
func (c *Controller) scanEntries(ts time.Time, snapshots map[string]types.SignalBar, blocked map[string]bool) error {
	for _, sym := range c.cfg.Symbols {
		if c.positions.Count() >= c.cfg.MaxConcurrentPositions {
			break
		}

		if c.positions.Has(sym) || blocked[sym] {
			continue
		}

		bar, ok := snapshots[sym]
		if !ok || !bar.HasATR() {
			continue
		}

		side, ok := bar.Signal()
		if !ok {
			continue
		}

		levels := c.policy.InitialLevels(side, bar.Close, bar.ATR)
		if levels.R <= 0 {
			continue
		}

		qty := c.sizer.PositionSize(c.equity, bar.Close, levels.R)
		if qty <= 0 {
			continue
		}

		pos := &types.Position{
			Symbol:      sym,
			Side:        side,
			EntryPrice:  bar.Close,
			InitialStop: levels.Stop,
			TP1:         levels.TP1,
			TP2:         levels.TP2,
			RiskUnit:    levels.R,
			Quantity:    qty,
			CurrentStop: levels.Stop,
			OpenTime:    ts,
		}
		c.positions.Open(pos)

		enter := types.TradeEvent{
			EventID:     uuid.New().String(),
			Time:        ts,
			Symbol:      sym,
			Type:        types.EventEnter,
			Side:        side,
			Price:       bar.Close,
			Quantity:    qty,
			PnL:         optional.None[float64](),
			EquityAfter: c.equity,
		}
		if err := c.events.AppendEvent(enter); err != nil {
			return err
		}

		c.log.Info("Opened position",
			zap.String("symbol", sym),
			zap.String("side", string(side)),
			zap.Float64("price", bar.Close),
			zap.Float64("qty", qty),
			zap.Float64("stop", levels.Stop),
			zap.Float64("risk_unit", levels.R),
		)
	}

	return nil
}

// Equity returns the current running equity.
func (c *Controller) Equity() float64 {
	return c.equity
}

// DailyR returns the accumulated daily R budget.
func (c *Controller) DailyR() float64 {
	return c.dailyR
}

// BreakerTripped reports whether the daily-loss breaker has latched today.
func (c *Controller) BreakerTripped() bool {
	return c.breakerTripped
}

// OpenPositionCount returns the number of open positions.
func (c *Controller) OpenPositionCount() int {
	return c.positions.Count()
}

// Position returns a copy of the open position for symbol, if any.
func (c *Controller) Position(symbol string) optional.Option[types.Position] {
	return c.positions.Get(symbol)
}

// CooldownRemaining returns the cooldown bars left for a symbol.
func (c *Controller) CooldownRemaining(symbol string) int {
	return c.cooldowns[symbol]
}
