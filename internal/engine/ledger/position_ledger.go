package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/riptide-labs/riptide/internal/engine/exit"
	"github.com/riptide-labs/riptide/internal/logger"
	"github.com/riptide-labs/riptide/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Fill is one realized outcome emitted by the per-bar update pass.
type Fill struct {
	Event types.TradeEvent
	// RCredit is the signed R-multiple this fill contributes to the daily
	// risk budget: +r1_R for TP1, +r2_R for TP2, exactly -1 for SL, and the
	// realized R-multiple for TIME exits.
	RCredit float64
	// Closed is true when this fill removed the position from the open set.
	Closed bool
	// Loss is true for a closing fill that realized a negative PnL.
	Loss bool
}

// PositionLedger owns the set of currently open positions and runs each
// position's exit state machine once per bar. PnL is realized into the
// running equity passed through UpdateAll; the ledger itself never talks to
// storage.
type PositionLedger struct {
	log       *logger.Logger
	policy    *exit.Policy
	positions map[string]*types.Position
}

// NewPositionLedger creates an empty position ledger.
func NewPositionLedger(policy *exit.Policy, log *logger.Logger) *PositionLedger {
	return &PositionLedger{
		log:       log,
		policy:    policy,
		positions: make(map[string]*types.Position),
	}
}

// Open adds a new position to the open set. The caller guarantees the
// position's risk unit is positive and its quantity non-zero.
func (l *PositionLedger) Open(pos *types.Position) {
	l.positions[pos.Symbol] = pos
}

// Has reports whether a position is open for the symbol.
func (l *PositionLedger) Has(symbol string) bool {
	_, ok := l.positions[symbol]

	return ok
}

// Count returns the number of open positions.
func (l *PositionLedger) Count() int {
	return len(l.positions)
}

// Get returns a copy of the open position for symbol, if any.
func (l *PositionLedger) Get(symbol string) optional.Option[types.Position] {
	pos, ok := l.positions[symbol]
	if !ok {
		return optional.None[types.Position]()
	}

	return optional.Some(*pos)
}

// Symbols returns the open symbols in deterministic order.
func (l *PositionLedger) Symbols() []string {
	symbols := make([]string, 0, len(l.positions))
	for sym := range l.positions {
		symbols = append(symbols, sym)
	}

	sort.Strings(symbols)

	return symbols
}

// UpdateAll runs the per-bar state machine for every open position that has
// a snapshot this tick, in deterministic symbol order. It returns the fills
// emitted (in emission order) and the equity after all realized PnL.
// Positions marked for removal are deleted only after the full pass, so the
// iteration set is never mutated mid-pass. A symbol with no snapshot this
// tick is skipped untouched.
func (l *PositionLedger) UpdateAll(ts time.Time, snapshots map[string]types.SignalBar, equity float64) ([]Fill, float64) {
	var fills []Fill

	var toClose []string

	for _, sym := range l.Symbols() {
		bar, ok := snapshots[sym]
		if !ok {
			continue
		}

		pos := l.positions[sym]

		posFills, newEquity, remove := l.updatePosition(ts, bar, pos, equity)
		fills = append(fills, posFills...)
		equity = newEquity

		if remove {
			toClose = append(toClose, sym)
		}
	}

	for _, sym := range toClose {
		delete(l.positions, sym)
	}

	return fills, equity
}

// updatePosition applies one bar to one position in fixed order: trail,
// break-even, TP1, TP2, time-stop, stop-loss. Later steps see the stop and
// quantity already updated by earlier steps. Multiple fills per bar are
// valid and keep emission order.
func (l *PositionLedger) updatePosition(ts time.Time, bar types.SignalBar, pos *types.Position, equity float64) ([]Fill, float64, bool) {
	var fills []Fill

	price := bar.Close

	// 1. Trailing stop. Only tightens, never loosens.
	if bar.HasATR() {
		trail := l.policy.TrailLevel(pos.Side, price, bar.ATR, pos.TP1Done)
		pos.TightenStop(trail)
	}

	// 2. Break-even latch.
	if !pos.MovedToBreakEven && bar.HasATR() && l.policy.BreakEvenReached(pos, price) {
		pos.TightenStop(pos.EntryPrice)
		pos.MovedToBreakEven = true
	}

	// 3. First take-profit: close p1_pct of current quantity.
	if !pos.TP1Done && pos.TargetHit(price, pos.TP1) {
		closeQty := pos.Quantity * l.policy.P1Pct()
		pnl := realizedPnL(pos.Side, pos.EntryPrice, price, closeQty)
		equity += pnl
		pos.Quantity -= closeQty
		pos.TP1Done = true

		fills = append(fills, Fill{
			Event:   l.newEvent(ts, pos, types.EventTP1, price, closeQty, pnl, equity),
			RCredit: l.policy.R1R(),
			Closed:  false,
			Loss:    false,
		})

		if pos.Quantity <= 0 {
			return fills, equity, true
		}
	}

	// 4. Second take-profit: close p2_pct of the already-reduced quantity.
	// TP2 alone never closes the position; the remainder rides the trailing
	// stop until SL or TIME.
	if !pos.TP2Done && pos.TargetHit(price, pos.TP2) {
		closeQty := pos.Quantity * l.policy.P2Pct()
		pnl := realizedPnL(pos.Side, pos.EntryPrice, price, closeQty)
		equity += pnl
		pos.Quantity -= closeQty
		pos.TP2Done = true

		fills = append(fills, Fill{
			Event:   l.newEvent(ts, pos, types.EventTP2, price, closeQty, pnl, equity),
			RCredit: l.policy.R2R(),
			Closed:  false,
			Loss:    false,
		})

		if pos.Quantity <= 0 {
			return fills, equity, true
		}
	}

	// 5. Time-stop. Positions that already banked TP2 are exempt; their
	// remainder is managed by the trailing stop alone.
	pos.BarsHeld++
	if pos.BarsHeld >= l.policy.MaxBarsInTrade() && !pos.TP2Done {
		pnl := realizedPnL(pos.Side, pos.EntryPrice, price, pos.Quantity)
		equity += pnl
		rMultiple := pos.FavorableMove(price) / pos.RiskUnit

		fills = append(fills, Fill{
			Event:   l.newEvent(ts, pos, types.EventTimeStop, price, pos.Quantity, pnl, equity),
			RCredit: rMultiple,
			Closed:  true,
			Loss:    pnl < 0,
		})

		l.log.Debug("Time-stop exit",
			zap.String("symbol", pos.Symbol),
			zap.Int("bars_held", pos.BarsHeld),
			zap.Float64("pnl", pnl),
		)

		return fills, equity, true
	}

	// 6. Stop-loss. Fills at the stop price exactly, not the bar close.
	if pos.StopHit(price) {
		exitPrice := pos.CurrentStop
		pnl := realizedPnL(pos.Side, pos.EntryPrice, exitPrice, pos.Quantity)
		equity += pnl

		fills = append(fills, Fill{
			Event:   l.newEvent(ts, pos, types.EventStopLoss, exitPrice, pos.Quantity, pnl, equity),
			RCredit: -1.0,
			Closed:  true,
			Loss:    true,
		})

		return fills, equity, true
	}

	return fills, equity, false
}

func (l *PositionLedger) newEvent(ts time.Time, pos *types.Position, eventType types.EventType, price, qty, pnl, equityAfter float64) types.TradeEvent {
	return types.TradeEvent{
		EventID:     uuid.New().String(),
		Time:        ts,
		Symbol:      pos.Symbol,
		Type:        eventType,
		Side:        pos.Side,
		Price:       price,
		Quantity:    qty,
		PnL:         optional.Some(pnl),
		EquityAfter: equityAfter,
	}
}

// realizedPnL computes the realized profit of closing qty units bought at
// entry and sold at exitPrice, using decimal arithmetic so that partial
// closes sum exactly to the whole.
func realizedPnL(side types.Side, entry, exitPrice, qty float64) float64 {
	move := decimal.NewFromFloat(exitPrice).Sub(decimal.NewFromFloat(entry))
	if side == types.SideShort {
		move = move.Neg()
	}

	pnl, _ := move.Mul(decimal.NewFromFloat(qty)).Float64()

	return pnl
}
