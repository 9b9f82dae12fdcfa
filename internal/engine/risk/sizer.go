// Package risk converts a stop distance and price into a bounded order
// quantity under the portfolio's risk budget.
package risk

import "math"

// Sizer computes order quantities from equity, a per-trade risk fraction and
// a notional cap. It is a pure value; sizing has no side effects.
type Sizer struct {
	// RiskPerTrade is the fraction of equity risked per R.
	RiskPerTrade float64
	// MaxPositionPct caps the position notional as a fraction of equity.
	MaxPositionPct float64
	// LotStep is the quantity step the result is floored to.
	LotStep float64
}

// NewSizer returns a Sizer. A non-positive lotStep falls back to 1e-6.
func NewSizer(riskPerTrade, maxPositionPct, lotStep float64) Sizer {
	if lotStep <= 0 {
		lotStep = 1e-6
	}

	return Sizer{
		RiskPerTrade:   riskPerTrade,
		MaxPositionPct: maxPositionPct,
		LotStep:        lotStep,
	}
}

// PositionSize returns the order quantity for a trade risking stopDistance
// per unit at entryPrice, bounded by the notional cap and floored to the lot
// step. Returns 0 when sizing is undefined (non-positive stop distance or
// entry price); the caller must treat a zero quantity as a rejected entry.
func (s Sizer) PositionSize(equity, entryPrice, stopDistance float64) float64 {
	if stopDistance <= 0 || entryPrice <= 0 {
		return 0
	}

	qtyByRisk := equity * s.RiskPerTrade / stopDistance
	qtyByCap := equity * s.MaxPositionPct / entryPrice

	qty := math.Min(qtyByRisk, qtyByCap)
	qty = math.Floor(qty/s.LotStep) * s.LotStep

	if qty < 0 {
		return 0
	}

	return qty
}
