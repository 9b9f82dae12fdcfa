package types

import "time"

// Position represents one open exposure in one symbol.
//
// Side, EntryPrice, InitialStop, TP1, TP2 and RiskUnit are fixed at open.
// Quantity only ever shrinks (partial take-profits), CurrentStop only ever
// tightens, and the three booleans are one-way latches. The tick loop is the
// sole owner of a Position's mutable fields.
type Position struct {
	Symbol      string
	Side        Side
	EntryPrice  float64
	InitialStop float64
	TP1         float64
	TP2         float64

	// RiskUnit is |entry - initial stop| at open. Positions with a
	// non-positive risk unit are never created.
	RiskUnit float64

	Quantity    float64
	CurrentStop float64

	TP1Done          bool
	TP2Done          bool
	MovedToBreakEven bool

	BarsHeld int
	OpenTime time.Time
}

// TightenStop moves CurrentStop to level if and only if that tightens the
// stop: up for longs, down for shorts. Returns true when the stop moved.
// This is the monotonicity invariant of the trailing mechanism; the stop is
// never loosened.
func (p *Position) TightenStop(level float64) bool {
	if p.Side == SideLong {
		if level > p.CurrentStop {
			p.CurrentStop = level

			return true
		}

		return false
	}

	if level < p.CurrentStop {
		p.CurrentStop = level

		return true
	}

	return false
}

// FavorableMove returns how far price has moved in the position's favor
// since entry. Negative when the position is under water.
func (p *Position) FavorableMove(price float64) float64 {
	return (price - p.EntryPrice) * p.Side.Sign()
}

// StopHit reports whether price has crossed the current stop level.
func (p *Position) StopHit(price float64) bool {
	if p.Side == SideLong {
		return price <= p.CurrentStop
	}

	return price >= p.CurrentStop
}

// TargetHit reports whether price has reached the given take-profit level.
func (p *Position) TargetHit(price, target float64) bool {
	if p.Side == SideLong {
		return price >= target
	}

	return price <= target
}
