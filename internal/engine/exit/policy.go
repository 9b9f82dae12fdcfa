// Package exit computes the stop and take-profit levels of a position's
// lifecycle: the initial stop, two partial take-profit targets, the trailing
// stop and the break-even threshold.
package exit

import (
	"github.com/riptide-labs/riptide/internal/config"
	"github.com/riptide-labs/riptide/internal/types"
)

// Levels holds the levels fixed at position open.
type Levels struct {
	Stop float64
	TP1  float64
	TP2  float64
	// R is the risk unit: |entry - stop| at open.
	R float64
}

// Policy derives exit levels from the configured coefficients. It is
// stateless; it consumes a position snapshot and returns levels.
type Policy struct {
	cfg config.ExitConfig
}

// NewPolicy returns a Policy using the given coefficients.
func NewPolicy(cfg config.ExitConfig) *Policy {
	return &Policy{cfg: cfg}
}

// InitialLevels computes the stop, both take-profit targets and the risk
// unit for a new position. R is non-positive when atr is non-positive; the
// caller must reject such entries.
func (p *Policy) InitialLevels(side types.Side, entry, atr float64) Levels {
	sign := side.Sign()
	stop := entry - sign*p.cfg.KSL*atr
	r := (entry - stop) * sign

	return Levels{
		Stop: stop,
		TP1:  entry + sign*p.cfg.R1R*r,
		TP2:  entry + sign*p.cfg.R2R*r,
		R:    r,
	}
}

// TrailLevel computes the trailing-stop level for the current bar. The
// coefficient tightens once TP1 has fired. The caller applies the level via
// Position.TightenStop, which enforces that stops only ever tighten.
func (p *Policy) TrailLevel(side types.Side, price, atr float64, afterTP1 bool) float64 {
	k := p.cfg.KTrailBefore
	if afterTP1 {
		k = p.cfg.KTrailAfter
	}

	return price - side.Sign()*k*atr
}

// BreakEvenReached reports whether price has moved far enough in favor for
// the stop to be moved to the entry price.
func (p *Policy) BreakEvenReached(pos *types.Position, price float64) bool {
	return pos.FavorableMove(price) >= p.cfg.BeAfterR*pos.RiskUnit
}

// MaxBarsInTrade returns the time-stop threshold in bars.
func (p *Policy) MaxBarsInTrade() int {
	return p.cfg.MaxBarsInTrade
}

// P1Pct returns the fraction of current quantity closed at TP1.
func (p *Policy) P1Pct() float64 { return p.cfg.P1Pct }

// P2Pct returns the fraction of remaining quantity closed at TP2.
func (p *Policy) P2Pct() float64 { return p.cfg.P2Pct }

// R1R returns the TP1 level in R multiples, used as the daily R credit for a
// TP1 fill.
func (p *Policy) R1R() float64 { return p.cfg.R1R }

// R2R returns the TP2 level in R multiples, used as the daily R credit for a
// TP2 fill.
func (p *Policy) R2R() float64 { return p.cfg.R2R }
