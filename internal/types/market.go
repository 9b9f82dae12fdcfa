package types

import (
	"math"
	"time"
)

// Bar is one OHLCV row for a symbol at a timestamp.
type Bar struct {
	Time   time.Time `csv:"time" yaml:"time" json:"time"`
	Open   float64   `csv:"open" yaml:"open" json:"open"`
	High   float64   `csv:"high" yaml:"high" json:"high"`
	Low    float64   `csv:"low" yaml:"low" json:"low"`
	Close  float64   `csv:"close" yaml:"close" json:"close"`
	Volume float64   `csv:"volume" yaml:"volume" json:"volume"`
}

// SignalBar is the per-bar contract the engine consumes for one symbol:
// the close price, a volatility measure, and the strategy's entry flags.
// ATR is NaN when the indicator has not warmed up or the data is missing.
type SignalBar struct {
	Time       time.Time `csv:"time"`
	Close      float64   `csv:"close"`
	ATR        float64   `csv:"atr"`
	LongSetup  bool      `csv:"long_setup"`
	ShortSetup bool      `csv:"short_setup"`
}

// HasATR reports whether the bar carries a usable volatility measure.
// A missing or non-positive ATR disables trailing, break-even and entries
// for the symbol on this bar.
func (s SignalBar) HasATR() bool {
	return !math.IsNaN(s.ATR) && s.ATR > 0
}

// Signal returns the entry direction for this bar. Simultaneous long and
// short setups are treated as no signal; the upstream strategy is expected
// to guarantee mutual exclusivity.
func (s SignalBar) Signal() (Side, bool) {
	if s.LongSetup == s.ShortSetup {
		return "", false
	}

	if s.LongSetup {
		return SideLong, true
	}

	return SideShort, true
}
