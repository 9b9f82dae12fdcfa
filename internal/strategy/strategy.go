// Package strategy turns raw bar history into per-bar entry setups. A
// strategy is pure computation over history; it holds no position state and
// has no side effects, so the same strategy drives backtest replay and live
// polling.
package strategy

import (
	"github.com/riptide-labs/riptide/internal/types"
)

// Strategy computes the signal series for one symbol from aligned low- and
// high-timeframe history. Prepare returns one SignalBar per low-timeframe
// bar; warmup bars carry NaN ATR and no setups.
type Strategy interface {
	// Name returns the strategy identifier used in logs and results.
	Name() string

	// Prepare computes the full signal series. htf may be resampled from
	// ltf or fetched independently; it must cover the same time span.
	Prepare(ltf, htf []types.Bar) ([]types.SignalBar, error)
}
