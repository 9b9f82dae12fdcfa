// Package marketdata fetches bar history from exchange APIs for the live
// engine. Backtests read local files instead; both paths produce the same
// Bar type.
package marketdata

import (
	"context"

	"github.com/riptide-labs/riptide/internal/types"
)

// Provider serves bar history and symbol validation for live runs.
type Provider interface {
	// FetchBars returns up to limit most recent bars for the symbol at the
	// given interval, oldest first. The last bar may still be forming.
	FetchBars(ctx context.Context, symbol, interval string, limit int) ([]types.Bar, error)

	// ValidSymbols filters requested down to the symbols the venue
	// actually trades, preserving order.
	ValidSymbols(ctx context.Context, requested []string) ([]string, error)
}
