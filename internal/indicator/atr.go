package indicator

import (
	"github.com/riptide-labs/riptide/internal/types"
)

// ATR computes the Average True Range over bars using Wilder smoothing.
// The first period-1 values are NaN.
func ATR(bars []types.Bar, period int) ([]float64, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}

	out := wilderSmooth(trueRange(bars), period)

	// The smoothed value is not meaningful until a full period has passed.
	for i := 0; i < period-1 && i < len(out); i++ {
		out[i] = nan
	}

	return out, nil
}
