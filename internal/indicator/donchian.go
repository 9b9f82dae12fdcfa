package indicator

import (
	"github.com/riptide-labs/riptide/internal/types"
)

// Donchian computes the channel of the highest high and lowest low over the
// period bars strictly before each index. Excluding the current bar means a
// close can actually break the channel; a window that includes the current
// bar can never be exceeded by its own close. The first period values are
// NaN.
func Donchian(bars []types.Bar, period int) (hi, lo []float64, err error) {
	if err := validatePeriod(period); err != nil {
		return nil, nil, err
	}

	n := len(bars)
	hi = nanSlice(n)
	lo = nanSlice(n)

	for i := period; i < n; i++ {
		highest := bars[i-period].High
		lowest := bars[i-period].Low

		for j := i - period + 1; j < i; j++ {
			if bars[j].High > highest {
				highest = bars[j].High
			}

			if bars[j].Low < lowest {
				lowest = bars[j].Low
			}
		}

		hi[i] = highest
		lo[i] = lowest
	}

	return hi, lo, nil
}
