package indicator

import (
	"math"
)

// EMA computes the exponential moving average of values with the standard
// span smoothing alpha = 2/(period+1), seeded at the first value. NaN inputs
// are carried through without disturbing the running average.
func EMA(values []float64, period int) ([]float64, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}

	out := nanSlice(len(values))
	alpha := 2.0 / (float64(period) + 1.0)

	prev := math.NaN()

	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}

		if math.IsNaN(prev) {
			prev = v
		} else {
			prev = prev + alpha*(v-prev)
		}

		out[i] = prev
	}

	return out, nil
}
