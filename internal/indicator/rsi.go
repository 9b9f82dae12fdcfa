package indicator

import (
	"math"
)

// RSI computes the Relative Strength Index of closes using Wilder smoothing
// of average gains and losses. The first period values are NaN.
func RSI(closes []float64, period int) ([]float64, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}

	out := nanSlice(len(closes))
	if len(closes) < 2 {
		return out, nil
	}

	gains := nanSlice(len(closes))
	losses := nanSlice(len(closes))

	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gains[i] = math.Max(change, 0)
		losses[i] = math.Max(-change, 0)
	}

	avgGain := wilderSmooth(gains, period)
	avgLoss := wilderSmooth(losses, period)

	for i := period; i < len(closes); i++ {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}

		if avgLoss[i] == 0 {
			out[i] = 100
			continue
		}

		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}

	return out, nil
}
