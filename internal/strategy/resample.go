package strategy

import (
	"time"

	"github.com/riptide-labs/riptide/internal/types"
)

// ResampleHTF aggregates low-timeframe bars into higher-timeframe buckets:
// first open, max high, min low, last close, summed volume. Bucket
// boundaries are truncated to the interval in UTC; input must be sorted by
// time. Empty buckets simply do not appear.
func ResampleHTF(bars []types.Bar, interval time.Duration) []types.Bar {
	if len(bars) == 0 {
		return nil
	}

	var out []types.Bar

	var current *types.Bar

	for _, bar := range bars {
		bucket := bar.Time.Truncate(interval)

		if current == nil || !current.Time.Equal(bucket) {
			if current != nil {
				out = append(out, *current)
			}

			b := bar
			b.Time = bucket
			current = &b

			continue
		}

		if bar.High > current.High {
			current.High = bar.High
		}

		if bar.Low < current.Low {
			current.Low = bar.Low
		}

		current.Close = bar.Close
		current.Volume += bar.Volume
	}

	out = append(out, *current)

	return out
}
