package ledger

import (
	"math"

	"github.com/riptide-labs/riptide/internal/types"
	"github.com/riptide-labs/riptide/pkg/errors"
)

// Performance summarizes a run from the equity curve and the fill record.
type Performance struct {
	InitialEquity   float64                 `json:"initial_equity"`
	FinalEquity     float64                 `json:"final_equity"`
	TotalReturnPct  float64                 `json:"total_return_pct"`
	MaxDrawdownPct  float64                 `json:"max_drawdown_pct"`
	SharpeRatio     float64                 `json:"sharpe_ratio"`
	WinRate         float64                 `json:"win_rate"`
	TotalTrades     int                     `json:"total_trades"`
	EventCounts     map[types.EventType]int `json:"event_counts"`
	PeriodsPerYear  float64                 `json:"periods_per_year"`
	EquityDataCount int                     `json:"equity_data_count"`
}

// Performance computes run statistics from the recorded equity curve and
// fills. periodsPerYear annualizes the Sharpe ratio (e.g. 8760 for hourly
// bars).
func (e *EquityLedger) Performance(initialEquity, periodsPerYear float64) (Performance, error) {
	curve, err := e.EquityCurve()
	if err != nil {
		return Performance{}, err
	}

	if len(curve) == 0 {
		return Performance{}, errors.New(errors.ErrCodeDataNotFound, "equity curve is empty")
	}

	counts, err := e.EventCounts()
	if err != nil {
		return Performance{}, err
	}

	events, err := e.Events()
	if err != nil {
		return Performance{}, err
	}

	perf := Performance{
		InitialEquity:   initialEquity,
		FinalEquity:     curve[len(curve)-1].Equity,
		MaxDrawdownPct:  maxDrawdownPct(curve),
		SharpeRatio:     sharpeRatio(curve, periodsPerYear),
		EventCounts:     counts,
		PeriodsPerYear:  periodsPerYear,
		EquityDataCount: len(curve),
	}

	if initialEquity > 0 {
		perf.TotalReturnPct = (perf.FinalEquity/initialEquity - 1) * 100
	}

	perf.TotalTrades = counts[types.EventEnter]
	perf.WinRate = winRate(events)

	return perf, nil
}

// maxDrawdownPct is the largest peak-to-trough equity decline, in percent.
func maxDrawdownPct(curve []types.EquityPoint) float64 {
	peak := curve[0].Equity
	maxDD := 0.0

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		if peak > 0 {
			dd := (peak - point.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD * 100
}

// sharpeRatio annualizes mean/stddev of per-period equity returns. Zero
// when there are too few points or no variance.
func sharpeRatio(curve []types.EquityPoint, periodsPerYear float64) float64 {
	if len(curve) < 3 || periodsPerYear <= 0 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)

	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}

		returns = append(returns, curve[i].Equity/prev-1)
	}

	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(returns) - 1)

	if variance == 0 {
		return 0
	}

	return mean / math.Sqrt(variance) * math.Sqrt(periodsPerYear)
}

// winRate is the fraction of closing fills (SL and TIME plus TP1 partials
// counted as wins) with non-negative realized PnL, over all fills that carry
// a PnL.
func winRate(events []types.TradeEvent) float64 {
	wins, total := 0, 0

	for _, event := range events {
		if event.Type == types.EventEnter || event.PnL.IsNone() {
			continue
		}

		total++

		if event.PnL.Unwrap() >= 0 {
			wins++
		}
	}

	if total == 0 {
		return 0
	}

	return float64(wins) / float64(total)
}
