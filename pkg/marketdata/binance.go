package marketdata

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/riptide-labs/riptide/internal/types"
	"github.com/riptide-labs/riptide/pkg/errors"
)

// BinanceProvider fetches spot klines from Binance. Public market data needs
// no API credentials.
type BinanceProvider struct {
	client *binance.Client
}

// NewBinanceProvider creates a provider over the public Binance API.
func NewBinanceProvider() *BinanceProvider {
	return &BinanceProvider{
		client: binance.NewClient("", ""),
	}
}

// FetchBars implements Provider.
func (p *BinanceProvider) FetchBars(ctx context.Context, symbol, interval string, limit int) ([]types.Bar, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch %s %s klines", symbol, interval)
	}

	bars := make([]types.Bar, 0, len(klines))

	for _, k := range klines {
		bar, err := klineToBar(k)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to parse %s kline", symbol)
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// ValidSymbols implements Provider. Symbols the exchange does not trade are
// dropped, not errored: a portfolio with one delisted symbol should still
// run on the rest.
func (p *BinanceProvider) ValidSymbols(ctx context.Context, requested []string) ([]string, error) {
	info, err := p.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to fetch exchange info", err)
	}

	listed := make(map[string]bool, len(info.Symbols))

	for _, s := range info.Symbols {
		if s.Status == "TRADING" {
			listed[s.Symbol] = true
		}
	}

	valid := make([]string, 0, len(requested))

	for _, sym := range requested {
		if listed[sym] {
			valid = append(valid, sym)
		}
	}

	return valid, nil
}

// klineToBar converts one Binance kline to a Bar. Binance returns prices as
// strings and open times in milliseconds.
func klineToBar(k *binance.Kline) (types.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return types.Bar{}, err
	}

	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return types.Bar{}, err
	}

	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return types.Bar{}, err
	}

	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return types.Bar{}, err
	}

	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return types.Bar{}, err
	}

	return types.Bar{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}
