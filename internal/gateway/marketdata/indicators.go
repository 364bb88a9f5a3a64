package marketdata

import (
	"context"

	talib "github.com/markcheno/go-talib"
	"github.com/tidwall/gjson"

	"vigil/internal/logger"
	"vigil/internal/position"
)

const rsiPeriod = 14

// attachIndicators fills RSI and MACD state from the candle feed when the
// quote itself carried no oscillator. When candles are unavailable the RSI
// is estimated from the day range and flagged as such; downstream keeps
// the flag in decision metadata instead of silently mixing the two.
func (c *Client) attachIndicators(ctx context.Context, symbol string, snap *position.MarketSnapshot) {
	if snap.RSI != nil {
		return
	}

	body, err := c.get(ctx, "/candles/"+symbol+"?interval="+c.interval)
	if err != nil {
		logger.Debugf("marketdata: candles for %s unavailable: %v", symbol, err)
		c.estimateFromDayRange(ctx, symbol, snap)
		return
	}

	closes := closesOf(body)
	if len(closes) > rsiPeriod {
		series := talib.Rsi(closes, rsiPeriod)
		if len(series) > 0 {
			v := series[len(series)-1]
			snap.RSI = &v
		}
	}
	if len(closes) >= 35 {
		macd, signal, _ := talib.Macd(closes, 12, 26, 9)
		if n := len(macd); n > 0 && n == len(signal) {
			switch {
			case macd[n-1] > signal[n-1]:
				snap.MACD = position.MACDBullish
			case macd[n-1] < signal[n-1]:
				snap.MACD = position.MACDBearish
			}
		}
	}
	if snap.RSI == nil {
		c.estimateFromDayRange(ctx, symbol, snap)
	}
}

// estimateFromDayRange places the last price within the session's
// high-low range as a crude 0-100 proxy. Not a real oscillator; always
// flagged estimated.
func (c *Client) estimateFromDayRange(ctx context.Context, symbol string, snap *position.MarketSnapshot) {
	body, err := c.get(ctx, "/quote/"+symbol+"/ohlc")
	if err != nil {
		return
	}
	high := gjson.Get(body, "high").Float()
	low := gjson.Get(body, "low").Float()
	if high <= low || snap.CurrentPrice <= 0 {
		return
	}
	v := (snap.CurrentPrice - low) / (high - low) * 100
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	snap.RSI = &v
	snap.RSIEstimated = true
}

// RecentCloses returns up to limit trailing closes for a symbol, oldest
// first. Used by the bias provider to score index momentum.
func (c *Client) RecentCloses(ctx context.Context, symbol string, limit int) ([]float64, error) {
	body, err := c.get(ctx, "/candles/"+symbol+"?interval="+c.interval)
	if err != nil {
		return nil, err
	}
	closes := closesOf(body)
	if limit > 0 && len(closes) > limit {
		closes = closes[len(closes)-limit:]
	}
	return closes, nil
}

func closesOf(body string) []float64 {
	// Candle rows are [ts, open, high, low, close, volume].
	rows := gjson.Get(body, "candles")
	var closes []float64
	rows.ForEach(func(_, row gjson.Result) bool {
		cells := row.Array()
		if len(cells) >= 5 {
			closes = append(closes, cells[4].Float())
		}
		return true
	})
	return closes
}
