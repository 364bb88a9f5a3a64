package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/position"
)

func newTestClient(srvURL string) *Client {
	return NewClient(Config{
		BaseURL:        srvURL,
		Timeout:        time.Second,
		RequestsPerSec: 1000,
	})
}

func TestSnapshotParsesQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/quote/RELIANCE"):
			w.Write([]byte(`{
				"last_price": 2850.5, "volume": 1234567, "change_percent": 1.2,
				"rsi": 62.5,
				"depth": {"total_buy_qty": 600, "total_sell_qty": 400}
			}`))
		default:
			w.WriteHeader(404)
		}
	}))
	defer srv.Close()

	snap, err := newTestClient(srv.URL).Snapshot(context.Background(), "RELIANCE")
	require.NoError(t, err)
	assert.Equal(t, 2850.5, snap.CurrentPrice)
	assert.Equal(t, 1234567.0, snap.Volume)
	require.NotNil(t, snap.RSI)
	assert.Equal(t, 62.5, *snap.RSI)
	assert.False(t, snap.RSIEstimated)
	require.NotNil(t, snap.BuyPressure)
	assert.InDelta(t, 0.6, *snap.BuyPressure, 1e-9)
	assert.InDelta(t, 0.4, *snap.SellPressure, 1e-9)
}

func TestSnapshotEstimatesRSIFromDayRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/quote/TCS/ohlc":
			w.Write([]byte(`{"open": 3500, "high": 3600, "low": 3400, "close": 3500}`))
		case r.URL.Path == "/quote/TCS":
			w.Write([]byte(`{"last_price": 3550, "volume": 1000}`))
		default:
			// No candle feed.
			w.WriteHeader(404)
		}
	}))
	defer srv.Close()

	snap, err := newTestClient(srv.URL).Snapshot(context.Background(), "TCS")
	require.NoError(t, err)
	require.NotNil(t, snap.RSI)
	assert.True(t, snap.RSIEstimated)
	// 3550 sits 75% of the way up the 3400-3600 range.
	assert.InDelta(t, 75.0, *snap.RSI, 1e-9)
}

func TestSnapshotComputesRSIFromCandles(t *testing.T) {
	candles := strings.Builder{}
	candles.WriteString(`{"candles":[`)
	price := 100.0
	for i := 0; i < 40; i++ {
		if i > 0 {
			candles.WriteString(",")
		}
		price += 0.5
		candles.WriteString(`[0,0,0,0,` + floatStr(price) + `,0]`)
	}
	candles.WriteString(`]}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/candles/"):
			w.Write([]byte(candles.String()))
		case r.URL.Path == "/quote/INFY":
			w.Write([]byte(`{"last_price": 120, "volume": 1000}`))
		default:
			w.WriteHeader(404)
		}
	}))
	defer srv.Close()

	snap, err := newTestClient(srv.URL).Snapshot(context.Background(), "INFY")
	require.NoError(t, err)
	require.NotNil(t, snap.RSI)
	assert.False(t, snap.RSIEstimated)
	// Monotone rise: RSI pinned at the top, MACD above signal.
	assert.Greater(t, *snap.RSI, 90.0)
	assert.Equal(t, position.MACDBullish, snap.MACD)
}

func TestSnapshotErrorsWhenFeedDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Snapshot(context.Background(), "X")
	assert.Error(t, err)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, RequestsPerSec: 1000, BreakerThreshold: 3, BreakerCooldown: time.Minute})
	for i := 0; i < 3; i++ {
		_, err := c.Snapshot(context.Background(), "X")
		assert.Error(t, err)
	}
	_, err := c.Snapshot(context.Background(), "X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "breaker open")
}

func floatStr(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
