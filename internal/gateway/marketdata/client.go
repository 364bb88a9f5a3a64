package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"vigil/internal/logger"
	"vigil/internal/metrics"
	"vigil/internal/pkg/circuit"
	"vigil/internal/position"
)

// Config for the HTTP quote client.
type Config struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	RequestsPerSec   float64
	BreakerThreshold int
	BreakerCooldown  time.Duration
	CandleInterval   string
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	if c.RequestsPerSec <= 0 {
		c.RequestsPerSec = 8
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	if strings.TrimSpace(c.CandleInterval) == "" {
		c.CandleInterval = "5m"
	}
}

// Client fetches MarketSnapshots over a REST quote feed. Fetches are rate
// limited to the provider's allowance and guarded by a circuit breaker so
// a dead feed fails fast instead of stalling a sweep.
type Client struct {
	http     *resty.Client
	limiter  *rate.Limiter
	breaker  *circuit.Breaker
	interval string
}

func NewClient(cfg Config) *Client {
	cfg.applyDefaults()
	breaker := circuit.New("marketdata", cfg.BreakerThreshold, cfg.BreakerCooldown)
	breaker.OnStateChange(func(name string, from, to circuit.State) {
		logger.Warnf("marketdata: breaker %s %s -> %s", name, from, to)
		metrics.BreakerState.Set(float64(to))
	})
	httpc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(1)
	if cfg.APIKey != "" {
		httpc.SetHeader("X-Api-Key", cfg.APIKey)
	}
	return &Client{
		http:     httpc,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		breaker:  breaker,
		interval: cfg.CandleInterval,
	}
}

// Snapshot implements engine.MarketDataProvider. Any error here is the
// caller's cue to degrade to the neutral snapshot.
func (c *Client) Snapshot(ctx context.Context, symbol string) (position.MarketSnapshot, error) {
	if !c.breaker.Allow() {
		return position.MarketSnapshot{}, fmt.Errorf("marketdata: breaker open for %s", symbol)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return position.MarketSnapshot{}, err
	}

	body, err := c.get(ctx, "/quote/"+symbol)
	if err != nil {
		c.breaker.RecordFailure()
		return position.MarketSnapshot{}, err
	}
	c.breaker.RecordSuccess()

	snap := parseQuote(symbol, body)
	c.attachIndicators(ctx, symbol, &snap)
	return snap, nil
}

func (c *Client) get(ctx context.Context, path string) (string, error) {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return "", fmt.Errorf("marketdata: GET %s: %w", path, err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("marketdata: GET %s: status %d", path, resp.StatusCode())
	}
	return resp.String(), nil
}

// parseQuote maps the feed payload onto a snapshot. Missing fields stay at
// their zero/nil values; the metrics layer applies the neutral defaults.
func parseQuote(symbol, body string) position.MarketSnapshot {
	snap := position.MarketSnapshot{
		Symbol:        symbol,
		CurrentPrice:  gjson.Get(body, "last_price").Float(),
		Volume:        gjson.Get(body, "volume").Float(),
		ChangePercent: gjson.Get(body, "change_percent").Float(),
		MACD:          position.MACDNeutral,
		AsOf:          time.Now(),
	}

	if rsi := gjson.Get(body, "rsi"); rsi.Exists() {
		v := rsi.Float()
		snap.RSI = &v
	}

	buyQty := gjson.Get(body, "depth.total_buy_qty").Float()
	sellQty := gjson.Get(body, "depth.total_sell_qty").Float()
	if total := buyQty + sellQty; total > 0 {
		bp := buyQty / total
		sp := sellQty / total
		snap.BuyPressure = &bp
		snap.SellPressure = &sp
	}
	return snap
}
