package position

import (
	"strings"
	"time"
	"unicode"
)

// Side of an open trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// Position is an open trade under lifecycle management. StopLoss and Target
// are optional; zero means "not set". Quantity is signed by side.
type Position struct {
	Symbol     string         `json:"symbol"`
	Side       Side           `json:"side"`
	EntryPrice float64        `json:"entry_price"`
	Quantity   int64          `json:"quantity"`
	StopLoss   float64        `json:"stop_loss,omitempty"`
	Target     float64        `json:"target,omitempty"`
	EntryTime  time.Time      `json:"entry_time"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// IsOption reports whether the symbol names a lot-traded option contract
// (NSE style: strike digits followed by a CE/PE suffix). Options trade in
// whole lots and cannot be partially exited.
func (p Position) IsOption() bool {
	sym := strings.ToUpper(strings.TrimSpace(p.Symbol))
	if !strings.HasSuffix(sym, "CE") && !strings.HasSuffix(sym, "PE") {
		return false
	}
	for _, r := range sym {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// MACD line state relative to its signal line.
type MACDState string

const (
	MACDBullish MACDState = "bullish"
	MACDBearish MACDState = "bearish"
	MACDNeutral MACDState = "neutral"
)

// MarketSnapshot is the point-in-time market state for one symbol, supplied
// fresh each evaluation cycle and never cached by the engine. RSI is nil
// when the provider has none; RSIEstimated marks values derived from the
// day range rather than a true oscillator. BuyPressure/SellPressure are in
// [0,1] when present (nil means unknown).
type MarketSnapshot struct {
	Symbol        string    `json:"symbol"`
	CurrentPrice  float64   `json:"current_price"`
	Volume        float64   `json:"volume"`
	ChangePercent float64   `json:"change_percent"`
	RSI           *float64  `json:"rsi,omitempty"`
	RSIEstimated  bool      `json:"rsi_estimated,omitempty"`
	MACD          MACDState `json:"macd_state,omitempty"`
	BuyPressure   *float64  `json:"buy_pressure,omitempty"`
	SellPressure  *float64  `json:"sell_pressure,omitempty"`
	AsOf          time.Time `json:"as_of,omitempty"`
}

// NeutralSnapshot is the safe default used when a fetch fails or times out:
// no price, neutral technicals. Stages treat a zero price as "no evidence".
func NeutralSnapshot(symbol string) MarketSnapshot {
	return MarketSnapshot{Symbol: symbol, MACD: MACDNeutral}
}

// Bias is an optional external directional opinion used by the scale-in
// stage. Confidence is on the same 0-10 scale as decisions.
type Bias struct {
	Direction  Side    `json:"direction"`
	Confidence float64 `json:"confidence"`
}
