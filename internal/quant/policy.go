package quant

// Mode selects between the current estimators and the legacy ones kept for
// A/B comparison against older journal entries. The mode is fixed at
// construction; there is no process-wide toggle.
type Mode int

const (
	ModeCurrent Mode = iota
	ModeLegacy
)

func (m Mode) String() string {
	switch m {
	case ModeLegacy:
		return "legacy"
	default:
		return "current"
	}
}

// Calculator bundles the numeric estimators behind a calculation mode.
// All methods are pure and safe on short or degenerate input.
type Calculator struct {
	mode Mode
}

func NewCalculator(mode Mode) *Calculator {
	return &Calculator{mode: mode}
}

func (c *Calculator) Mode() Mode {
	if c == nil {
		return ModeCurrent
	}
	return c.mode
}
