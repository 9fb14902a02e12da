package domain

// Signal is the per-bar discrete trading decision.
type Signal int

// Signal values.
const (
	SignalSell Signal = -1
	SignalHold Signal = 0
	SignalBuy  Signal = 1
)

// String returns a human-readable signal name.
func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// SignalPoint is one bar of strategy output: the close price, the trade
// decision, and any indicator values the strategy computed for that bar.
// Indicator names are opaque to the simulation; only reporting reads them.
// SignalPoints share the ordering/uniqueness invariant of Candle.
type SignalPoint struct {
	TimestampMs int64
	Close       float64
	Signal      Signal
	Indicators  map[string]float64
}
