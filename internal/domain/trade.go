package domain

// TradeSide distinguishes entries from exits.
type TradeSide string

// Trade side constants.
const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Trade is an immutable record created at the moment of execution.
// PnL is always 0 for BUY trades; for SELL trades it is the realized
// profit/loss net of both legs' commissions, referencing the entry that
// opened the position being closed.
type Trade struct {
	TimestampMs int64
	Side        TradeSide
	Price       float64
	Units       float64
	Commission  float64
	PnL         float64
}

// TradeRecord is a Trade tagged with the backtest run that produced it,
// as persisted by the trade record store.
type TradeRecord struct {
	TradeID     string // deterministic hash
	RunID       string // owning backtest run
	Ticker      string
	StrategyID  string
	TimestampMs int64
	Side        string
	Price       float64
	Units       float64
	Commission  float64
	PnL         float64
}
