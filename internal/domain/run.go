package domain

// BacktestRun is the persisted summary of one simulation run for a
// (ticker, strategy) combination. Runs are append-only.
type BacktestRun struct {
	RunID           string // deterministic hash
	Ticker          string
	Timeframe       string
	StrategyID      string
	StartMs         int64 // first bar timestamp
	EndMs           int64 // last bar timestamp
	InitialCapital  float64
	CommissionRate  float64
	FinalCapital    float64
	TotalReturnPct  float64
	MaxDrawdownPct  float64
	SharpeRatio     float64
	SortinoRatio    float64
	ProfitFactor    float64
	Expectancy      float64
	BuyTrades       int
	CompletedTrades int
	WinRatePct      float64
	CreatedAtMs     int64
}
