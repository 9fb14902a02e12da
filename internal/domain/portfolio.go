package domain

// PortfolioRow is one bar of portfolio state, derived and appended by the
// simulation engine, never revised after being written. Rows form an
// append-only ordered sequence keyed by timestamp, one-to-one with the
// signal series that produced them.
type PortfolioRow struct {
	TimestampMs    int64
	Close          float64
	Cash           float64
	UnitsHeld      float64
	HoldingsValue  float64 // UnitsHeld * Close
	TotalValue     float64 // Cash + HoldingsValue
	DailyReturn    float64 // TotalValue[t]/TotalValue[t-1] - 1, 0 at t=0
	BenchmarkValue float64 // buy-and-hold value of the same initial capital
}

// Summary holds the whole-run statistics computed once after the last bar.
type Summary struct {
	InitialCapital  float64
	FinalCapital    float64
	TotalPnL        float64
	TotalReturnPct  float64
	BuyTrades       int // entries executed
	CompletedTrades int // exits executed (buy-sell cycles closed)
	WinningTrades   int // completed trades with PnL > 0
	LosingTrades    int // completed trades with PnL < 0
	WinRatePct      float64
	AvgPnLPerTrade  float64 // realized PnL / completed trades
}
