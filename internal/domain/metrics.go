package domain

// MetricsResult is a pure value object computed once from a finished
// portfolio history and trade sequence. Degenerate inputs yield the neutral
// values documented on each metric, never an error.
//
// ProfitFactor and the capture ratios use +/-Inf as the "unbounded" sentinel
// when the corresponding denominator compounds to exactly zero while the
// numerator does not.
type MetricsResult struct {
	Drawdowns            []float64 // one per history row, <= 0
	MaxDrawdownPct       float64   // min(Drawdowns) * 100
	SharpeRatio          float64
	SortinoRatio         float64
	ProfitFactor         float64
	Expectancy           float64
	UpMarketCapturePct   float64
	DownMarketCapturePct float64
}
