package domain

// StrategyConfig represents strategy configuration parameters.
type StrategyConfig struct {
	StrategyType string // "MA_CROSSOVER" | "MEAN_REVERSION" | "TREND_FORECAST"

	// MA_CROSSOVER parameters
	ShortWindow *int
	LongWindow  *int

	// MEAN_REVERSION parameters
	Window           *int
	StdDevMultiplier *float64

	// TREND_FORECAST parameters
	LookbackWindow    *int
	EntryThresholdPct *float64
}

// Strategy type constants
const (
	StrategyTypeCrossover     = "MA_CROSSOVER"
	StrategyTypeMeanReversion = "MEAN_REVERSION"
	StrategyTypeTrendForecast = "TREND_FORECAST"
)
