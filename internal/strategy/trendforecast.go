package strategy

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"crypto-backtest-lab/internal/domain"
)

// TrendForecastStrategy fits a least-squares line to a rolling window of
// closes and extrapolates one bar ahead. A forecast sufficiently above the
// current close is a buy, sufficiently below a sell.
type TrendForecastStrategy struct {
	LookbackWindow    int
	EntryThresholdPct float64
}

// NewTrendForecastStrategy creates a new TrendForecastStrategy.
func NewTrendForecastStrategy(lookbackWindow int, entryThresholdPct float64) *TrendForecastStrategy {
	return &TrendForecastStrategy{
		LookbackWindow:    lookbackWindow,
		EntryThresholdPct: entryThresholdPct,
	}
}

// ID returns the strategy identifier including parameters.
func (s *TrendForecastStrategy) ID() string {
	return fmt.Sprintf("%s_%d_%.2f", domain.StrategyTypeTrendForecast, s.LookbackWindow, s.EntryThresholdPct)
}

// GenerateSignals regresses close against bar index over the trailing
// lookback window at each bar, forecasts the next bar, and compares the
// forecast against the current close with the entry threshold applied.
// Bars without a full lookback window behind them carry a hold.
func (s *TrendForecastStrategy) GenerateSignals(candles []domain.Candle) ([]domain.SignalPoint, error) {
	signals := make([]domain.SignalPoint, len(candles))
	if len(candles) == 0 {
		return signals, nil
	}

	xs := make([]float64, s.LookbackWindow)
	for i := range xs {
		xs[i] = float64(i)
	}

	for i, c := range candles {
		point := domain.SignalPoint{
			TimestampMs: c.TimestampMs,
			Close:       c.Close,
			Signal:      domain.SignalHold,
			Indicators:  map[string]float64{},
		}

		if i+1 >= s.LookbackWindow {
			window := make([]float64, s.LookbackWindow)
			for j := 0; j < s.LookbackWindow; j++ {
				window[j] = candles[i+1-s.LookbackWindow+j].Close
			}

			alpha, beta := stat.LinearRegression(xs, window, nil, false)
			forecast := alpha + beta*float64(s.LookbackWindow)
			point.Indicators["forecast"] = forecast

			threshold := c.Close * s.EntryThresholdPct
			switch {
			case forecast > c.Close+threshold:
				point.Signal = domain.SignalBuy
			case forecast < c.Close-threshold:
				point.Signal = domain.SignalSell
			}
		}

		signals[i] = point
	}

	return signals, nil
}

// Ensure TrendForecastStrategy implements SignalSource
var _ SignalSource = (*TrendForecastStrategy)(nil)
