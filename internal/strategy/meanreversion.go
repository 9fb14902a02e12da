package strategy

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"crypto-backtest-lab/internal/domain"
)

// MeanReversionStrategy signals on Bollinger Band re-entries: buy when the
// close crosses back above the lower band after dipping below it, sell when
// the close crosses back below the upper band after piercing it.
type MeanReversionStrategy struct {
	Window           int
	StdDevMultiplier float64
}

// NewMeanReversionStrategy creates a new MeanReversionStrategy.
func NewMeanReversionStrategy(window int, stdDevMultiplier float64) *MeanReversionStrategy {
	return &MeanReversionStrategy{
		Window:           window,
		StdDevMultiplier: stdDevMultiplier,
	}
}

// ID returns the strategy identifier including parameters.
func (s *MeanReversionStrategy) ID() string {
	return fmt.Sprintf("%s_%d_%.1f", domain.StrategyTypeMeanReversion, s.Window, s.StdDevMultiplier)
}

// GenerateSignals computes Bollinger Bands over the close series and emits
// signals on band re-crossings. Bars inside the band warm-up carry a hold.
func (s *MeanReversionStrategy) GenerateSignals(candles []domain.Candle) ([]domain.SignalPoint, error) {
	closes := closePrices(candles)

	signals := make([]domain.SignalPoint, len(candles))
	if len(candles) == 0 {
		return signals, nil
	}

	// MAType 0 = SMA for the middle band.
	upper, middle, lower := talib.BBands(closes, s.Window, s.StdDevMultiplier, s.StdDevMultiplier, 0)

	for i, c := range candles {
		point := domain.SignalPoint{
			TimestampMs: c.TimestampMs,
			Close:       c.Close,
			Signal:      domain.SignalHold,
			Indicators: map[string]float64{
				"middle_band": middle[i],
				"upper_band":  upper[i],
				"lower_band":  lower[i],
			},
		}

		if i >= s.Window {
			prevClose := closes[i-1]
			switch {
			case c.Close > lower[i] && prevClose <= lower[i-1]:
				point.Signal = domain.SignalBuy
			case c.Close < upper[i] && prevClose >= upper[i-1]:
				point.Signal = domain.SignalSell
			}
		}

		signals[i] = point
	}

	return signals, nil
}

// Ensure MeanReversionStrategy implements SignalSource
var _ SignalSource = (*MeanReversionStrategy)(nil)
