package strategy

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"crypto-backtest-lab/internal/domain"
)

// CrossoverStrategy signals on moving-average crossovers: buy when the short
// SMA crosses above the long SMA, sell when it crosses back below.
type CrossoverStrategy struct {
	ShortWindow int
	LongWindow  int
}

// NewCrossoverStrategy creates a new CrossoverStrategy.
func NewCrossoverStrategy(shortWindow, longWindow int) *CrossoverStrategy {
	return &CrossoverStrategy{
		ShortWindow: shortWindow,
		LongWindow:  longWindow,
	}
}

// ID returns the strategy identifier including parameters.
func (s *CrossoverStrategy) ID() string {
	return fmt.Sprintf("%s_%d_%d", domain.StrategyTypeCrossover, s.ShortWindow, s.LongWindow)
}

// GenerateSignals emits a buy on the bar where the short SMA first closes
// above the long SMA, and a sell on the bar where it first closes below.
// Bars before both averages are defined carry a hold.
func (s *CrossoverStrategy) GenerateSignals(candles []domain.Candle) ([]domain.SignalPoint, error) {
	closes := closePrices(candles)

	signals := make([]domain.SignalPoint, len(candles))
	if len(candles) == 0 {
		return signals, nil
	}

	shortMA := talib.Sma(closes, s.ShortWindow)
	longMA := talib.Sma(closes, s.LongWindow)

	// talib leaves the first window-1 slots zeroed; crossings are only
	// meaningful once both averages have a full window behind them.
	warmup := s.LongWindow
	if s.ShortWindow > warmup {
		warmup = s.ShortWindow
	}

	for i, c := range candles {
		point := domain.SignalPoint{
			TimestampMs: c.TimestampMs,
			Close:       c.Close,
			Signal:      domain.SignalHold,
			Indicators: map[string]float64{
				"short_ma": shortMA[i],
				"long_ma":  longMA[i],
			},
		}

		if i >= warmup {
			prevShort, prevLong := shortMA[i-1], longMA[i-1]
			switch {
			case prevShort <= prevLong && shortMA[i] > longMA[i]:
				point.Signal = domain.SignalBuy
			case prevShort >= prevLong && shortMA[i] < longMA[i]:
				point.Signal = domain.SignalSell
			}
		}

		signals[i] = point
	}

	return signals, nil
}

func closePrices(candles []domain.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// Ensure CrossoverStrategy implements SignalSource
var _ SignalSource = (*CrossoverStrategy)(nil)
