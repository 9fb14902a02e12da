package strategy

import (
	"crypto-backtest-lab/internal/domain"
)

// SignalSource produces a buy/hold/sell decision for every bar of a candle
// series. Implementations are deterministic: the same candles always yield
// the same signals.
type SignalSource interface {
	// GenerateSignals maps each candle to a SignalPoint. The returned slice
	// has the same length and order as the input; bars inside the indicator
	// warm-up window carry SignalHold.
	GenerateSignals(candles []domain.Candle) ([]domain.SignalPoint, error)

	// ID returns strategy identifier (includes parameters).
	ID() string
}
