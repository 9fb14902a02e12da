package strategy

import (
	"errors"

	"crypto-backtest-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownStrategyType      = errors.New("unknown strategy type")
	ErrMissingShortWindow       = errors.New("MA_CROSSOVER requires ShortWindow")
	ErrMissingLongWindow        = errors.New("MA_CROSSOVER requires LongWindow")
	ErrInvalidWindowOrder       = errors.New("MA_CROSSOVER requires ShortWindow < LongWindow")
	ErrMissingWindow            = errors.New("MEAN_REVERSION requires Window")
	ErrMissingStdDevMultiplier  = errors.New("MEAN_REVERSION requires StdDevMultiplier")
	ErrMissingLookbackWindow    = errors.New("TREND_FORECAST requires LookbackWindow")
	ErrInvalidWindow            = errors.New("window parameters must be at least 2")
	ErrInvalidStdDevMultiplier  = errors.New("StdDevMultiplier must be positive")
	ErrInvalidEntryThresholdPct = errors.New("EntryThresholdPct must not be negative")
)

// FromConfig creates a SignalSource from domain.StrategyConfig.
// Validates required parameters per strategy type.
// Returns clear errors for missing/invalid params.
func FromConfig(cfg domain.StrategyConfig) (SignalSource, error) {
	switch cfg.StrategyType {
	case domain.StrategyTypeCrossover:
		return fromCrossoverConfig(cfg)
	case domain.StrategyTypeMeanReversion:
		return fromMeanReversionConfig(cfg)
	case domain.StrategyTypeTrendForecast:
		return fromTrendForecastConfig(cfg)
	default:
		return nil, ErrUnknownStrategyType
	}
}

// fromCrossoverConfig creates CrossoverStrategy from config.
func fromCrossoverConfig(cfg domain.StrategyConfig) (*CrossoverStrategy, error) {
	if cfg.ShortWindow == nil {
		return nil, ErrMissingShortWindow
	}
	if cfg.LongWindow == nil {
		return nil, ErrMissingLongWindow
	}
	if *cfg.ShortWindow < 2 || *cfg.LongWindow < 2 {
		return nil, ErrInvalidWindow
	}
	if *cfg.ShortWindow >= *cfg.LongWindow {
		return nil, ErrInvalidWindowOrder
	}

	return NewCrossoverStrategy(*cfg.ShortWindow, *cfg.LongWindow), nil
}

// fromMeanReversionConfig creates MeanReversionStrategy from config.
func fromMeanReversionConfig(cfg domain.StrategyConfig) (*MeanReversionStrategy, error) {
	if cfg.Window == nil {
		return nil, ErrMissingWindow
	}
	if cfg.StdDevMultiplier == nil {
		return nil, ErrMissingStdDevMultiplier
	}
	if *cfg.Window < 2 {
		return nil, ErrInvalidWindow
	}
	if *cfg.StdDevMultiplier <= 0 {
		return nil, ErrInvalidStdDevMultiplier
	}

	return NewMeanReversionStrategy(*cfg.Window, *cfg.StdDevMultiplier), nil
}

// fromTrendForecastConfig creates TrendForecastStrategy from config.
func fromTrendForecastConfig(cfg domain.StrategyConfig) (*TrendForecastStrategy, error) {
	if cfg.LookbackWindow == nil {
		return nil, ErrMissingLookbackWindow
	}
	if *cfg.LookbackWindow < 2 {
		return nil, ErrInvalidWindow
	}

	threshold := 0.0
	if cfg.EntryThresholdPct != nil {
		if *cfg.EntryThresholdPct < 0 {
			return nil, ErrInvalidEntryThresholdPct
		}
		threshold = *cfg.EntryThresholdPct
	}

	return NewTrendForecastStrategy(*cfg.LookbackWindow, threshold), nil
}
