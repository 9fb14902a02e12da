package strategy

import (
	"reflect"
	"testing"

	"crypto-backtest-lab/internal/domain"
)

func candlesFromCloses(closes []float64) []domain.Candle {
	candles := make([]domain.Candle, len(closes))
	for i, c := range closes {
		candles[i] = domain.Candle{
			Ticker:      "BTCUSD",
			Timeframe:   domain.Timeframe1Day,
			TimestampMs: int64(i+1) * 86_400_000,
			Close:       c,
		}
	}
	return candles
}

func signalAt(t *testing.T, signals []domain.SignalPoint, i int, want domain.Signal) {
	t.Helper()
	if signals[i].Signal != want {
		t.Errorf("bar %d: signal %v, want %v", i, signals[i].Signal, want)
	}
}

func TestCrossover_ID(t *testing.T) {
	s := NewCrossoverStrategy(10, 30)
	if s.ID() != "MA_CROSSOVER_10_30" {
		t.Errorf("unexpected ID: %s", s.ID())
	}
}

func TestCrossover_BuyAndSellTransitions(t *testing.T) {
	// Flat start, a jump that pulls the short average above the long one,
	// then a drop that pulls it back below.
	closes := []float64{10, 10, 10, 10, 14, 14, 14, 8, 8}
	s := NewCrossoverStrategy(2, 3)

	signals, err := s.GenerateSignals(candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}
	if len(signals) != len(closes) {
		t.Fatalf("expected %d signals, got %d", len(closes), len(signals))
	}

	for _, i := range []int{0, 1, 2, 3, 5, 6, 8} {
		signalAt(t, signals, i, domain.SignalHold)
	}
	signalAt(t, signals, 4, domain.SignalBuy)
	signalAt(t, signals, 7, domain.SignalSell)
}

func TestCrossover_IndicatorsAttached(t *testing.T) {
	closes := []float64{10, 12, 14, 16, 18}
	s := NewCrossoverStrategy(2, 3)

	signals, err := s.GenerateSignals(candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}

	last := signals[len(signals)-1]
	if got := last.Indicators["short_ma"]; got != 17 {
		t.Errorf("short_ma = %v, want 17", got)
	}
	if got := last.Indicators["long_ma"]; got != 16 {
		t.Errorf("long_ma = %v, want 16", got)
	}
}

func TestCrossover_NoRepeatWithoutRecross(t *testing.T) {
	// After the buy crossing the short average stays above the long one;
	// no further buy may be emitted until it actually crosses back.
	closes := []float64{10, 10, 10, 10, 14, 15, 16, 17, 18}
	s := NewCrossoverStrategy(2, 3)

	signals, err := s.GenerateSignals(candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}

	buys := 0
	for _, p := range signals {
		if p.Signal == domain.SignalBuy {
			buys++
		}
	}
	if buys != 1 {
		t.Errorf("expected exactly 1 buy, got %d", buys)
	}
}

func TestCrossover_Empty(t *testing.T) {
	s := NewCrossoverStrategy(2, 3)
	signals, err := s.GenerateSignals(nil)
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("expected no signals, got %d", len(signals))
	}
}

func TestMeanReversion_ID(t *testing.T) {
	s := NewMeanReversionStrategy(20, 2.0)
	if s.ID() != "MEAN_REVERSION_20_2.0" {
		t.Errorf("unexpected ID: %s", s.ID())
	}
}

func TestMeanReversion_BandRecross(t *testing.T) {
	// A dip below the lower band followed by a recovery above it (buy),
	// then a spike above the upper band followed by a fall below it (sell).
	// The initial drop from the flat stretch also crosses back under the
	// degenerate upper band, which reads as a sell.
	closes := []float64{10, 10, 10, 5, 11, 10, 10, 11, 15, 9}
	s := NewMeanReversionStrategy(3, 1.0)

	signals, err := s.GenerateSignals(candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}

	signalAt(t, signals, 3, domain.SignalSell)
	signalAt(t, signals, 4, domain.SignalBuy)
	signalAt(t, signals, 9, domain.SignalSell)
	for _, i := range []int{0, 1, 2, 5, 6, 7, 8} {
		signalAt(t, signals, i, domain.SignalHold)
	}
}

func TestMeanReversion_FlatSeriesHolds(t *testing.T) {
	closes := []float64{10, 10, 10, 10, 10, 10}
	s := NewMeanReversionStrategy(3, 2.0)

	signals, err := s.GenerateSignals(candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}

	for i := range signals {
		signalAt(t, signals, i, domain.SignalHold)
	}
}

func TestTrendForecast_ID(t *testing.T) {
	s := NewTrendForecastStrategy(30, 0.05)
	if s.ID() != "TREND_FORECAST_30_0.05" {
		t.Errorf("unexpected ID: %s", s.ID())
	}
}

func TestTrendForecast_RisingTrendBuys(t *testing.T) {
	closes := []float64{100, 101, 102, 103, 104, 105}
	s := NewTrendForecastStrategy(3, 0)

	signals, err := s.GenerateSignals(candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}

	// A perfectly linear rise forecasts close+1 on every full window.
	signalAt(t, signals, 0, domain.SignalHold)
	signalAt(t, signals, 1, domain.SignalHold)
	for i := 2; i < len(signals); i++ {
		signalAt(t, signals, i, domain.SignalBuy)
	}
}

func TestTrendForecast_FallingTrendSells(t *testing.T) {
	closes := []float64{105, 104, 103, 102, 101, 100}
	s := NewTrendForecastStrategy(3, 0)

	signals, err := s.GenerateSignals(candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}

	for i := 2; i < len(signals); i++ {
		signalAt(t, signals, i, domain.SignalSell)
	}
}

func TestTrendForecast_ConstantSeriesHolds(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100}
	s := NewTrendForecastStrategy(3, 0)

	signals, err := s.GenerateSignals(candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}

	for i := range signals {
		signalAt(t, signals, i, domain.SignalHold)
	}
}

func TestTrendForecast_ThresholdSuppressesWeakMoves(t *testing.T) {
	// A one-point-per-bar rise on a 100 base forecasts roughly +1%;
	// a 5% entry threshold keeps the strategy out.
	closes := []float64{100, 101, 102, 103, 104}
	s := NewTrendForecastStrategy(3, 0.05)

	signals, err := s.GenerateSignals(candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}

	for i := range signals {
		signalAt(t, signals, i, domain.SignalHold)
	}
}

func TestGenerateSignals_Deterministic(t *testing.T) {
	closes := []float64{10, 12, 9, 14, 11, 13, 8, 15, 10, 16}
	candles := candlesFromCloses(closes)

	sources := []SignalSource{
		NewCrossoverStrategy(2, 3),
		NewMeanReversionStrategy(3, 2.0),
		NewTrendForecastStrategy(3, 0),
	}

	for _, s := range sources {
		first, err := s.GenerateSignals(candles)
		if err != nil {
			t.Fatalf("%s: GenerateSignals failed: %v", s.ID(), err)
		}
		second, err := s.GenerateSignals(candles)
		if err != nil {
			t.Fatalf("%s: GenerateSignals failed: %v", s.ID(), err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%s: repeated runs diverged", s.ID())
		}
	}
}
