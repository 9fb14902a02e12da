package domain

// Candle represents one OHLCV observation for a fixed time interval.
// Candles for a (ticker, timeframe) pair are strictly ordered by timestamp
// with unique timestamps, ascending. Never mutated after creation.
type Candle struct {
	Ticker      string  // instrument symbol, e.g. "BTCUSD"
	Timeframe   string  // bar interval, e.g. "1h"
	TimestampMs int64   // Unix timestamp in milliseconds, bar open time
	Open        float64 // open price
	High        float64 // high price
	Low         float64 // low price
	Close       float64 // close price
	Volume      float64 // traded volume
}

// Supported timeframes.
const (
	Timeframe1Min  = "1m"
	Timeframe5Min  = "5m"
	Timeframe1Hour = "1h"
	Timeframe1Day  = "1d"
)
