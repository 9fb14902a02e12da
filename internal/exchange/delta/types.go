package delta

import (
	"fmt"

	"crypto-backtest-lab/internal/domain"
)

// candlesResponse is the raw /history/candles payload.
type candlesResponse struct {
	Success bool        `json:"success"`
	Result  []rawCandle `json:"result"`
	Error   *apiError   `json:"error,omitempty"`
}

type rawCandle struct {
	Time   int64   `json:"time"` // epoch seconds
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("delta API error %s: %s", e.Code, e.Message)
}

// timeframeToResolution maps internal timeframes to the candle resolution
// strings the exchange expects. Daily candles use an upper-case D.
func timeframeToResolution(timeframe string) (string, error) {
	switch timeframe {
	case domain.Timeframe1Min:
		return "1m", nil
	case domain.Timeframe5Min:
		return "5m", nil
	case domain.Timeframe1Hour:
		return "1h", nil
	case domain.Timeframe1Day:
		return "1D", nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", timeframe)
	}
}

// resolutionToSeconds returns the candle duration for a resolution string.
func resolutionToSeconds(resolution string) (int64, error) {
	if len(resolution) < 2 {
		return 0, fmt.Errorf("unsupported resolution: %s", resolution)
	}

	var value int64
	if _, err := fmt.Sscanf(resolution[:len(resolution)-1], "%d", &value); err != nil {
		return 0, fmt.Errorf("unsupported resolution: %s", resolution)
	}

	switch resolution[len(resolution)-1] {
	case 'm':
		return value * 60, nil
	case 'h':
		return value * 3600, nil
	case 'd', 'D':
		return value * 86400, nil
	default:
		return 0, fmt.Errorf("unsupported resolution: %s", resolution)
	}
}
