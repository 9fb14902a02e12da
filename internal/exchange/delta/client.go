package delta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://cdn.india.deltaex.org/v2/history"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	// pageSize is the maximum number of candles the exchange returns per
	// request.
	pageSize = 2000
)

// Client fetches historical candles from the Delta Exchange history API.
type Client struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the history API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new Delta Exchange history client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetCandles fetches a single page of candles for [startSec, endSec] in
// epoch seconds. The exchange returns candles newest-first; the result here
// is sorted oldest-first.
func (c *Client) GetCandles(ctx context.Context, symbol, resolution string, startSec, endSec int64) ([]domain.Candle, error) {
	params := url.Values{}
	params.Set("resolution", resolution)
	params.Set("symbol", symbol)
	params.Set("start", strconv.FormatInt(startSec, 10))
	params.Set("end", strconv.FormatInt(endSec, 10))

	started := time.Now()
	var resp candlesResponse
	err := c.get(ctx, "/candles", params, &resp)
	observability.RecordRequestLatency(symbol, time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	candles := make([]domain.Candle, len(resp.Result))
	for i, r := range resp.Result {
		candles[i] = domain.Candle{
			Ticker:      symbol,
			TimestampMs: r.Time * 1000,
			Open:        r.Open,
			High:        r.High,
			Low:         r.Low,
			Close:       r.Close,
			Volume:      r.Volume,
		}
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].TimestampMs < candles[j].TimestampMs
	})

	return candles, nil
}

// FetchHistory fetches all candles for the ticker between startSec and
// endSec (epoch seconds), paging backwards from the end of the range in
// pageSize windows. Candles are returned oldest-first with duplicate
// timestamps dropped.
func (c *Client) FetchHistory(ctx context.Context, ticker, timeframe string, startSec, endSec int64) ([]domain.Candle, error) {
	resolution, err := timeframeToResolution(timeframe)
	if err != nil {
		return nil, err
	}
	step, err := resolutionToSeconds(resolution)
	if err != nil {
		return nil, err
	}

	var all []domain.Candle
	currentEnd := endSec

	for currentEnd > startSec {
		requestStart := currentEnd - pageSize*step
		if requestStart < startSec {
			requestStart = startSec
		}

		page, err := c.GetCandles(ctx, ticker, resolution, requestStart, currentEnd)
		if err != nil {
			return nil, fmt.Errorf("fetch %s page ending %d: %w", ticker, currentEnd, err)
		}
		if len(page) == 0 {
			break
		}

		all = append(all, page...)
		// Move backwards past the oldest candle of this page.
		currentEnd = page[0].TimestampMs/1000 - 1
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].TimestampMs < all[j].TimestampMs
	})

	// Adjacent pages can overlap on their boundary candle.
	deduped := all[:0]
	var lastTs int64 = -1
	for _, candle := range all {
		if candle.TimestampMs == lastTs {
			continue
		}
		candle.Timeframe = timeframe
		deduped = append(deduped, candle)
		lastTs = candle.TimestampMs
	}

	return deduped, nil
}

// get performs a GET request with retries and exponential backoff.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	endpoint := c.baseURL + path + "?" + params.Encode()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		if err := json.Unmarshal(body, result); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
