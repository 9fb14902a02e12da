// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	CandlesFetched    *prometheus.CounterVec
	CandlesStored     *prometheus.CounterVec
	LiveCandlesStored *prometheus.CounterVec
	IngestErrors      *prometheus.CounterVec

	// Exchange metrics
	HTTPRequestLatency *prometheus.HistogramVec
	WSReconnects       prometheus.Counter

	// Backtest metrics
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	TradesSimulated prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "crypto_backtest_lab"
	}

	return &Metrics{
		// Ingestion metrics
		CandlesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "candles_fetched_total",
			Help:      "Total number of candles fetched from the exchange by ticker",
		}, []string{"ticker"}),
		CandlesStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "candles_stored_total",
			Help:      "Total number of backfilled candles stored by ticker",
		}, []string{"ticker"}),
		LiveCandlesStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "live_candles_stored_total",
			Help:      "Total number of live stream candles stored by ticker",
		}, []string{"ticker"}),
		IngestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by stage",
		}, []string{"stage"}),

		// Exchange metrics
		HTTPRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "http_request_latency_seconds",
			Help:      "Candle history request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"ticker"}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),

		// Backtest metrics
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCandlesFetched adds to the fetched candle counter.
func RecordCandlesFetched(ticker string, n int) {
	DefaultMetrics.CandlesFetched.WithLabelValues(ticker).Add(float64(n))
}

// RecordCandlesStored adds to the stored candle counter.
func RecordCandlesStored(ticker string, n int) {
	DefaultMetrics.CandlesStored.WithLabelValues(ticker).Add(float64(n))
}

// RecordLiveCandleStored increments the live candle counter.
func RecordLiveCandleStored(ticker string) {
	DefaultMetrics.LiveCandlesStored.WithLabelValues(ticker).Inc()
}

// RecordIngestError records an ingestion error by stage.
func RecordIngestError(stage string) {
	DefaultMetrics.IngestErrors.WithLabelValues(stage).Inc()
}

// RecordRequestLatency records one candle history request.
func RecordRequestLatency(ticker string, seconds float64) {
	DefaultMetrics.HTTPRequestLatency.WithLabelValues(ticker).Observe(seconds)
}

// RecordWSReconnect increments the WebSocket reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordRun records one finished backtest run.
func RecordRun(status string, durationSeconds float64, trades int) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
	DefaultMetrics.TradesSimulated.Add(float64(trades))
}
