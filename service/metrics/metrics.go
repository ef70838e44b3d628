package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the faucet.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC metrics
	rpcCallsTotal   *prometheus.CounterVec
	rpcCallDuration *prometheus.HistogramVec

	// Airdrop flow metrics
	airdropRequestsTotal  *prometheus.CounterVec
	dispatchAttemptsTotal *prometheus.CounterVec
	grantedLamportsTotal  *prometheus.CounterVec
	rateLimitRejections   *prometheus.CounterVec

	// Security gate metrics
	captchaVerificationsTotal *prometheus.CounterVec
	clientThrottleTotal       prometheus.Counter

	// Ledger metrics
	ledgerRecords prometheus.Gauge

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// NATS metrics
	natsPublishTotal    *prometheus.CounterVec
	natsPublishDuration prometheus.Histogram
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "faucet_solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method, status, and network",
			},
			[]string{"method", "status", "network"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "faucet_solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "network"},
		),
		airdropRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "faucet_airdrop_requests_total",
				Help: "Total number of airdrop requests by network and outcome",
			},
			[]string{"network", "outcome"},
		),
		dispatchAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "faucet_dispatch_attempts_total",
				Help: "Total number of funding dispatch attempts by network and status",
			},
			[]string{"network", "status"},
		),
		grantedLamportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "faucet_granted_lamports_total",
				Help: "Total lamports granted by network",
			},
			[]string{"network"},
		),
		rateLimitRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "faucet_rate_limit_rejections_total",
				Help: "Total number of address-level rate limit rejections by network",
			},
			[]string{"network"},
		),
		captchaVerificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "faucet_captcha_verifications_total",
				Help: "Total number of CAPTCHA verifications by status",
			},
			[]string{"status"},
		),
		clientThrottleTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "faucet_client_throttle_total",
				Help: "Total number of requests rejected by the per-client token bucket",
			},
		),
		ledgerRecords: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "faucet_ledger_records",
				Help: "Current number of records in the transaction ledger",
			},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "faucet_http_requests_total",
				Help: "Total number of HTTP requests by handler, method, and status code",
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "faucet_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
			},
			[]string{"handler", "method"},
		),
		natsPublishTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "faucet_nats_publish_total",
				Help: "Total number of NATS publish attempts by status",
			},
			[]string{"status"},
		),
		natsPublishDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "faucet_nats_publish_duration_seconds",
				Help:    "Duration of NATS publishes in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
		),
	}
}

// RecordRPCCall records a Solana RPC call with its duration.
func (m *Metrics) RecordRPCCall(method, status, network string, seconds float64) {
	m.rpcCallsTotal.WithLabelValues(method, status, network).Inc()
	m.rpcCallDuration.WithLabelValues(method, network).Observe(seconds)
}

// RecordAirdropRequest records the final outcome of an airdrop request.
// Outcome is "success" or the error code of the rejection.
func (m *Metrics) RecordAirdropRequest(network, outcome string) {
	m.airdropRequestsTotal.WithLabelValues(network, outcome).Inc()
}

// RecordDispatchAttempt records one funding dispatch attempt.
func (m *Metrics) RecordDispatchAttempt(network, status string) {
	m.dispatchAttemptsTotal.WithLabelValues(network, status).Inc()
}

// RecordGrantedLamports adds to the total lamports granted on a network.
func (m *Metrics) RecordGrantedLamports(network string, lamports float64) {
	m.grantedLamportsTotal.WithLabelValues(network).Add(lamports)
}

// RecordRateLimitRejection records an address-level rate limit rejection.
func (m *Metrics) RecordRateLimitRejection(network string) {
	m.rateLimitRejections.WithLabelValues(network).Inc()
}

// RecordCaptchaVerification records a CAPTCHA verification result.
func (m *Metrics) RecordCaptchaVerification(status string) {
	m.captchaVerificationsTotal.WithLabelValues(status).Inc()
}

// RecordClientThrottle records a per-client token bucket rejection.
func (m *Metrics) RecordClientThrottle() {
	m.clientThrottleTotal.Inc()
}

// SetLedgerRecords sets the current ledger size gauge.
func (m *Metrics) SetLedgerRecords(count float64) {
	m.ledgerRecords.Set(count)
}

// RecordHTTPRequest records an HTTP request with its duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, seconds float64) {
	status := strconv.Itoa(statusCode)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
	m.httpRequestDuration.WithLabelValues(handler, method).Observe(seconds)
}

// RecordNATSPublish records a NATS publish attempt with its duration.
func (m *Metrics) RecordNATSPublish(status string, seconds float64) {
	m.natsPublishTotal.WithLabelValues(status).Inc()
	m.natsPublishDuration.Observe(seconds)
}
