package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type routeMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	routeMetricsOnce sync.Once
	routeRegistry    *routeMetrics

	swapdOnce sync.Once
	swapdReg  *SwapdMetrics
)

// RouteMetrics returns the lazily-initialised registry used to record HTTP
// route activity.
func RouteMetrics() *routeMetrics {
	routeMetricsOnce.Do(func() {
		routeRegistry = &routeMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "smartswap",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total API requests segmented by route and outcome.",
			}, []string{"route", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "smartswap",
				Subsystem: "http",
				Name:      "errors_total",
				Help:      "Total API errors segmented by route and status code.",
			}, []string{"route", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "smartswap",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "smartswap",
				Subsystem: "http",
				Name:      "throttles_total",
				Help:      "Count of requests rejected by the rate limiter.",
			}, []string{"route", "reason"}),
		}
		prometheus.MustRegister(
			routeRegistry.requests,
			routeRegistry.errors,
			routeRegistry.latency,
			routeRegistry.throttles,
		)
	})
	return routeRegistry
}

// Observe records the outcome of a request. The status code should be the
// HTTP status that was ultimately written to the response writer.
func (m *routeMetrics) Observe(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(route, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(route, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit" so dashboards remain consistent.
func (m *routeMetrics) RecordThrottle(route, reason string) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(route, reason).Inc()
}

// SwapdMetrics captures fee and swap execution metrics for the swap daemon.
type SwapdMetrics struct {
	feeQuotes    *prometheus.CounterVec
	effectiveFee *prometheus.HistogramVec
	swaps        *prometheus.CounterVec
	swapLatency  *prometheus.HistogramVec
	auditAppends *prometheus.CounterVec
	auditSize    prometheus.Gauge
	rpcCalls     *prometheus.CounterVec
	balanceCache *prometheus.CounterVec
}

// Swapd returns the singleton metrics registry for the swap daemon.
func Swapd() *SwapdMetrics {
	swapdOnce.Do(func() {
		swapdReg = &SwapdMetrics{
			feeQuotes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "smartswap",
				Subsystem: "fees",
				Name:      "quotes_total",
				Help:      "Effective fee computations segmented by campaign and tier.",
			}, []string{"campaign", "tier"}),
			effectiveFee: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "smartswap",
				Subsystem: "fees",
				Name:      "effective_fee_bps",
				Help:      "Distribution of effective fees charged, in basis points.",
				Buckets:   []float64{0, 5, 10, 15, 20, 25, 30, 50},
			}, []string{"campaign"}),
			swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "smartswap",
				Subsystem: "swapd",
				Name:      "swaps_total",
				Help:      "Swap attempts segmented by outcome.",
			}, []string{"outcome"}),
			swapLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "smartswap",
				Subsystem: "swapd",
				Name:      "swap_duration_seconds",
				Help:      "Latency of swap execution steps.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"step"}),
			auditAppends: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "smartswap",
				Subsystem: "audit",
				Name:      "appends_total",
				Help:      "Audit log appends segmented by persistence outcome.",
			}, []string{"outcome"}),
			auditSize: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "smartswap",
				Subsystem: "audit",
				Name:      "entries",
				Help:      "Number of entries currently held in the audit log.",
			}),
			rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "smartswap",
				Subsystem: "chain",
				Name:      "rpc_calls_total",
				Help:      "Chain RPC calls segmented by endpoint role, method and outcome.",
			}, []string{"endpoint", "method", "outcome"}),
			balanceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "smartswap",
				Subsystem: "chain",
				Name:      "balance_cache_total",
				Help:      "Balance lookups segmented by cache result.",
			}, []string{"result"}),
		}
		prometheus.MustRegister(
			swapdReg.feeQuotes,
			swapdReg.effectiveFee,
			swapdReg.swaps,
			swapdReg.swapLatency,
			swapdReg.auditAppends,
			swapdReg.auditSize,
			swapdReg.rpcCalls,
			swapdReg.balanceCache,
		)
	})
	return swapdReg
}

// RecordFee records one effective fee computation.
func (m *SwapdMetrics) RecordFee(campaign, tier string, feeBps int) {
	if m == nil {
		return
	}
	campaign = normalizeLabel(campaign)
	m.feeQuotes.WithLabelValues(campaign, normalizeLabel(tier)).Inc()
	m.effectiveFee.WithLabelValues(campaign).Observe(float64(feeBps))
}

// RecordSwap counts a swap attempt by outcome, e.g. "confirmed" or
// "quote_failed".
func (m *SwapdMetrics) RecordSwap(outcome string) {
	if m == nil {
		return
	}
	m.swaps.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveStep records how long one step of the swap flow took.
func (m *SwapdMetrics) ObserveStep(step string, duration time.Duration) {
	if m == nil {
		return
	}
	m.swapLatency.WithLabelValues(normalizeLabel(step)).Observe(duration.Seconds())
}

// RecordAuditAppend records whether an audit append reached the store.
func (m *SwapdMetrics) RecordAuditAppend(err error, size int) {
	if m == nil {
		return
	}
	outcome := "persisted"
	if err != nil {
		outcome = "error"
	}
	m.auditAppends.WithLabelValues(outcome).Inc()
	if err == nil {
		m.auditSize.Set(float64(size))
	}
}

// RecordRPC counts one chain RPC call against the primary or fallback
// endpoint.
func (m *SwapdMetrics) RecordRPC(endpoint, method string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.rpcCalls.WithLabelValues(normalizeLabel(endpoint), method, outcome).Inc()
}

// RecordBalanceCache counts balance cache hits and misses.
func (m *SwapdMetrics) RecordBalanceCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.balanceCache.WithLabelValues(result).Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return strings.ToLower(trimmed)
}
