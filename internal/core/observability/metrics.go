// Package observability holds the Prometheus collectors shared by the service.
package observability

import (
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of places provider calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream", "outcome"},
	)

	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Cache backend operations by op and result.",
		},
		[]string{"op", "result"},
	)

	redisOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Duration of redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	cacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	searchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Search requests by orchestrator state.",
		},
		[]string{"state"},
	)

	cacheTTLTier = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_ttl_tier_total",
			Help: "Page cache writes by adaptive TTL tier.",
		},
		[]string{"tier"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		},
		[]string{"name"},
	)

	breakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result.",
		},
		[]string{"name", "result"},
	)

	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Events dropped because the publish queue was full.",
		},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func serviceCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds, upstreamLatencySeconds,
		cacheOpTotal, redisOpDurationSeconds, cacheResults, searchRequests,
		cacheTTLTier, breakerState, breakerRequests, eventsDropped, buildInfo,
	}
}

var (
	mu      sync.Mutex
	enabled = true
)

// Init registers the collectors on reg. Registering twice on the same registry is a no-op.
func Init(reg prometheus.Registerer, on bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = on
	if reg == nil || !on {
		return
	}
	for _, c := range serviceCollectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func isEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	if !isEnabled() {
		return
	}
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, err error, durationSeconds float64) {
	if !isEnabled() {
		return
	}
	upstreamLatencySeconds.WithLabelValues(upstream, result(err)).Observe(durationSeconds)
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	if !isEnabled() {
		return
	}
	cacheOpTotal.WithLabelValues(op, result(err)).Inc()
	redisOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func AddCacheHits(n int) {
	if n > 0 && isEnabled() {
		cacheResults.WithLabelValues("hit").Add(float64(n))
	}
}

func AddCacheMisses(n int) {
	if n > 0 && isEnabled() {
		cacheResults.WithLabelValues("miss").Add(float64(n))
	}
}

func IncSearch(state string) {
	if isEnabled() {
		searchRequests.WithLabelValues(state).Inc()
	}
}

func IncTTLTier(tier string) {
	if isEnabled() {
		cacheTTLTier.WithLabelValues(tier).Inc()
	}
}

func SetBreakerState(name string, state float64) {
	if isEnabled() {
		breakerState.WithLabelValues(name).Set(state)
	}
}

func IncBreakerRequest(name, res string) {
	if isEnabled() {
		breakerRequests.WithLabelValues(name, res).Inc()
	}
}

func IncEventsDropped() {
	if isEnabled() {
		eventsDropped.Inc()
	}
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
