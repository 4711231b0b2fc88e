package observability

import (
	"time"

	"github.com/graficahorizonte/payments-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the payments service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	gatewayErrors   *prometheus.CounterVec
	tokenRefreshes  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	chargesTotal    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payments_operation_duration_seconds",
				Help:    "Duration of payment operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		gatewayErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_gateway_errors_total",
				Help: "Total errors from the Efí gateway by operation.",
			},
			[]string{"operation"},
		),
		tokenRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_token_refreshes_total",
				Help: "Total OAuth token fetches by API.",
			},
			[]string{"api"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		chargesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_charges_total",
				Help: "Total charges created by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
	}
}

// RecordOperationDuration records the duration of a payment operation.
func (m *Metrics) RecordOperationDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrGatewayError increments the gateway error counter.
func (m *Metrics) IncrGatewayError(operation string) {
	m.gatewayErrors.WithLabelValues(operation).Inc()
}

// IncrTokenRefresh counts an OAuth token fetch against an API root.
func (m *Metrics) IncrTokenRefresh(api string) {
	m.tokenRefreshes.WithLabelValues(api).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrCharge counts a charge creation attempt by method and outcome.
func (m *Metrics) IncrCharge(method, outcome string) {
	m.chargesTotal.WithLabelValues(method, outcome).Inc()
}

// GetPaymentsSnapshot returns a snapshot of payment metrics suitable
// for the GET /v1/metrics/payments endpoint.
func (m *Metrics) GetPaymentsSnapshot() *domain.PaymentsMetrics {
	pixOK := getCounterValue(m.chargesTotal, domain.PaymentMethodPix, "success")
	pixErr := getCounterValue(m.chargesTotal, domain.PaymentMethodPix, "error")
	cardOK := getCounterValue(m.chargesTotal, domain.PaymentMethodCard, "success")
	cardErr := getCounterValue(m.chargesTotal, domain.PaymentMethodCard, "error")
	linkOK := getCounterValue(m.chargesTotal, domain.PaymentMethodLink, "success")
	linkErr := getCounterValue(m.chargesTotal, domain.PaymentMethodLink, "error")

	total := pixOK + pixErr + cardOK + cardErr + linkOK + linkErr
	errorRate := float64(0)
	if total > 0 {
		errorRate = (pixErr + cardErr + linkErr) / total
	}

	qrHits := getCounterValue(m.cacheHits, "qrcode")
	qrMisses := getCounterValue(m.cacheMisses, "qrcode")
	qrHitRate := float64(0)
	if qrHits+qrMisses > 0 {
		qrHitRate = qrHits / (qrHits + qrMisses)
	}

	return &domain.PaymentsMetrics{
		TotalCharges:   int64(total),
		PixCharges:     int64(pixOK),
		CardCharges:    int64(cardOK),
		PaymentLinks:   int64(linkOK),
		ErrorRate:      errorRate,
		QRCacheHitRate: qrHitRate,
		TokenRefreshes: int64(getCounterValue(m.tokenRefreshes, "pix") + getCounterValue(m.tokenRefreshes, "charge")),
		Period:         "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
