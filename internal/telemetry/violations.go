// Package telemetry exposes the tenant scope violation counter for scraping.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sellerdesk/backend/internal/apperr"
)

const namespace = "tenant"

// Violations counts missing-scope conditions by kind. Any non-zero rate should page.
type Violations struct {
	counter   *prometheus.CounterVec
	threshold prometheus.Gauge
}

// NewViolations registers the counter (pre-initialised for every known kind so the series
// exists at zero) and the informational alert threshold gauge.
func NewViolations(reg prometheus.Registerer, alertThreshold float64) *Violations {
	v := &Violations{
		counter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scope_violations_total",
			Help:      "Statements or operations detected without a verifiable tenant scope.",
		}, []string{"kind"}),
		threshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scope_violation_alert_threshold",
			Help:      "Configured alert threshold for scope violations (informational).",
		}),
	}
	for _, kind := range Kinds() {
		v.counter.WithLabelValues(kind)
	}
	v.threshold.Set(alertThreshold)
	if reg != nil {
		reg.MustRegister(v.counter, v.threshold)
	}
	return v
}

// Kinds lists every label value the counter is initialised with.
func Kinds() []string {
	return []string{
		apperr.KindMissingOrgID,
		apperr.KindMissingFilterToken,
		KindUnscopedRoute,
		KindUnscopedView,
		KindUnlistedUnscopedCall,
	}
}

// Auditor violation kinds.
const (
	KindUnscopedRoute        = "unscoped_route"
	KindUnscopedView         = "unscoped_view"
	KindUnlistedUnscopedCall = "unlisted_unscoped_call"
)

// Inc records one violation of the given kind. Safe on a nil receiver.
func (v *Violations) Inc(kind string) {
	if v == nil {
		return
	}
	v.counter.WithLabelValues(kind).Inc()
}

// Counter exposes the underlying vector, mainly for tests.
func (v *Violations) Counter() *prometheus.CounterVec {
	return v.counter
}

// Handler returns the pull endpoint for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
