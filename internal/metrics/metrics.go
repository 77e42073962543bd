package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the service's collectors. Each instance has its own
// prometheus.Registry so tests can create as many as they like.
type Registry struct {
	reg *prometheus.Registry

	PurchasesConfirmed prometheus.Counter
	CostChanges        prometheus.Counter
	AuditLogFailures   prometheus.Counter
	ImportedLines      prometheus.Counter
	SeededItems        prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	HTTPLatencySec     *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	confirmed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "purchases_confirmed_total",
		Help: "Purchases moved from draft to confirmed.",
	})
	costChanges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cost_changes_total",
		Help: "Cost history rows written on confirmation.",
	})
	auditFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_log_failures_total",
		Help: "Failed appends to the CSV audit log.",
	})
	imported := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "history_import_lines_total",
		Help: "Purchase lines replayed from history CSV uploads.",
	})
	seeded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_seed_items_total",
		Help: "Catalog items inserted by CSV seeding.",
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	r.MustRegister(confirmed, costChanges, auditFailures, imported, seeded, requests, latency)
	return &Registry{
		reg:                r,
		PurchasesConfirmed: confirmed,
		CostChanges:        costChanges,
		AuditLogFailures:   auditFailures,
		ImportedLines:      imported,
		SeededItems:        seeded,
		HTTPRequests:       requests,
		HTTPLatencySec:     latency,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
