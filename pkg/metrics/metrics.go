// Package metrics exposes Prometheus instrumentation for pages.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/junaikey/livecache/pkg/models"
	"github.com/junaikey/livecache/pkg/reconcile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "livecache"

type Metrics struct {
	events             *prometheus.CounterVec
	scopes             *prometheus.CounterVec
	subscriptionErrors *prometheus.CounterVec
	mutations          *prometheus.CounterVec
	cacheSize          *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Change events reconciled, by table, action and outcome.",
		}, []string{"table", "action", "outcome"}),
		scopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scope_establishments_total",
			Help:      "Scope establishments and refreshes, by table and result.",
		}, []string{"table", "result"}),
		subscriptionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_errors_total",
			Help:      "Subscriptions that failed to open or dropped.",
		}, []string{"table"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Create, update and delete calls issued by pages.",
		}, []string{"table", "verb", "result"}),
		cacheSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entities",
			Help:      "Entities currently cached, by table.",
		}, []string{"table"}),
	}

	for _, c := range []prometheus.Collector{m.events, m.scopes, m.subscriptionErrors, m.mutations, m.cacheSize} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering livecache metrics: %w", err)
		}
	}

	return m, nil
}

// For returns the metrics of the page showing table.
func (m *Metrics) For(table models.Table) *PageMetrics {
	return &PageMetrics{m: m, table: table.String()}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// PageMetrics records the metrics of one page. A nil *PageMetrics records nothing.
type PageMetrics struct {
	m     *Metrics
	table string
}

func (p *PageMetrics) ObserveEvent(action models.Action, outcome reconcile.Outcome) {
	if p == nil {
		return
	}
	p.m.events.WithLabelValues(p.table, string(action), outcome.String()).Inc()
}

func (p *PageMetrics) ObserveScope(err error) {
	if p == nil {
		return
	}
	p.m.scopes.WithLabelValues(p.table, result(err)).Inc()
}

func (p *PageMetrics) ObserveSubscriptionError() {
	if p == nil {
		return
	}
	p.m.subscriptionErrors.WithLabelValues(p.table).Inc()
}

func (p *PageMetrics) ObserveMutation(verb string, err error) {
	if p == nil {
		return
	}
	p.m.mutations.WithLabelValues(p.table, verb, result(err)).Inc()
}

func (p *PageMetrics) SetCacheSize(n int) {
	if p == nil {
		return
	}
	p.m.cacheSize.WithLabelValues(p.table).Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
