// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/recipevault/pkg/types"
)

// Scrape results.
const (
	ResultOK           = "ok"
	ResultFetchError   = "fetch_error"
	ResultPersistError = "persist_error"
	ResultInputError   = "input_error"
)

// Metrics holds the Prometheus collectors of the service. Each instance owns
// its registry so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	scrapesTotal       *prometheus.CounterVec
	fetchDuration      *prometheus.HistogramVec
	extractionDuration prometheus.Histogram
	fieldRuleTotal     *prometheus.CounterVec
	storeOperations    *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "recipevault"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		scrapesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scrapes_total",
				Help:      "Total number of scrape requests by result",
			},
			[]string{"result"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Time spent retrieving recipe pages",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		extractionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "extraction_duration_seconds",
				Help:      "Time spent extracting a recipe from a page",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
		),
		fieldRuleTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "field_rule_total",
				Help:      "Winning cascade rule per field; none means the default was used",
			},
			[]string{"field", "rule"},
		),
		storeOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Store operations by kind and result",
			},
			[]string{"op", "result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(
		m.scrapesTotal,
		m.fetchDuration,
		m.extractionDuration,
		m.fieldRuleTotal,
		m.storeOperations,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveFetch records a page retrieval.
func (m *Metrics) ObserveFetch(d time.Duration, err error) {
	m.fetchDuration.WithLabelValues(resultLabel(err)).Observe(d.Seconds())
}

// ObserveExtraction records the extraction time and the winning rule of
// every field.
func (m *Metrics) ObserveExtraction(d time.Duration, p *types.Provenance) {
	m.extractionDuration.Observe(d.Seconds())
	if p == nil {
		return
	}
	m.fieldRuleTotal.WithLabelValues("title", ruleLabel(p.Title)).Inc()
	m.fieldRuleTotal.WithLabelValues("image", ruleLabel(p.Image)).Inc()
	m.fieldRuleTotal.WithLabelValues("ingredients", ruleLabel(p.Ingredients)).Inc()
	m.fieldRuleTotal.WithLabelValues("instructions", ruleLabel(p.Instructions)).Inc()
}

// ObserveScrape counts a finished scrape request.
func (m *Metrics) ObserveScrape(result string) {
	m.scrapesTotal.WithLabelValues(result).Inc()
}

// ObserveStoreOp counts a store operation.
func (m *Metrics) ObserveStoreOp(op string, err error) {
	m.storeOperations.WithLabelValues(op, resultLabel(err)).Inc()
}

// ObserveHTTPRequest records a served request.
func (m *Metrics) ObserveHTTPRequest(route, method string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ruleLabel(idx int) string {
	if idx < 0 {
		return "none"
	}
	return strconv.Itoa(idx)
}
