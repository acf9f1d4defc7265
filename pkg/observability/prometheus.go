package observability

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics on a private Prometheus registry.
// Collectors are created on first use; the label names of a metric are fixed
// by the tags passed the first time it is recorded.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusMetrics creates a registry preloaded with the Go runtime and
// process collectors.
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &PrometheusMetrics{
		registry:   reg,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry exposes the underlying registry.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PrometheusMetrics) Counter(name string, value int64, tags ...Tag) {
	keys, labels := splitTags(tags)
	m.mu.Lock()
	vec, ok := m.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: helpFor(name)}, keys)
		if err := m.registry.Register(vec); err != nil {
			m.mu.Unlock()
			return
		}
		m.counters[name] = vec
	}
	m.mu.Unlock()
	if c, err := vec.GetMetricWith(labels); err == nil {
		c.Add(float64(value))
	}
}

func (m *PrometheusMetrics) Gauge(name string, value float64, tags ...Tag) {
	keys, labels := splitTags(tags)
	m.mu.Lock()
	vec, ok := m.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: helpFor(name)}, keys)
		if err := m.registry.Register(vec); err != nil {
			m.mu.Unlock()
			return
		}
		m.gauges[name] = vec
	}
	m.mu.Unlock()
	if g, err := vec.GetMetricWith(labels); err == nil {
		g.Set(value)
	}
}

func (m *PrometheusMetrics) Histogram(name string, value float64, tags ...Tag) {
	keys, labels := splitTags(tags)
	m.mu.Lock()
	vec, ok := m.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    helpFor(name),
			Buckets: prometheus.DefBuckets,
		}, keys)
		if err := m.registry.Register(vec); err != nil {
			m.mu.Unlock()
			return
		}
		m.histograms[name] = vec
	}
	m.mu.Unlock()
	if h, err := vec.GetMetricWith(labels); err == nil {
		h.Observe(value)
	}
}

// Timing records the duration in seconds on a histogram.
func (m *PrometheusMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	m.Histogram(name, duration.Seconds(), tags...)
}

func splitTags(tags []Tag) ([]string, prometheus.Labels) {
	labels := make(prometheus.Labels, len(tags))
	for _, t := range tags {
		labels[t.Key] = t.Value
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, labels
}

func helpFor(name string) string {
	return strings.ReplaceAll(strings.TrimPrefix(name, "hearth_"), "_", " ")
}
