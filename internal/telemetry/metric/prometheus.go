package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hotroute"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Reload metrics
	ReloadsTotal   *prometheus.CounterVec
	ReloadDuration prometheus.Histogram
	RouteModules   prometheus.Gauge
	Handlers       prometheus.Gauge

	// Watch metrics
	WatchGroups      prometheus.Gauge
	WatchEventsTotal *prometheus.CounterVec

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates the metrics and registers them, together with the Go
// runtime and process collectors, on a private registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		ReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Route module loads by cause and result.",
		}, []string{"trigger", "result"}),
		ReloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reload_duration_seconds",
			Help:      "Time spent loading a route module.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		RouteModules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "route_modules",
			Help:      "Route module files currently tracked.",
		}),
		Handlers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "handlers",
			Help:      "Routes in the handler list.",
		}),
		WatchGroups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watch_groups",
			Help:      "Watched directories.",
		}),
		WatchEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "File events handled, by kind.",
		}, []string{"kind"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ReloadsTotal,
		r.ReloadDuration,
		r.RouteModules,
		r.Handlers,
		r.WatchGroups,
		r.WatchEventsTotal,
		r.RequestsTotal,
		r.RequestDuration,
	)
	return r
}

// Gatherer returns the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveReload records one load attempt.
func (r *Registry) ObserveReload(trigger string, err error, d time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.ReloadsTotal.WithLabelValues(trigger, result).Inc()
	r.ReloadDuration.Observe(d.Seconds())
}

// ObserveRequest records one served request.
func (r *Registry) ObserveRequest(method string, code int, d time.Duration) {
	r.RequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	r.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}
