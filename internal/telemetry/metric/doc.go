// Package metric provides Prometheus metrics for hotroute.
//
// Every Registry owns a private prometheus.Registry, so several servers in
// one process (tests) never collide on metric names. Metrics include:
//
//   - Route reloads by cause and result
//   - Tracked route modules, handlers and watch groups
//   - File watch events by kind
//   - HTTP requests by method and status code
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
