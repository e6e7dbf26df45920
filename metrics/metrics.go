// Package metrics runs the Prometheus-format metrics listener used by the
// engine's HTTP server.
package metrics

import (
	"context"
	"net/http"

	vmetrics "github.com/VictoriaMetrics/metrics"
)

// MetricsServer exposes all metrics registered through
// github.com/VictoriaMetrics/metrics on a dedicated listener.
type MetricsServer struct {
	name string
	srv  *http.Server
}

// New creates a metrics server listening on addr. The name is informational
// and prefixed onto nothing; metric names carry their own namespace.
func New(name, addr string) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		vmetrics.WritePrometheus(w, true)
	})
	return &MetricsServer{
		name: name,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}, nil
}

// ListenAndServe blocks serving the metrics endpoint.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
