// Package metrics exposes client-side Prometheus metrics for API calls,
// token refreshes and task polls.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhle/adsdash/internal/model"
)

// Collector holds the application's metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	refreshes *prometheus.CounterVec
	tasks     *prometheus.CounterVec
}

// New creates a collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adsdash",
			Name:      "api_requests_total",
			Help:      "API requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "adsdash",
			Name:      "api_request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adsdash",
			Name:      "token_refreshes_total",
			Help:      "Access token refresh attempts by outcome.",
		}, []string{"outcome"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adsdash",
			Name:      "task_status_observed_total",
			Help:      "Task statuses observed while polling.",
		}, []string{"status"}),
	}
	c.registry.MustRegister(c.requests, c.latency, c.refreshes, c.tasks)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRequest records one HTTP round trip. Status 0 is a transport error.
func (c *Collector) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	route := Route(path)
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	c.requests.WithLabelValues(method, route, code).Inc()
	c.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveRefresh records a token refresh attempt.
func (c *Collector) ObserveRefresh(ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	c.refreshes.WithLabelValues(outcome).Inc()
}

// TaskObserved records a polled task status.
func (c *Collector) TaskObserved(status model.TaskStatus) {
	if status == "" {
		return
	}
	c.tasks.WithLabelValues(string(status)).Inc()
}

// Route collapses ids in an API path so the label set stays bounded, e.g.
// /api/customer/customers/42/ becomes /api/customer/customers/:id/.
func Route(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if isID(p) || (i > 0 && parts[i-1] == "tasks") {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func isID(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Handler returns a router serving /metrics and /healthz.
func (c *Collector) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	return r
}

// Serve listens on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: c.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics: %w", err)
	}
	return nil
}
