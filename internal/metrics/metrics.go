// Package metrics holds the Prometheus instrumentation of the API process.
//
//	moviehub_http_requests_total          counter: requests by method/route/status
//	moviehub_http_request_duration_seconds histogram: latency by route
//	moviehub_import_total                  counter: TMDB imports by kind/result
//	moviehub_counter_flush_total           counter: buffered counter keys flushed
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moviehub_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "moviehub_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"route"})

var Imports = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moviehub_import_total",
	Help: "TMDB imports by content kind and result.",
}, []string{"kind", "result"})

var CounterFlushes = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moviehub_counter_flush_total",
	Help: "Buffered counter keys written to the store.",
})

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency. The route label is the
// matched ServeMux pattern, never the raw path.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &StatusWriter{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rw, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.Status)).Inc()
		HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// StatusWriter captures the status code written by a handler.
type StatusWriter struct {
	http.ResponseWriter
	Status int
}

func (w *StatusWriter) WriteHeader(code int) {
	w.Status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *StatusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Hijack is needed for websocket upgrades.
func (w *StatusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.Status = http.StatusSwitchingProtocols
	return hj.Hijack()
}
