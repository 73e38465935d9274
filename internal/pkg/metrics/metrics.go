// Package metrics exposes Prometheus collectors for the HTTP API
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bildungsfortschritt", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bildungsfortschritt", Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	ModuleCompletions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bildungsfortschritt", Name: "module_completions_total", Help: "Module completion toggles",
	}, []string{"action"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bildungsfortschritt", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, ModuleCompletions, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

// ObserveRequest records one finished request. route is the matched pattern, not the raw path.
func ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// RegisterPoolStats exposes connection pool gauges read on every scrape. A
// second registration keeps the first pool's gauges.
func RegisterPoolStats(stat func() *pgxpool.Stat) error {
	gauge := func(name, help string, read func(*pgxpool.Stat) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "bildungsfortschritt", Name: name, Help: help,
		}, func() float64 { return float64(read(stat())) })
	}

	collectors := []prometheus.Collector{
		gauge("db_pool_acquired_conns", "Pool connections in use", (*pgxpool.Stat).AcquiredConns),
		gauge("db_pool_idle_conns", "Idle pool connections", (*pgxpool.Stat).IdleConns),
		gauge("db_pool_total_conns", "Open pool connections", (*pgxpool.Stat).TotalConns),
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
