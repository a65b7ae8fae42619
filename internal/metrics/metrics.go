// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package metrics defines Prometheus metrics for the bot.
//
// All metrics are registered with [Registry], which is served by [Handler].
// Names use the truckdoc_ prefix, _total for counters and _seconds for
// duration histograms.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric of this package and the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var (
	// UpdatesTotal counts webhook updates by kind.
	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truckdoc_updates_total",
			Help: "Total Telegram updates received by kind.",
		},
		[]string{"kind"},
	)

	// LookupsTotal counts vehicle lookups by result.
	LookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truckdoc_lookups_total",
			Help: "Total vehicle lookups by result.",
		},
		[]string{"result"},
	)

	// FaultsReported is a histogram of active faults per found vehicle.
	FaultsReported = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "truckdoc_faults_reported",
			Help:    "Number of active faults per found vehicle.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	// AdvisoryTotal counts text generation attempts by provider and status.
	AdvisoryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truckdoc_advisory_total",
			Help: "Total advisory generation attempts by provider and status.",
		},
		[]string{"provider", "status"},
	)

	// UpstreamDurationSeconds is a histogram of upstream call durations.
	UpstreamDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "truckdoc_upstream_duration_seconds",
			Help:    "Duration of upstream API calls in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		UpdatesTotal,
		LookupsTotal,
		FaultsReported,
		AdvisoryTotal,
		UpstreamDurationSeconds,
	)
}

// Handler returns the HTTP handler exposing [Registry].
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// RecordUpdate records a received update.
func RecordUpdate(kind string) {
	UpdatesTotal.WithLabelValues(kind).Inc()
}

// RecordLookup records the result of a vehicle lookup.
func RecordLookup(result string) {
	LookupsTotal.WithLabelValues(result).Inc()
}

// RecordFaults records the number of faults reported for a vehicle.
func RecordFaults(n int) {
	FaultsReported.Observe(float64(n))
}

// RecordAdvisory records one text generation attempt.
func RecordAdvisory(provider, status string) {
	AdvisoryTotal.WithLabelValues(provider, status).Inc()
}

// ObserveUpstream records the duration of an upstream call started at start.
func ObserveUpstream(op string, start time.Time) {
	UpstreamDurationSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
