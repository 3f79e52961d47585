// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the Prometheus metrics of one pipeline run.
//
// A run is a batch process, not a server, so nothing is scraped. The
// metrics live in a private registry and are written once at the end
// of the run in the node exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bureau-foundation/staticrel/lib/buildjob"
)

const namespace = "staticrel"

// Metrics is the metric set of a run.
type Metrics struct {
	Registry *prometheus.Registry

	JobsRunning     prometheus.Gauge
	JobsTotal       *prometheus.CounterVec
	JobDuration     *prometheus.HistogramVec
	ArtifactBytes   *prometheus.GaugeVec
	PublishedAssets prometheus.Gauge
	LastRun         prometheus.Gauge
}

// New creates the metric set in a fresh registry. Every series carries
// the version being built as a constant label.
func New(version string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	labels := prometheus.Labels{"version": version}

	return &Metrics{
		Registry: registry,
		JobsRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "jobs_running",
			Help:        "Number of build jobs currently running",
			ConstLabels: labels,
		}),
		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "jobs_total",
			Help:        "Build jobs finished, by toolchain, status, and failing stage",
			ConstLabels: labels,
		}, []string{"toolchain", "status", "stage"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "job_duration_seconds",
			Help:        "Build job wall time in seconds",
			Buckets:     []float64{60, 300, 600, 1200, 1800, 3600, 7200, 14400},
			ConstLabels: labels,
		}, []string{"toolchain"}),
		ArtifactBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "artifact_bytes",
			Help:        "Size of the packaged artifact in bytes",
			ConstLabels: labels,
		}, []string{"toolchain"}),
		PublishedAssets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "published_assets",
			Help:        "Assets uploaded by the last publish",
			ConstLabels: labels,
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_run_timestamp_seconds",
			Help:        "Unix time the run finished",
			ConstLabels: labels,
		}),
	}
}

// RecordJobStart marks a job as running.
func (m *Metrics) RecordJobStart() {
	m.JobsRunning.Inc()
}

// RecordJobComplete records a finished job, including its artifact
// when one was produced.
func (m *Metrics) RecordJobComplete(result buildjob.Result) {
	m.JobsRunning.Dec()
	m.JobsTotal.WithLabelValues(result.Toolchain, string(result.Status), string(result.Stage)).Inc()
	m.JobDuration.WithLabelValues(result.Toolchain).Observe(result.Duration.Seconds())
	if result.Succeeded() && result.ArtifactSize > 0 {
		m.ArtifactBytes.WithLabelValues(result.Toolchain).Set(float64(result.ArtifactSize))
	}
}

// RecordPublished records the number of assets uploaded.
func (m *Metrics) RecordPublished(assets int) {
	m.PublishedAssets.Set(float64(assets))
}

// WriteTextfile stamps the finish time and writes every metric to path.
func (m *Metrics) WriteTextfile(path string, finished time.Time) error {
	m.LastRun.Set(float64(finished.Unix()))
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
