// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package metrics registers the Prometheus counters and histograms the
// bulk scan coordinator updates from its worker pool: scan counts by
// outcome, tier distribution, clone retries, and phase durations.
package metrics

import (
	"sync"
	"time"

	"github.com/kraklabs/traur/pkg/scoring"
	"github.com/prometheus/client_golang/prometheus"
)

type scanMetrics struct {
	once sync.Once

	scansTotal   prometheus.Counter
	scanErrors   prometheus.Counter
	cloneRetries prometheus.Counter
	tierTotal    *prometheus.CounterVec

	scanDuration  prometheus.Histogram
	cloneDuration prometheus.Histogram
}

var m scanMetrics

func (sm *scanMetrics) init() {
	sm.once.Do(func() {
		sm.scansTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traur_scans_total", Help: "Total packages scanned.",
		})
		sm.scanErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traur_scan_errors_total", Help: "Scans that failed to build a context.",
		})
		sm.cloneRetries = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traur_clone_retries_total", Help: "Recipe repository clone/pull retry attempts.",
		})
		sm.tierTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "traur_tier_total", Help: "Scans by resulting tier.",
		}, []string{"tier"})

		buckets := []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
		sm.scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "traur_scan_duration_seconds", Help: "Wall time of one package's context-build + analyze + score.", Buckets: buckets,
		})
		sm.cloneDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "traur_clone_duration_seconds", Help: "Wall time of one recipe repository clone or pull.", Buckets: buckets,
		})

		prometheus.MustRegister(
			sm.scansTotal, sm.scanErrors, sm.cloneRetries, sm.tierTotal,
			sm.scanDuration, sm.cloneDuration,
		)
	})
}

// RecordScan records one completed scan's tier and wall-clock duration.
func RecordScan(tier scoring.Tier, duration time.Duration) {
	m.init()
	m.scansTotal.Inc()
	m.tierTotal.WithLabelValues(string(tier)).Inc()
	m.scanDuration.Observe(duration.Seconds())
}

// RecordScanError records a scan that never produced a result (context
// build failed after retries).
func RecordScanError() {
	m.init()
	m.scanErrors.Inc()
}

// RecordCloneRetry records one retry attempt by CloneWithRetry.
func RecordCloneRetry() {
	m.init()
	m.cloneRetries.Inc()
}

// RecordCloneDuration records the wall-clock time of one clone or pull.
func RecordCloneDuration(duration time.Duration) {
	m.init()
	m.cloneDuration.Observe(duration.Seconds())
}
