// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package metrics exposes run progress as Prometheus metrics.
//
// Collector is a progress.Reporter, so it is attached to a run with
// orchestrator.WithReporter (usually combined with other reporters).
package metrics

import (
	"github.com/matt-FFFFFF/runscripts/internal/progress"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "runscripts"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var _ progress.Reporter = (*Collector)(nil)

// CollectorConfig describes the run being measured.
type CollectorConfig struct {
	Version  string
	Shell    string
	Parallel string
	Scripts  int
}

// Collector turns progress events into metrics. It is safe for concurrent use.
type Collector struct {
	info         *prometheus.GaugeVec
	scripts      prometheus.Gauge
	started      prometheus.Counter
	finished     *prometheus.CounterVec
	active       prometheus.Gauge
	outputBytes  *prometheus.CounterVec
	outputChunks *prometheus.CounterVec
	kills        prometheus.Counter
	duration     prometheus.Histogram
}

// NewCollector registers the run metrics with registry.
func NewCollector(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "info",
				Help:      "Information about the run (value always 1)",
			},
			[]string{"version", "shell", "parallel"},
		),
		scripts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scripts",
			Help:      "Number of scripts in the run",
		}),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scripts_started_total",
			Help:      "Scripts that were launched",
		}),
		finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scripts_finished_total",
				Help:      "Scripts that finished, by result",
			},
			[]string{"result"},
		),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scripts_active",
			Help:      "Scripts currently running",
		}),
		outputBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "output_bytes_total",
				Help:      "Bytes of script output, by stream",
			},
			[]string{"stream"},
		),
		outputChunks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "output_chunks_total",
				Help:      "Chunks of script output, by stream",
			},
			[]string{"stream"},
		),
		kills: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kill_requests_total",
			Help:      "Signals sent to running scripts",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "script_duration_seconds",
			Help:      "Wall time of finished scripts",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}

	registry.MustRegister(
		c.info,
		c.scripts,
		c.started,
		c.finished,
		c.active,
		c.outputBytes,
		c.outputChunks,
		c.kills,
		c.duration,
	)

	c.info.WithLabelValues(cfg.Version, cfg.Shell, cfg.Parallel).Set(1)
	c.scripts.Set(float64(cfg.Scripts))

	// Pre-create label sets so that zero values are exported.
	c.finished.WithLabelValues(ResultSuccess)
	c.finished.WithLabelValues(ResultFailure)
	c.outputBytes.WithLabelValues("stdout")
	c.outputBytes.WithLabelValues("stderr")

	return c
}

// Report implements progress.Reporter.
func (c *Collector) Report(e progress.Event) {
	switch e.Type {
	case progress.EventStarted:
		c.started.Inc()
		c.active.Inc()
	case progress.EventOutput:
		stream := "stdout"
		if e.Data.IsStderr {
			stream = "stderr"
		}

		c.outputBytes.WithLabelValues(stream).Add(float64(e.Data.Bytes))
		c.outputChunks.WithLabelValues(stream).Inc()
	case progress.EventCompleted:
		c.finish(ResultSuccess, e)
	case progress.EventFailed:
		c.finish(ResultFailure, e)
	case progress.EventKillRequested:
		c.kills.Inc()
	}
}

func (c *Collector) finish(result string, e progress.Event) {
	c.finished.WithLabelValues(result).Inc()

	// Launch failures never became active.
	if e.Data.Error == nil {
		c.active.Dec()
		c.duration.Observe(e.Data.Duration.Seconds())
	}
}

// Close implements progress.Reporter. Metrics stay readable after Close.
func (c *Collector) Close() {}
