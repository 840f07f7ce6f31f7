// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package metrics exports loader stage timings as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mobiletoly/go-storegeo/storegeo"
)

const namespace = "storegeo"

// Recorder implements storegeo.StageMetricsRecorder and storegeo.InFlightObserver.
type Recorder struct {
	stageDuration  *prometheus.HistogramVec
	stageErrors    *prometheus.CounterVec
	rowsWritten    *prometheus.CounterVec
	chunksInFlight prometheus.Gauge
	batches        *prometheus.CounterVec
}

var (
	_ storegeo.StageMetricsRecorder = (*Recorder)(nil)
	_ storegeo.InFlightObserver     = (*Recorder)(nil)
)

// NewRecorder registers the loader metrics with reg. A nil reg uses the
// default Prometheus registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each stage of a chunk or batch replace",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"op", "stage", "protocol"}),
		stageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Stages that ended with an error",
		}, []string{"op", "stage", "protocol"}),
		rowsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows inserted by committed chunk transactions",
		}, []string{"protocol"}),
		chunksInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks_in_flight",
			Help:      "Chunk replaces currently holding a connection",
		}),
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Finished batch replaces by outcome",
		}, []string{"protocol", "success"}),
	}
}

func (r *Recorder) ObserveStage(ctx context.Context, timing storegeo.StageTiming) {
	protocol := string(timing.Protocol)
	r.stageDuration.WithLabelValues(timing.Operation, timing.Stage, protocol).Observe(timing.Duration.Seconds())
	if timing.Error {
		r.stageErrors.WithLabelValues(timing.Operation, timing.Stage, protocol).Inc()
	}

	if timing.Stage != storegeo.MetricsStageTotal {
		return
	}
	switch timing.Operation {
	case storegeo.MetricsOpReplaceChunk:
		if !timing.Error {
			r.rowsWritten.WithLabelValues(protocol).Add(float64(timing.Count))
		}
	case storegeo.MetricsOpReplaceBatch:
		r.batches.WithLabelValues(protocol, strconv.FormatBool(!timing.Error)).Inc()
	}
}

func (r *Recorder) ChunkStarted()  { r.chunksInFlight.Inc() }
func (r *Recorder) ChunkFinished() { r.chunksInFlight.Dec() }

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
