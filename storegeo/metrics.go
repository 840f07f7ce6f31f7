// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package storegeo

import (
	"context"
	"time"
)

const (
	MetricsOpReplaceChunk = "replace_chunk"
	MetricsOpReplaceBatch = "replace_batch"

	MetricsStageTotal = "total"

	// Chunk (tx-level) stages.
	MetricsStageAcquire     = "acquire"
	MetricsStageBegin       = "begin"
	MetricsStageStageCreate = "stage_create"
	MetricsStageStageCopy   = "stage_copy"
	MetricsStageDelete      = "delete"
	MetricsStageInsert      = "insert"
	MetricsStageCommit      = "commit"
)

// StageTiming is one timed step of a chunk or batch replace.
type StageTiming struct {
	Operation string
	Stage     string
	Protocol  Protocol
	Chunk     int // -1 for batch-level stages
	Duration  time.Duration
	Count     int
	Error     bool
}

type StageMetricsRecorder interface {
	ObserveStage(ctx context.Context, timing StageTiming)
}

type StageMetricsRecorderFunc func(ctx context.Context, timing StageTiming)

func (f StageMetricsRecorderFunc) ObserveStage(ctx context.Context, timing StageTiming) {
	f(ctx, timing)
}

// InFlightObserver is optionally implemented by a StageMetricsRecorder that
// wants to track how many chunk replaces are running right now.
type InFlightObserver interface {
	ChunkStarted()
	ChunkFinished()
}

func (l *Loader) stageTimingEnabled() bool {
	if l == nil || l.config == nil {
		return false
	}
	return l.config.StageMetrics != nil || l.config.LogStageTimings
}

func (l *Loader) stageStart() time.Time {
	if !l.stageTimingEnabled() {
		return time.Time{}
	}
	return time.Now()
}

func (l *Loader) observeStage(ctx context.Context, op, stage string, chunk int, start time.Time, count int, hadError bool) {
	if start.IsZero() || l == nil || l.config == nil {
		return
	}

	timing := StageTiming{
		Operation: op,
		Stage:     stage,
		Protocol:  l.config.Protocol,
		Chunk:     chunk,
		Duration:  time.Since(start),
		Count:     count,
		Error:     hadError,
	}

	if l.config.StageMetrics != nil {
		l.config.StageMetrics.ObserveStage(ctx, timing)
	}
	if l.config.LogStageTimings && l.logger != nil {
		l.logger.Debug("Stage timing",
			"op", timing.Operation,
			"stage", timing.Stage,
			"protocol", timing.Protocol,
			"chunk", timing.Chunk,
			"duration", timing.Duration,
			"count", timing.Count,
			"error", timing.Error,
		)
	}
}

func (l *Loader) chunkStarted() {
	if o, ok := l.config.StageMetrics.(InFlightObserver); ok {
		o.ChunkStarted()
	}
}

func (l *Loader) chunkFinished() {
	if o, ok := l.config.StageMetrics.(InFlightObserver); ok {
		o.ChunkFinished()
	}
}
