// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package storegeo replaces rows of the store geography table from an in-memory
// record set, one transaction per chunk, with a bounded number of sessions.
package storegeo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultChunkSize      = 2000
	DefaultMaxConcurrency = 4
)

// Protocol selects how a chunk is replaced inside its transaction.
type Protocol string

const (
	// ProtocolStaged copies the chunk into a temporary table, then deletes
	// matching target rows with a join and inserts from the staging table.
	ProtocolStaged Protocol = "staged"
	// ProtocolDirect deletes by a bound key array, then inserts with
	// parameterized multi-row INSERT statements.
	ProtocolDirect Protocol = "direct"
)

func (p Protocol) valid() bool {
	return p == ProtocolStaged || p == ProtocolDirect
}

// Config holds configuration for the loader
type Config struct {
	Table           TargetTable     // Target table (default plappl."POG_STR_GEO")
	ChunkSize       int             // Records per transaction, must be positive
	MaxConcurrency  int             // Chunks replaced concurrently per wave, must be positive
	Protocol        Protocol        // Replace protocol (default staged)
	DuplicatePolicy DuplicatePolicy // Handling of repeated store keys (default reject)

	// CancelOnFailure cancels the context of the other chunks in a wave as soon
	// as one of them fails. By default siblings run to their natural completion.
	CancelOnFailure bool

	StageMetrics    StageMetricsRecorder // Optional per-stage timing sink
	LogStageTimings bool                 // Log every stage timing at debug level
}

// DefaultConfig returns a Config with the default chunk size and concurrency.
func DefaultConfig() *Config {
	return &Config{
		Table:           DefaultTargetTable(),
		ChunkSize:       DefaultChunkSize,
		MaxConcurrency:  DefaultMaxConcurrency,
		Protocol:        ProtocolStaged,
		DuplicatePolicy: DuplicateReject,
	}
}

// Validate reports configuration errors. Empty table, protocol and policy
// fields are treated as their defaults; sizes are never defaulted.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("%w: max concurrency must be positive, got %d", ErrInvalidConfig, c.MaxConcurrency)
	}
	if c.Protocol != "" && !c.Protocol.valid() {
		return fmt.Errorf("%w: unknown protocol %q", ErrInvalidConfig, c.Protocol)
	}
	if c.DuplicatePolicy != "" && !c.DuplicatePolicy.valid() {
		return fmt.Errorf("%w: unknown duplicate policy %q", ErrInvalidConfig, c.DuplicatePolicy)
	}
	if c.Table != (TargetTable{}) {
		if err := c.Table.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Table == (TargetTable{}) {
		c.Table = DefaultTargetTable()
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolStaged
	}
	if c.DuplicatePolicy == "" {
		c.DuplicatePolicy = DuplicateReject
	}
	return c
}

// BatchResult is the outcome of a successful ReplaceAll.
type BatchResult struct {
	BatchID           uuid.UUID
	Rows              int // records written to the target table
	DuplicatesDropped int // earlier occurrences dropped by DuplicateKeepLast
	Chunks            int
	Waves             int
	Elapsed           time.Duration
}

// Loader replaces store geography rows in chunks, bounding concurrent sessions.
type Loader struct {
	pool    Pool
	logger  *slog.Logger
	config  *Config
	builder *queryBuilder

	mu       sync.RWMutex
	closed   bool
	inFlight sync.WaitGroup
}

// NewLoader creates a loader on top of an existing pool. The configuration is
// validated eagerly so that no database work starts with a bad setup.
func NewLoader(pool Pool, config *Config, logger *slog.Logger) (*Loader, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: pool is required", ErrInvalidConfig)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cfg := config.withDefaults()
	builder, err := newQueryBuilder(cfg.Table, Columns)
	if err != nil {
		return nil, err
	}

	return &Loader{
		pool:    pool,
		logger:  logger,
		config:  &cfg,
		builder: builder,
	}, nil
}

// Config returns a copy of the effective configuration.
func (l *Loader) Config() Config {
	return *l.config
}

// Close marks the loader closed and waits for running batches to finish.
// It's safe to call multiple times. The pool is not closed.
func (l *Loader) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.inFlight.Wait()
	l.logger.Debug("Loader shutdown complete")
	return nil
}

func (l *Loader) begin() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrLoaderClosed
	}
	l.inFlight.Add(1)
	return nil
}

// ReplaceAll replaces the target rows for every record. Records are split into
// chunks of Config.ChunkSize; each chunk is replaced in its own transaction on
// its own connection, at most Config.MaxConcurrency at a time, in waves.
//
// On failure the first failing chunk is returned as a *ChunkError once the rest
// of its wave has finished. Chunks of earlier waves and successful siblings in
// the failing wave stay committed; later waves are never started. Callers that
// retry must retry the whole batch, which is safe because replace is idempotent.
func (l *Loader) ReplaceAll(ctx context.Context, records []StoreGeography) (*BatchResult, error) {
	if err := l.begin(); err != nil {
		return nil, err
	}
	defer l.inFlight.Done()

	start := time.Now()
	total := l.stageStart()
	result := &BatchResult{BatchID: uuid.New()}
	logger := l.logger.With("batch_id", result.BatchID.String(), "table", l.config.Table.String())

	rows, dropped, err := prepareKeys(records, l.config.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		logger.Warn("Dropped duplicate store keys, keeping last occurrence", "dropped", dropped)
	}
	result.DuplicatesDropped = dropped

	chunks := Chunk(rows, l.config.ChunkSize)
	result.Chunks = len(chunks)
	if len(chunks) == 0 {
		result.Elapsed = time.Since(start)
		logger.Info("Nothing to replace")
		return result, nil
	}

	logger.Debug("Starting batch replace",
		"rows", len(rows),
		"chunks", len(chunks),
		"chunk_size", l.config.ChunkSize,
		"max_concurrency", l.config.MaxConcurrency,
		"protocol", l.config.Protocol,
	)

	waves, err := runWaves(ctx, len(chunks), l.config.MaxConcurrency, l.config.CancelOnFailure,
		func(ctx context.Context, i int) error {
			return l.replaceChunk(ctx, logger, i, chunks[i])
		})
	result.Waves = waves
	result.Elapsed = time.Since(start)
	l.observeStage(ctx, MetricsOpReplaceBatch, MetricsStageTotal, -1, total, len(rows), err != nil)

	if err != nil {
		var chunkErr *ChunkError
		if !errors.As(err, &chunkErr) {
			err = fmt.Errorf("batch replace aborted: %w", err)
		}
		logger.Error("Batch replace failed", "error", err, "waves", waves, "elapsed", result.Elapsed)
		return nil, err
	}

	result.Rows = len(rows)
	logger.Info("Batch replace complete",
		"rows", result.Rows,
		"chunks", result.Chunks,
		"waves", result.Waves,
		"elapsed", result.Elapsed,
	)
	return result, nil
}
