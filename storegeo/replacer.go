// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package storegeo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// Upper bound for a rollback issued after the chunk context was cancelled.
const rollbackTimeout = 15 * time.Second

// replaceChunk replaces one chunk in a single transaction on one dedicated
// connection. The connection is released exactly once and the transaction is
// resolved (commit or rollback) exactly once on every path out of here.
func (l *Loader) replaceChunk(ctx context.Context, logger *slog.Logger, index int, chunk []StoreGeography) (err error) {
	l.chunkStarted()
	defer l.chunkFinished()

	total := l.stageStart()
	defer func() {
		l.observeStage(ctx, MetricsOpReplaceChunk, MetricsStageTotal, index, total, len(chunk), err != nil)
	}()

	fail := func(stage string, cause error) error {
		chunkErr := &ChunkError{Index: index, Rows: len(chunk), Stage: stage, Err: cause}
		logger.Error("Chunk replace failed",
			"chunk", index,
			"rows", len(chunk),
			"stage", stage,
			"class", chunkErr.Class().String(),
			"error", cause,
		)
		return chunkErr
	}

	start := l.stageStart()
	conn, err := l.pool.Acquire(ctx)
	l.observeStage(ctx, MetricsOpReplaceChunk, MetricsStageAcquire, index, start, 1, err != nil)
	if err != nil {
		return fail(MetricsStageAcquire, fmt.Errorf("failed to acquire connection: %w", err))
	}
	defer conn.Release()

	start = l.stageStart()
	tx, err := conn.Begin(ctx)
	l.observeStage(ctx, MetricsOpReplaceChunk, MetricsStageBegin, index, start, 1, err != nil)
	if err != nil {
		return fail(MetricsStageBegin, fmt.Errorf("failed to begin transaction: %w", err))
	}

	var stage string
	switch l.config.Protocol {
	case ProtocolDirect:
		stage, err = l.applyDirect(ctx, tx, index, chunk)
	default:
		stage, err = l.applyStaged(ctx, tx, index, chunk)
	}
	if err != nil {
		if rbErr := rollback(ctx, tx); rbErr != nil {
			// pgx closes a connection whose rollback failed, so the server discards the tx.
			logger.Warn("Rollback failed", "chunk", index, "error", rbErr)
		}
		return fail(stage, err)
	}

	start = l.stageStart()
	err = tx.Commit(ctx)
	l.observeStage(ctx, MetricsOpReplaceChunk, MetricsStageCommit, index, start, len(chunk), err != nil)
	if err != nil {
		return fail(MetricsStageCommit, fmt.Errorf("failed to commit: %w", err))
	}

	logger.Info("Chunk committed", "chunk", index, "rows", len(chunk))
	return nil
}

// rollback runs even when ctx is already cancelled; only its own timeout bounds it.
func rollback(ctx context.Context, tx Tx) error {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if err := tx.Rollback(rbCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// applyDirect deletes target rows by key, then inserts the chunk with bound values.
func (l *Loader) applyDirect(ctx context.Context, tx Tx, index int, chunk []StoreGeography) (string, error) {
	keys := make([]int64, len(chunk))
	for i, r := range chunk {
		keys[i] = r.Key()
	}

	start := l.stageStart()
	_, err := tx.Exec(ctx, l.builder.deleteByKeys(), keys)
	l.observeStage(ctx, MetricsOpReplaceChunk, MetricsStageDelete, index, start, len(keys), err != nil)
	if err != nil {
		return MetricsStageDelete, fmt.Errorf("failed to delete existing rows: %w", err)
	}

	start = l.stageStart()
	per := l.builder.rowsPerInsert()
	for from := 0; from < len(chunk); from += per {
		to := from + per
		if to > len(chunk) {
			to = len(chunk)
		}
		args := make([]any, 0, (to-from)*len(l.builder.columns))
		for _, r := range chunk[from:to] {
			args = append(args, r.Values()...)
		}
		if _, err := tx.Exec(ctx, l.builder.insertValues(to-from), args...); err != nil {
			l.observeStage(ctx, MetricsOpReplaceChunk, MetricsStageInsert, index, start, to-from, true)
			return MetricsStageInsert, fmt.Errorf("failed to insert rows %d-%d: %w", from, to-1, err)
		}
	}
	l.observeStage(ctx, MetricsOpReplaceChunk, MetricsStageInsert, index, start, len(chunk), false)
	return "", nil
}

// applyStaged loads the chunk into a temp table with COPY and swaps it in with
// a join delete and an INSERT ... SELECT. The temp table is dropped at commit,
// and with the rest of the tx on rollback.
func (l *Loader) applyStaged(ctx context.Context, tx Tx, index int, chunk []StoreGeography) (string, error) {
	stage := stageTableName(index)

	start := l.stageStart()
	_, err := tx.Exec(ctx, l.builder.createStage(stage))
	l.observeStage(ctx, MetricsOpReplaceChunk, MetricsStageStageCreate, index, start, 1, err != nil)
	if err != nil {
		return MetricsStageStageCreate, fmt.Errorf("failed to create staging table: %w", err)
	}

	start = l.stageStart()
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, l.builder.columns,
		pgx.CopyFromSlice(len(chunk), func(i int) ([]any, error) {
			return chunk[i].Values(), nil
		}))
	l.observeStage(ctx, MetricsOpReplaceChunk, MetricsStageStageCopy, index, start, len(chunk), err != nil)
	if err != nil {
		return MetricsStageStageCopy, fmt.Errorf("failed to copy rows into staging table: %w", err)
	}
	if copied != int64(len(chunk)) {
		return MetricsStageStageCopy, fmt.Errorf("copied %d rows into staging table, expected %d", copied, len(chunk))
	}

	start = l.stageStart()
	_, err = tx.Exec(ctx, l.builder.deleteUsingStage(stage))
	l.observeStage(ctx, MetricsOpReplaceChunk, MetricsStageDelete, index, start, len(chunk), err != nil)
	if err != nil {
		return MetricsStageDelete, fmt.Errorf("failed to delete existing rows: %w", err)
	}

	start = l.stageStart()
	tag, err := tx.Exec(ctx, l.builder.insertFromStage(stage))
	l.observeStage(ctx, MetricsOpReplaceChunk, MetricsStageInsert, index, start, len(chunk), err != nil)
	if err != nil {
		return MetricsStageInsert, fmt.Errorf("failed to insert rows from staging table: %w", err)
	}
	if tag.RowsAffected() != int64(len(chunk)) {
		return MetricsStageInsert, fmt.Errorf("inserted %d rows from staging table, expected %d", tag.RowsAffected(), len(chunk))
	}
	return "", nil
}
