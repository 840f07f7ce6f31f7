// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package storegeo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tx is the subset of pgx.Tx the chunk replacer needs. Any pgx.Tx satisfies it.
type Tx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Conn is one dedicated pooled connection. Release must be called exactly once.
type Conn interface {
	Begin(ctx context.Context) (Tx, error)
	Release()
}

// Pool hands out dedicated connections. Construction, sizing and health checks
// of the underlying pool are the caller's responsibility.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
}

// NewPgxPool adapts a pgxpool.Pool to the Pool interface.
// The loader never closes the pool; the caller owns its lifecycle.
func NewPgxPool(pool *pgxpool.Pool) Pool {
	return &pgxPool{pool: pool}
}

type pgxPool struct {
	pool *pgxpool.Pool
}

func (p *pgxPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxConn{conn: conn}, nil
}

type pgxConn struct {
	conn *pgxpool.Conn
}

func (c *pgxConn) Begin(ctx context.Context) (Tx, error) {
	return c.conn.Begin(ctx)
}

func (c *pgxConn) Release() {
	c.conn.Release()
}
