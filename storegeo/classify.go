// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package storegeo

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorClass groups chunk failures by what a caller can do about them.
// The loader itself never retries; callers that want retries should only retry
// ClassTransient failures and must re-run the whole batch.
type ErrorClass int

const (
	ClassOther ErrorClass = iota
	ClassTransient
	ClassConstraint
)

func (c ErrorClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassConstraint:
		return "constraint"
	default:
		return "other"
	}
}

// Classify inspects err (and anything it wraps) and returns its ErrorClass.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifySQLState(pgErr.SQLState())
	}

	// Errors raised below the protocol layer (dial, reset, unexpected EOF) carry no SQLSTATE.
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return ClassTransient
	}
	return ClassOther
}

func classifySQLState(code string) ErrorClass {
	switch code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"55P03", // lock_not_available (incl. lock_timeout)
		"53300", // too_many_connections
		"57P01", // admin_shutdown
		"57P02", // crash_shutdown
		"57P03": // cannot_connect_now
		return ClassTransient
	}
	switch {
	case strings.HasPrefix(code, "08"): // connection_exception
		return ClassTransient
	case strings.HasPrefix(code, "22"), // data_exception
		strings.HasPrefix(code, "23"): // integrity_constraint_violation
		return ClassConstraint
	default:
		return ClassOther
	}
}
