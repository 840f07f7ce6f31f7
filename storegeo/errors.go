// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package storegeo

import (
	"errors"
	"fmt"
)

// Precondition sentinels. These are returned before any connection is acquired.
var (
	ErrInvalidConfig = errors.New("invalid loader config")
	ErrEmptyKey      = errors.New("empty store key")
	ErrDuplicateKey  = errors.New("duplicate store key")
	ErrLoaderClosed  = errors.New("loader has been closed")
)

// ChunkError reports the failure of one chunk replace. The chunk's transaction
// has been rolled back by the time the error is returned.
type ChunkError struct {
	Index int    // zero-based chunk index within the batch
	Rows  int    // number of records in the chunk
	Stage string // stage that failed (acquire, begin, delete, insert, commit, ...)
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d failed: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Class returns the classification of the underlying cause.
func (e *ChunkError) Class() ErrorClass {
	return Classify(e.Err)
}
