// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package storegeo

import "fmt"

// DuplicatePolicy decides what happens when the same store key occurs more than
// once in a batch. Two chunks holding the same key would race in concurrent
// transactions, so duplicates are never passed through.
type DuplicatePolicy string

const (
	// DuplicateReject fails the batch with ErrDuplicateKey.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateKeepLast keeps the last occurrence of each key in input order.
	DuplicateKeepLast DuplicatePolicy = "keep_last"
)

func (p DuplicatePolicy) valid() bool {
	return p == DuplicateReject || p == DuplicateKeepLast
}

// prepareKeys checks every record has a key and returns a key-unique slice.
// The input is never modified; with DuplicateKeepLast a new slice is returned
// only when something had to be dropped.
func prepareKeys(records []StoreGeography, policy DuplicatePolicy) ([]StoreGeography, int, error) {
	lastPos := make(map[int64]int, len(records))
	dupes := 0
	for i, r := range records {
		if r.Key() == 0 {
			return nil, 0, fmt.Errorf("%w: record at position %d has no %s", ErrEmptyKey, i, KeyColumn)
		}
		if prev, seen := lastPos[r.Key()]; seen {
			if policy != DuplicateKeepLast {
				return nil, 0, fmt.Errorf("%w: %s=%d at positions %d and %d",
					ErrDuplicateKey, KeyColumn, r.Key(), prev, i)
			}
			dupes++
		}
		lastPos[r.Key()] = i
	}
	if dupes == 0 {
		return records, 0, nil
	}

	unique := make([]StoreGeography, 0, len(records)-dupes)
	for i, r := range records {
		if lastPos[r.Key()] == i {
			unique = append(unique, r)
		}
	}
	return unique, dupes, nil
}
