// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package storegeo

// Chunk splits items into consecutive groups of at most size elements.
// Every group except possibly the last has exactly size elements, order is
// preserved, and empty input yields no groups. Groups share the backing array
// of items but have their capacity capped, so appending to a group never
// overwrites the next one. Chunk panics if size is not positive.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		panic("storegeo: chunk size must be positive")
	}
	if len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
