// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package storegeo

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// waveFunc runs the unit of work for index i.
type waveFunc func(ctx context.Context, i int) error

// runWaves runs fn for every index in [0, n) in waves of at most limit
// concurrent calls. Each wave is waited for in full before the next one starts,
// so waves run strictly in index order. If any call in a wave fails, the first
// error observed is returned after the rest of that wave has finished and no
// further waves are started. With cancelOnFailure the wave's siblings see their
// context cancelled once one of them fails; otherwise they run to completion.
// It returns the number of waves started.
func runWaves(ctx context.Context, n, limit int, cancelOnFailure bool, fn waveFunc) (int, error) {
	waves := 0
	for start := 0; start < n; start += limit {
		if err := ctx.Err(); err != nil {
			return waves, err
		}
		end := start + limit
		if end > n {
			end = n
		}
		waves++

		g := &errgroup.Group{}
		waveCtx := ctx
		if cancelOnFailure {
			g, waveCtx = errgroup.WithContext(ctx)
		}
		for i := start; i < end; i++ {
			g.Go(func() error {
				return fn(waveCtx, i)
			})
		}
		if err := g.Wait(); err != nil {
			return waves, err
		}
	}
	return waves, nil
}
