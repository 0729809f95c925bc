// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package profile

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/csbio/flex-go/services/flex/coanno"
	"github.com/csbio/flex-go/services/flex/holdout"
)

// Scoring configuration constants.
const (
	// maxScoreWorkers caps correlation goroutines regardless of CPU
	// count.
	maxScoreWorkers = 8

	// scoreParallelThreshold is the minimum pair count before parallel
	// scoring pays for its coordination overhead. Each pair costs a
	// full pass over the condition columns, so the bar is lower than
	// for bare pair emission.
	scoreParallelThreshold = 2048
)

// ScoreOptions configures a scoring run.
type ScoreOptions struct {
	// Workers is the number of parallel correlation workers.
	// Default: min(runtime.NumCPU(), 8). Values < 1 select the default.
	Workers int
}

// DefaultScoreOptions returns sensible defaults.
func DefaultScoreOptions() ScoreOptions {
	return ScoreOptions{Workers: defaultScoreWorkers()}
}

func defaultScoreWorkers() int {
	return min(runtime.NumCPU(), maxScoreWorkers)
}

// ScoreOption is a functional option for configuring a scoring run.
type ScoreOption func(*ScoreOptions)

// WithWorkers sets the number of parallel correlation workers.
func WithWorkers(n int) ScoreOption {
	return func(o *ScoreOptions) {
		o.Workers = n
	}
}

func applyScoreOptions(opts []ScoreOption) ScoreOptions {
	options := DefaultScoreOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Workers < 1 {
		options.Workers = defaultScoreWorkers()
	}
	if options.Workers > maxScoreWorkers {
		options.Workers = maxScoreWorkers
	}
	return options
}

// Score correlates profile rows for every standard pair present in the
// matrix.
//
// Description:
//
//	For each pair of the standard whose genes both have profiles, the
//	score is the Pearson correlation of the two profile rows over
//	their pairwise-complete measurements. Pairs with a missing gene
//	are dropped; Index on each surviving row still references the
//	original standard position, so holdout and evaluation line up
//	with the full standard. Output order follows the standard.
//
//	Rows with zero variance, and pairs with fewer than two complete
//	shared measurements, score 0 rather than NaN so downstream
//	ranking stays total.
//
// Inputs:
//   - ctx: context for cancellation. Honored between pair chunks.
//   - m: profile matrix. Must not be nil.
//   - std: co-annotation standard. Must not be nil.
//   - opts: scoring options.
//
// Outputs:
//   - []holdout.ScoredPair: scored rows in standard order.
//   - error: ErrInvalidInput for nil inputs; ErrEmptyResult when no
//     standard pair is present in the matrix; the context error if
//     canceled.
//
// Thread Safety: safe for concurrent use; matrix and standard are only
// read.
func Score(ctx context.Context, m *Matrix, std *coanno.Standard, opts ...ScoreOption) ([]holdout.ScoredPair, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil profile matrix", ErrInvalidInput)
	}
	if std == nil {
		return nil, fmt.Errorf("%w: nil standard", ErrInvalidInput)
	}
	options := applyScoreOptions(opts)
	start := time.Now()

	ctx, span := startScoreSpan(ctx, m.NumGenes(), std.NumPairs())
	defer span.End()

	rows := make([]holdout.ScoredPair, 0, len(std.Pairs))
	lefts := make([][]float64, 0, len(std.Pairs))
	rights := make([][]float64, 0, len(std.Pairs))
	for i, p := range std.Pairs {
		x, ok1 := m.Row(p.Gene1)
		y, ok2 := m.Row(p.Gene2)
		if !ok1 || !ok2 {
			continue
		}
		rows = append(rows, holdout.ScoredPair{
			Index:     i,
			Gene1:     p.Gene1,
			Gene2:     p.Gene2,
			Annotated: p.Annotated,
			SourceIDs: p.SourceIDs,
		})
		lefts = append(lefts, x)
		rights = append(rights, y)
	}
	dropped := len(std.Pairs) - len(rows)

	if len(rows) == 0 {
		err := fmt.Errorf("%w: no standard pair has profiles in the matrix", ErrEmptyResult)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordScoreMetrics(ctx, time.Since(start), 0, dropped, false)
		return nil, err
	}

	workers := options.Workers
	if len(rows) < scoreParallelThreshold {
		workers = 1
	}

	if err := correlate(ctx, rows, lefts, rights, workers); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordScoreMetrics(ctx, time.Since(start), 0, dropped, false)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("profile.pairs_scored", len(rows)),
		attribute.Int("profile.pairs_dropped", dropped),
		attribute.Int("profile.workers", workers),
	)
	recordScoreMetrics(ctx, time.Since(start), len(rows), dropped, true)
	return rows, nil
}

// correlate fills in Score for each row. Workers own contiguous index
// ranges of equal size, so the writes need no locking.
func correlate(ctx context.Context, rows []holdout.ScoredPair, lefts, rights [][]float64, workers int) error {
	n := len(rows)
	if workers > n {
		workers = n
	}

	g, gCtx := errgroup.WithContext(ctx)
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, n)
		if lo >= hi {
			break
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gCtx.Err(); err != nil {
					return err
				}
				rows[i].Score = pearson(lefts[i], rights[i])
			}
			return nil
		})
	}
	return g.Wait()
}

// pearson returns the Pearson correlation of x and y over their
// pairwise-complete measurements. Undefined correlations (fewer than
// two complete observations, or a zero-variance row) return 0.
func pearson(x, y []float64) float64 {
	var n float64
	var sx, sy, sxx, syy, sxy float64
	for i := range x {
		a, b := x[i], y[i]
		if math.IsNaN(a) || math.IsNaN(b) {
			continue
		}
		n++
		sx += a
		sy += b
		sxx += a * a
		syy += b * b
		sxy += a * b
	}
	if n < 2 {
		return 0
	}

	cov := sxy - sx*sy/n
	varX := sxx - sx*sx/n
	varY := syy - sy*sy/n
	if varX <= 0 || varY <= 0 {
		return 0
	}

	r := cov / math.Sqrt(varX*varY)
	if r > 1 {
		return 1
	}
	if r < -1 {
		return -1
	}
	return r
}
