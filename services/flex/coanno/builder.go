// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package coanno

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/csbio/flex-go/services/flex/entity"
)

// Build configuration constants.
const (
	// DefaultMinOverlap is the shared-entity threshold for annotation.
	DefaultMinOverlap = 1

	// maxBuildWorkers caps emission goroutines regardless of CPU count.
	// Pair emission is memory-bandwidth-bound and stops scaling early.
	maxBuildWorkers = 8

	// parallelThreshold is the minimum total pair count before parallel
	// emission pays for its coordination overhead.
	parallelThreshold = 4096
)

// ProgressPhase indicates which phase of a build is in progress.
type ProgressPhase int

const (
	// ProgressPhaseIndexing indicates entities are being folded into
	// the sparse candidate-pair map.
	ProgressPhaseIndexing ProgressPhase = iota

	// ProgressPhaseEnumerating indicates pair rows are being emitted.
	ProgressPhaseEnumerating
)

// String returns the string representation of the ProgressPhase.
func (p ProgressPhase) String() string {
	switch p {
	case ProgressPhaseIndexing:
		return "indexing"
	case ProgressPhaseEnumerating:
		return "enumerating"
	default:
		return "unknown"
	}
}

// BuildProgress contains progress information during a build.
type BuildProgress struct {
	// Phase is the current build phase.
	Phase ProgressPhase

	// EntitiesIndexed is the number of entities folded so far.
	EntitiesIndexed int

	// EntitiesTotal is the total number of entities to fold.
	EntitiesTotal int

	// RowsEmitted is the number of outer-gene rows emitted so far.
	RowsEmitted int

	// RowsTotal is the total number of outer-gene rows.
	RowsTotal int
}

// ProgressFunc is a callback for build progress updates. It is a
// non-blocking observer side channel and never affects the result.
type ProgressFunc func(progress BuildProgress)

// BuildOptions configures standard construction.
type BuildOptions struct {
	// MinOverlap is the minimum number of shared entities for a pair
	// to be annotated. Must be >= 1 and no larger than the largest
	// membership count in the index. Default: 1.
	MinOverlap int

	// Workers is the number of parallel emission workers.
	// Default: min(runtime.NumCPU(), 8). Values < 1 select the default.
	Workers int

	// Progress is called during the build. May be nil. Called from
	// worker goroutines when emission runs parallel, so callbacks must
	// be safe for concurrent use.
	Progress ProgressFunc
}

// DefaultBuildOptions returns sensible defaults.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		MinOverlap: DefaultMinOverlap,
		Workers:    defaultWorkers(),
	}
}

func defaultWorkers() int {
	return min(runtime.NumCPU(), maxBuildWorkers)
}

// BuildOption is a functional option for configuring a build.
type BuildOption func(*BuildOptions)

// WithMinOverlap sets the shared-entity threshold.
func WithMinOverlap(k int) BuildOption {
	return func(o *BuildOptions) {
		o.MinOverlap = k
	}
}

// WithWorkers sets the number of parallel emission workers.
func WithWorkers(n int) BuildOption {
	return func(o *BuildOptions) {
		o.Workers = n
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) BuildOption {
	return func(o *BuildOptions) {
		o.Progress = fn
	}
}

func applyBuildOptions(opts []BuildOption) BuildOptions {
	options := DefaultBuildOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Workers < 1 {
		options.Workers = defaultWorkers()
	}
	if options.Workers > maxBuildWorkers {
		options.Workers = maxBuildWorkers
	}
	return options
}

// BuildStandard derives the complete co-annotation standard in
// pair-list form.
//
// Description:
//
//	Enumerates every unordered pair over the sorted candidate gene
//	list, labeling a pair annotated when the two genes share at least
//	MinOverlap entities. The enumeration exploits sparsity: the index
//	is inverted so that pairs drawn from within a single entity's
//	member list are the only positive candidates, and every other pair
//	is emitted as a negative with no intersection work. The result is
//	identical to a naive full-intersection pass over all C(n,2) pairs.
//
//	Emission is partitioned across workers by contiguous outer-row
//	chunks writing disjoint ranges of the preallocated result, so row
//	order is the sorted candidate order regardless of scheduling, and
//	repeated builds of the same table are byte-identical.
//
// Inputs:
//   - ctx: context for cancellation. Must not be nil. Cancellation is
//     honored between rows; there is no partial result.
//   - idx: the entity index. Must not be nil; not retained.
//   - opts: build options (threshold, workers, progress).
//
// Outputs:
//   - *Standard: candidate genes plus exactly C(n,2) pair rows, one per
//     unordered pair, i<j in candidate order. Empty (no error) when the
//     index holds fewer than two genes.
//   - error: wraps ErrInvalidInput for a bad threshold; the context
//     error if canceled.
//
// Thread Safety: safe for concurrent use; the index is only read.
func BuildStandard(ctx context.Context, idx *entity.Index, opts ...BuildOption) (*Standard, error) {
	if idx == nil {
		return nil, fmt.Errorf("%w: nil entity index", ErrInvalidInput)
	}
	options := applyBuildOptions(opts)
	start := time.Now()

	ctx, span := startBuildSpan(ctx, "pairs", idx.NumGenes(), options.MinOverlap)
	defer span.End()

	genes := idx.Genes()
	n := len(genes)
	std := &Standard{Genes: genes, Pairs: []Pair{}}

	if options.MinOverlap < 1 {
		err := fmt.Errorf("%w: min overlap must be at least 1, got %d", ErrInvalidInput, options.MinOverlap)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if n < 2 {
		recordBuildMetrics(ctx, "pairs", time.Since(start), 0, 0, true)
		return std, nil
	}
	if options.MinOverlap > idx.MaxMembership() {
		err := fmt.Errorf("%w: min overlap %d exceeds the largest membership count %d",
			ErrInvalidInput, options.MinOverlap, idx.MaxMembership())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	shared, err := sharedEntities(ctx, idx, options.Progress)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordBuildMetrics(ctx, "pairs", time.Since(start), 0, 0, false)
		return nil, err
	}

	total := n * (n - 1) / 2
	pairs := make([]Pair, total)

	workers := options.Workers
	if total < parallelThreshold {
		workers = 1
	}

	positives, err := emitPairs(ctx, genes, shared, options, workers, pairs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordBuildMetrics(ctx, "pairs", time.Since(start), 0, 0, false)
		return nil, err
	}

	std.Pairs = pairs
	span.SetAttributes(
		attribute.Int("coanno.pairs", total),
		attribute.Int("coanno.positives", positives),
		attribute.Int("coanno.workers", workers),
	)
	recordBuildMetrics(ctx, "pairs", time.Since(start), total, positives, true)
	return std, nil
}

// BuildMatrix derives the co-annotation standard in symmetric
// adjacency form over the same candidate order and threshold.
//
// Only positive cells are written; every other cell, including the
// never-visited diagonal, stays zero. The historical matrix behavior
// of thresholding on any nonempty intersection is the default
// MinOverlap of 1.
func BuildMatrix(ctx context.Context, idx *entity.Index, opts ...BuildOption) (*Matrix, error) {
	if idx == nil {
		return nil, fmt.Errorf("%w: nil entity index", ErrInvalidInput)
	}
	options := applyBuildOptions(opts)
	start := time.Now()

	ctx, span := startBuildSpan(ctx, "matrix", idx.NumGenes(), options.MinOverlap)
	defer span.End()

	genes := idx.Genes()
	n := len(genes)
	m := newMatrix(genes)

	if options.MinOverlap < 1 {
		err := fmt.Errorf("%w: min overlap must be at least 1, got %d", ErrInvalidInput, options.MinOverlap)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if n < 2 {
		recordBuildMetrics(ctx, "matrix", time.Since(start), 0, 0, true)
		return m, nil
	}
	if options.MinOverlap > idx.MaxMembership() {
		err := fmt.Errorf("%w: min overlap %d exceeds the largest membership count %d",
			ErrInvalidInput, options.MinOverlap, idx.MaxMembership())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	shared, err := sharedEntities(ctx, idx, options.Progress)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordBuildMetrics(ctx, "matrix", time.Since(start), 0, 0, false)
		return nil, err
	}

	positives := 0
	for key, ids := range shared {
		if len(ids) < options.MinOverlap {
			continue
		}
		m.set(key/n, key%n, 1)
		positives++
	}

	span.SetAttributes(
		attribute.Int("coanno.pairs", n*(n-1)/2),
		attribute.Int("coanno.positives", positives),
	)
	recordBuildMetrics(ctx, "matrix", time.Since(start), n*(n-1)/2, positives, true)
	return m, nil
}

// pairKey packs candidate positions (i, j), i < j, into a map key.
func pairKey(n, i, j int) int {
	return i*n + j
}

// rowOffset returns the pair-list rank of the first pair in outer row i.
func rowOffset(n, i int) int {
	return i*(n-1) - i*(i-1)/2
}

// sharedEntities inverts the index and accumulates the shared entity
// IDs for every gene pair that co-occurs in at least one entity.
//
// Entities are folded in ascending ID order, so each pair's ID list
// comes out already sorted without a per-pair sort.
func sharedEntities(ctx context.Context, idx *entity.Index, progress ProgressFunc) (map[int][]string, error) {
	n := idx.NumGenes()
	inv := idx.MembersByEntity()

	ids := make([]string, 0, len(inv))
	for id := range inv {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	shared := make(map[int][]string)
	for k, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		members := inv[id]
		for a := 0; a < len(members); a++ {
			for b := a + 1; b < len(members); b++ {
				key := pairKey(n, members[a], members[b])
				shared[key] = append(shared[key], id)
			}
		}
		if progress != nil {
			progress(BuildProgress{
				Phase:           ProgressPhaseIndexing,
				EntitiesIndexed: k + 1,
				EntitiesTotal:   len(ids),
			})
		}
	}
	return shared, nil
}

// rowChunks partitions outer rows [0, n-1) into contiguous chunks of
// roughly equal pair mass. Row i carries n-1-i pairs, so equal row
// counts would starve the tail workers.
func rowChunks(n, workers int) []int {
	rows := n - 1
	if workers < 1 {
		workers = 1
	}
	if workers > rows {
		workers = rows
	}
	total := n * (n - 1) / 2
	target := (total + workers - 1) / workers

	bounds := []int{0}
	mass := 0
	for i := 0; i < rows; i++ {
		mass += n - 1 - i
		if mass >= target && len(bounds) < workers {
			bounds = append(bounds, i+1)
			mass = 0
		}
	}
	return append(bounds, rows)
}

// emitPairs writes every pair row into its precomputed slot. Workers
// own disjoint row ranges, so the writes need no locking and the
// output order is independent of scheduling.
func emitPairs(ctx context.Context, genes []string, shared map[int][]string, opts BuildOptions, workers int, out []Pair) (int, error) {
	n := len(genes)
	bounds := rowChunks(n, workers)

	var rowsDone atomic.Int64
	var positives atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	for w := 0; w < len(bounds)-1; w++ {
		lo, hi := bounds[w], bounds[w+1]
		g.Go(func() error {
			local := 0
			for i := lo; i < hi; i++ {
				if err := gCtx.Err(); err != nil {
					return err
				}
				base := rowOffset(n, i)
				for j := i + 1; j < n; j++ {
					p := Pair{Gene1: genes[i], Gene2: genes[j]}
					if ids, ok := shared[pairKey(n, i, j)]; ok {
						p.SourceIDs = ids
						p.Annotated = len(ids) >= opts.MinOverlap
						if p.Annotated {
							local++
						}
					}
					out[base+j-i-1] = p
				}
				if opts.Progress != nil {
					opts.Progress(BuildProgress{
						Phase:       ProgressPhaseEnumerating,
						RowsEmitted: int(rowsDone.Add(1)),
						RowsTotal:   n - 1,
					})
				}
			}
			positives.Add(int64(local))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return int(positives.Load()), nil
}
