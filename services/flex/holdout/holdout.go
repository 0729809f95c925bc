// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package holdout

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Apply produces a new scored table with target-touching annotated
// pairs removed or relabeled.
//
// Description:
//
//	A row is selected when Gene1 or Gene2 is in the target list AND
//	the row is annotated. Under PolicyRemove selected rows are deleted
//	and the row count shrinks; under PolicyRelabel they are flipped to
//	unannotated with their sources cleared and the row count is
//	preserved. Rows outside the selection are carried over unchanged,
//	annotated or not, regardless of target membership. Gene matching
//	is case-sensitive and exact.
//
// Inputs:
//   - ctx: context for tracing. Must not be nil.
//   - scored: the scored standard. Never mutated; the result is a
//     fresh slice.
//   - goldRows: row count of the originating gold standard, used to
//     validate every row's Index.
//   - targets: target gene symbols. An empty list yields an unchanged
//     copy of the input.
//   - policy: PolicyRemove or PolicyRelabel.
//
// Outputs:
//   - []ScoredPair: the derived table.
//   - error: wraps ErrInvalidInput when goldRows is negative, a row
//     index falls outside [0, goldRows), or the policy is unknown.
//
// Thread Safety: safe for concurrent use; the input is only read.
func Apply(ctx context.Context, scored []ScoredPair, goldRows int, targets []string, policy Policy) ([]ScoredPair, error) {
	ctx, span := startApplySpan(ctx, policy, len(scored), len(targets))
	defer span.End()

	if policy != PolicyRemove && policy != PolicyRelabel {
		err := fmt.Errorf("%w: unknown holdout policy %d", ErrInvalidInput, policy)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if goldRows < 0 {
		err := fmt.Errorf("%w: gold standard row count must not be negative, got %d", ErrInvalidInput, goldRows)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	for i := range scored {
		if scored[i].Index < 0 || scored[i].Index >= goldRows {
			err := fmt.Errorf("%w: row %d has index %d outside the gold standard's %d rows",
				ErrInvalidInput, i, scored[i].Index, goldRows)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			recordApplyMetrics(ctx, policy, 0, false)
			return nil, err
		}
	}

	targetSet := make(map[string]struct{}, len(targets))
	for _, g := range targets {
		targetSet[g] = struct{}{}
	}

	out := make([]ScoredPair, 0, len(scored))
	affected := 0
	for _, row := range scored {
		if row.Annotated && touchesTarget(row, targetSet) {
			affected++
			if policy == PolicyRemove {
				continue
			}
			row.Annotated = false
			row.SourceIDs = nil
		}
		out = append(out, row)
	}

	span.SetAttributes(
		attribute.Int("holdout.affected", affected),
		attribute.Int("holdout.rows_out", len(out)),
	)
	recordApplyMetrics(ctx, policy, affected, true)
	return out, nil
}

// RemoveTargets applies the strict-removal policy.
func RemoveTargets(ctx context.Context, scored []ScoredPair, goldRows int, targets []string) ([]ScoredPair, error) {
	return Apply(ctx, scored, goldRows, targets, PolicyRemove)
}

// RelabelTargets applies the relabel policy.
func RelabelTargets(ctx context.Context, scored []ScoredPair, goldRows int, targets []string) ([]ScoredPair, error) {
	return Apply(ctx, scored, goldRows, targets, PolicyRelabel)
}

func touchesTarget(row ScoredPair, targets map[string]struct{}) bool {
	if _, ok := targets[row.Gene1]; ok {
		return true
	}
	_, ok := targets[row.Gene2]
	return ok
}
