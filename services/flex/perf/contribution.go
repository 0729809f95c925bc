// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package perf

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/csbio/flex-go/services/flex/holdout"
)

// BackgroundID labels the bucket collecting sourceless true positives
// and entities below the contribution floor.
const BackgroundID = "background"

// EntityContribution is one entity's share of the AUPRC.
type EntityContribution struct {
	// EntityID is the annotation source, or BackgroundID.
	EntityID string

	// Pairs is the number of true-positive rows the entity sourced.
	Pairs int

	// Contribution is the AUPRC mass attributed to the entity.
	Contribution float64

	// Fraction is Contribution over the total AUPRC.
	Fraction float64
}

// ContributionByEntity breaks the AUPRC down by annotation source.
//
// Description:
//
//	Runs the same descending-score sweep as PRCurve. Each true
//	positive carries precision/Positives of AUPRC mass, split equally
//	across the row's source entities so the contributions partition
//	the total. True positives with no recorded sources, and entities
//	whose share falls below minFraction of the total, are folded into
//	a background bucket emitted last. Remaining entities are ordered
//	by contribution descending, ties by ID.
//
// Inputs:
//   - ctx: tracing context.
//   - pairs: scored rows. Not mutated.
//   - minFraction: floor in [0, 1); entities below it merge into the
//     background bucket. 0 keeps every entity.
//
// Outputs:
//   - []EntityContribution: per-entity breakdown summing to the AUPRC.
//   - error: ErrInvalidInput for a floor outside [0, 1);
//     ErrEmptyResult when no row is annotated.
func ContributionByEntity(ctx context.Context, pairs []holdout.ScoredPair, minFraction float64) ([]EntityContribution, error) {
	start := time.Now()
	ctx, span := startEvalSpan(ctx, "ContributionByEntity", len(pairs))
	defer span.End()

	fail := func(err error) ([]EntityContribution, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordEvalMetrics(ctx, "ContributionByEntity", time.Since(start), len(pairs), 0, false)
		return nil, err
	}

	if minFraction < 0 || minFraction >= 1 {
		return fail(fmt.Errorf("%w: contribution floor %v outside [0, 1)", ErrInvalidInput, minFraction))
	}
	positives := countPositives(pairs)
	if positives == 0 {
		return fail(fmt.Errorf("%w: scored table has no annotated rows", ErrEmptyResult))
	}

	mass := make(map[string]float64)
	rows := make(map[string]int)

	ranked := rankByScore(pairs)
	tp, fp := 0, 0
	total := 0.0
	for _, row := range ranked {
		if !row.Annotated {
			fp++
			continue
		}
		tp++
		step := (float64(tp) / float64(tp+fp)) / float64(positives)
		total += step

		if len(row.SourceIDs) == 0 {
			mass[BackgroundID] += step
			rows[BackgroundID]++
			continue
		}
		share := step / float64(len(row.SourceIDs))
		for _, id := range row.SourceIDs {
			mass[id] += share
			rows[id]++
		}
	}

	// Fold sub-floor entities into the background bucket.
	floor := minFraction * total
	out := make([]EntityContribution, 0, len(mass))
	var background EntityContribution
	background.EntityID = BackgroundID
	for id, m := range mass {
		if id == BackgroundID || m < floor {
			background.Contribution += m
			background.Pairs += rows[id]
			continue
		}
		out = append(out, EntityContribution{
			EntityID:     id,
			Pairs:        rows[id],
			Contribution: m,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Contribution != out[j].Contribution {
			return out[i].Contribution > out[j].Contribution
		}
		return out[i].EntityID < out[j].EntityID
	})
	if background.Pairs > 0 {
		out = append(out, background)
	}
	for i := range out {
		out[i].Fraction = out[i].Contribution / total
	}

	span.SetAttributes(
		attribute.Int("perf.entities", len(out)),
		attribute.Float64("perf.auprc", total),
	)
	recordEvalMetrics(ctx, "ContributionByEntity", time.Since(start), len(pairs), total, true)
	return out, nil
}
