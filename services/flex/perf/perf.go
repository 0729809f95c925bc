// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package perf evaluates scored co-annotation tables: precision-recall
// sweeps, AUPRC, and per-entity contribution breakdowns.
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

// Point is one step of the precision-recall sweep, taken after
// admitting the row scored at Threshold.
type Point struct {
	Threshold float64
	TP        int
	FP        int
	Precision float64
	Recall    float64
}

// Curve is a complete precision-recall evaluation.
type Curve struct {
	// Points holds one sweep step per scored row, in descending score
	// order.
	Points []Point

	// AUPRC is the step-wise area under the curve: the sum of
	// precision × ΔRecall over the sweep, where recall advances by
	// 1/Positives at each true positive.
	AUPRC float64

	// Positives is the number of annotated rows.
	Positives int

	// Rows is the number of scored rows evaluated.
	Rows int
}

// rankByScore returns the rows in evaluation order: score descending,
// ties broken by standard index ascending so equal inputs sweep
// identically.
func rankByScore(pairs []holdout.ScoredPair) []holdout.ScoredPair {
	ranked := make([]holdout.ScoredPair, len(pairs))
	copy(ranked, pairs)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Index < ranked[j].Index
	})
	return ranked
}

func countPositives(pairs []holdout.ScoredPair) int {
	n := 0
	for _, p := range pairs {
		if p.Annotated {
			n++
		}
	}
	return n
}

// PRCurve sweeps the scored table from the highest score down.
//
// Description:
//
//	At each step the row is admitted as predicted-positive; annotated
//	rows become true positives and the rest false positives. Precision
//	is TP/(TP+FP), recall is TP/Positives, and the AUPRC accumulates
//	precision at every true positive step. The sweep order is score
//	descending with ties broken by standard index, so repeated
//	evaluations of the same table are identical.
//
// Inputs:
//   - ctx: tracing context.
//   - pairs: scored rows. Not mutated.
//
// Outputs:
//   - *Curve: the full sweep plus AUPRC.
//   - error: ErrEmptyResult when no row is annotated; precision-recall
//     is undefined without positives.
//
// Thread Safety: safe for concurrent use.
func PRCurve(ctx context.Context, pairs []holdout.ScoredPair) (*Curve, error) {
	start := time.Now()
	ctx, span := startEvalSpan(ctx, "PRCurve", len(pairs))
	defer span.End()

	positives := countPositives(pairs)
	if positives == 0 {
		err := fmt.Errorf("%w: scored table has no annotated rows", ErrEmptyResult)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordEvalMetrics(ctx, "PRCurve", time.Since(start), len(pairs), 0, false)
		return nil, err
	}

	ranked := rankByScore(pairs)
	curve := &Curve{
		Points:    make([]Point, len(ranked)),
		Positives: positives,
		Rows:      len(ranked),
	}

	tp, fp := 0, 0
	for i, row := range ranked {
		if row.Annotated {
			tp++
		} else {
			fp++
		}
		precision := float64(tp) / float64(tp+fp)
		curve.Points[i] = Point{
			Threshold: row.Score,
			TP:        tp,
			FP:        fp,
			Precision: precision,
			Recall:    float64(tp) / float64(positives),
		}
		if row.Annotated {
			curve.AUPRC += precision / float64(positives)
		}
	}

	span.SetAttributes(
		attribute.Int("perf.positives", positives),
		attribute.Float64("perf.auprc", curve.AUPRC),
	)
	recordEvalMetrics(ctx, "PRCurve", time.Since(start), len(pairs), curve.AUPRC, true)
	return curve, nil
}
