// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flex

import (
	"github.com/csbio/flex-go/services/flex/coanno"
	"github.com/csbio/flex-go/services/flex/entity"
	"github.com/csbio/flex-go/services/flex/holdout"
	"github.com/csbio/flex-go/services/flex/perf"
)

// EntityRow is one curated entity in a build request body.
type EntityRow struct {
	// ID is the stable entity identifier, e.g. a CORUM complex ID.
	// Required.
	ID string `json:"id" binding:"required"`

	// Name is the human-readable entity name. Optional; used by
	// filter_names matching.
	Name string `json:"name"`

	// Genes is the member gene list. Required.
	Genes []string `json:"genes" binding:"required"`
}

// BuildRequest is the request body for POST /api/v1/standards/:name/build.
type BuildRequest struct {
	// Entities is the curated entity table. Required.
	Entities []EntityRow `json:"entities" binding:"required"`

	// MinOverlap is the shared-entity threshold. Default: the service's
	// configured default (1).
	MinOverlap int `json:"min_overlap" binding:"gte=0"`

	// FilterNames restricts the table to entities whose name contains
	// any of these substrings (case-insensitive).
	FilterNames []string `json:"filter_names"`

	// Workers overrides the build worker count. 0 selects the default.
	Workers int `json:"workers" binding:"gte=0"`

	// IncludePairs returns the pair rows inline, capped at the
	// service's MaxInlinePairs.
	IncludePairs bool `json:"include_pairs"`
}

// PairRow is one gold-standard pair in a response body.
type PairRow struct {
	Gene1     string   `json:"gene1"`
	Gene2     string   `json:"gene2"`
	Annotated bool     `json:"annotated"`
	SourceIDs []string `json:"source_ids,omitempty"`
}

// BuildResponse is the response for POST /api/v1/standards/:name/build.
type BuildResponse struct {
	// Name is the standard's cache name.
	Name string `json:"name"`

	// Genes is the candidate gene count.
	Genes int `json:"genes"`

	// Pairs is the pair row count.
	Pairs int `json:"pairs"`

	// Positives is the annotated pair count.
	Positives int `json:"positives"`

	// Cached is true when the standard was served from the store
	// instead of being rebuilt.
	Cached bool `json:"cached"`

	// BuildTimeMs is the wall time of the request in milliseconds.
	BuildTimeMs int64 `json:"build_time_ms"`

	// PairRows holds the inline pair rows when include_pairs was set.
	PairRows []PairRow `json:"pair_rows,omitempty"`

	// Truncated is true when PairRows was capped at MaxInlinePairs.
	Truncated bool `json:"truncated,omitempty"`
}

// StandardResponse is the response for GET /api/v1/standards/:name.
type StandardResponse struct {
	Name      string   `json:"name"`
	Genes     []string `json:"genes"`
	Positives int      `json:"positives"`
	Pairs     []PairRow `json:"pairs"`
}

// ListStandardsResponse is the response for GET /api/v1/standards.
type ListStandardsResponse struct {
	// Standards holds the stored standard names, sorted.
	Standards []string `json:"standards"`
}

// MatrixRequest is the request body for POST /api/v1/standards/:name/matrix.
type MatrixRequest struct {
	// Entities is the curated entity table. Required.
	Entities []EntityRow `json:"entities" binding:"required"`

	// MinOverlap is the shared-entity threshold. Default: the service's
	// configured default (1).
	MinOverlap int `json:"min_overlap" binding:"gte=0"`

	// FilterNames restricts the table to entities whose name contains
	// any of these substrings (case-insensitive).
	FilterNames []string `json:"filter_names"`

	// Workers overrides the build worker count. 0 selects the default.
	Workers int `json:"workers" binding:"gte=0"`
}

// MatrixResponse is the response for POST /api/v1/standards/:name/matrix.
//
// Rows is the full symmetric 0/1 adjacency over Genes, row i column j
// in the sorted candidate order, zero diagonal.
type MatrixResponse struct {
	Genes []string `json:"genes"`
	Rows  [][]int  `json:"rows"`
}

// ScoredRow is one row of a scored standard in a request or response
// body.
type ScoredRow struct {
	// Index is the row's position in the originating gold standard.
	Index int `json:"index"`

	Gene1     string   `json:"gene1"`
	Gene2     string   `json:"gene2"`
	Annotated bool     `json:"annotated"`
	SourceIDs []string `json:"source_ids,omitempty"`

	// Score is the external prediction score for the pair.
	Score float64 `json:"score"`
}

// HoldoutRequest is the request body for POST /api/v1/holdout.
type HoldoutRequest struct {
	// Rows is the scored standard. Required.
	Rows []ScoredRow `json:"rows" binding:"required"`

	// GoldRows is the row count of the originating gold standard,
	// used to validate row indices. Default: len(rows).
	GoldRows int `json:"gold_rows" binding:"gte=0"`

	// Targets is the hold-out gene list. Required.
	Targets []string `json:"targets" binding:"required"`

	// Policy selects the hold-out treatment: "remove" or "relabel".
	// Required.
	Policy string `json:"policy" binding:"required"`
}

// HoldoutResponse is the response for POST /api/v1/holdout.
type HoldoutResponse struct {
	// Rows is the derived scored table.
	Rows []ScoredRow `json:"rows"`

	// Affected is the number of annotated target-touching rows that
	// were removed or relabeled.
	Affected int `json:"affected"`

	// Policy echoes the applied policy.
	Policy string `json:"policy"`
}

// EvaluateRequest is the request body for POST /api/v1/evaluate/pr.
type EvaluateRequest struct {
	// Rows is the scored standard. Required.
	Rows []ScoredRow `json:"rows" binding:"required"`

	// IncludePoints returns the full sweep inline. The curve has one
	// point per scored row.
	IncludePoints bool `json:"include_points"`
}

// CurvePoint is one step of the precision-recall sweep.
type CurvePoint struct {
	Threshold float64 `json:"threshold"`
	TP        int     `json:"tp"`
	FP        int     `json:"fp"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// EvaluateResponse is the response for POST /api/v1/evaluate/pr.
type EvaluateResponse struct {
	// AUPRC is the step-wise area under the precision-recall curve.
	AUPRC float64 `json:"auprc"`

	// Positives is the annotated row count.
	Positives int `json:"positives"`

	// Rows is the scored row count.
	Rows int `json:"rows"`

	// Points holds the sweep when include_points was set.
	Points []CurvePoint `json:"points,omitempty"`
}

// HealthResponse is the response for GET /healthz.
type HealthResponse struct {
	// Status is "healthy" when the service is running.
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /readyz.
type ReadyResponse struct {
	// Ready indicates whether the service can serve requests.
	Ready bool `json:"ready"`

	// Standards is the number of stored standards.
	Standards int `json:"standards"`

	// StoreOK indicates the embedded store answered the probe.
	StoreOK bool `json:"store_ok"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`

	// Code is the machine-readable error code.
	Code string `json:"code"`
}

// toEntityRecords converts request rows to entity records.
func toEntityRecords(rows []EntityRow) []entity.Record {
	records := make([]entity.Record, len(rows))
	for i, r := range rows {
		records[i] = entity.Record{
			ID:    r.ID,
			Name:  r.Name,
			Genes: r.Genes,
		}
	}
	return records
}

// toPairRows converts standard pairs to response rows.
func toPairRows(pairs []coanno.Pair) []PairRow {
	rows := make([]PairRow, len(pairs))
	for i, p := range pairs {
		rows[i] = PairRow{
			Gene1:     p.Gene1,
			Gene2:     p.Gene2,
			Annotated: p.Annotated,
			SourceIDs: p.SourceIDs,
		}
	}
	return rows
}

// toScoredPairs converts request rows to the holdout package's form.
func toScoredPairs(rows []ScoredRow) []holdout.ScoredPair {
	out := make([]holdout.ScoredPair, len(rows))
	for i, r := range rows {
		out[i] = holdout.ScoredPair{
			Index:     r.Index,
			Gene1:     r.Gene1,
			Gene2:     r.Gene2,
			Annotated: r.Annotated,
			SourceIDs: r.SourceIDs,
			Score:     r.Score,
		}
	}
	return out
}

// toScoredRows converts holdout rows to response form.
func toScoredRows(pairs []holdout.ScoredPair) []ScoredRow {
	out := make([]ScoredRow, len(pairs))
	for i, p := range pairs {
		out[i] = ScoredRow{
			Index:     p.Index,
			Gene1:     p.Gene1,
			Gene2:     p.Gene2,
			Annotated: p.Annotated,
			SourceIDs: p.SourceIDs,
			Score:     p.Score,
		}
	}
	return out
}

// toCurvePoints converts sweep points to response form.
func toCurvePoints(points []perf.Point) []CurvePoint {
	out := make([]CurvePoint, len(points))
	for i, p := range points {
		out[i] = CurvePoint{
			Threshold: p.Threshold,
			TP:        p.TP,
			FP:        p.FP,
			Precision: p.Precision,
			Recall:    p.Recall,
		}
	}
	return out
}
