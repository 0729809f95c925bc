// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package holdout removes or relabels gold-standard pairs that touch a
// target gene list, for leave-out re-evaluation of scored standards.
package holdout

import (
	"fmt"
	"strings"

	"github.com/csbio/flex-go/services/flex/coanno"
)

// Policy selects how pairs touching the target genes are handled.
type Policy int

const (
	// PolicyRemove deletes annotated pairs touching a target gene.
	// Semantically clean, but the row count shrinks, which breaks
	// alignment with score tables keyed by row index.
	PolicyRemove Policy = iota

	// PolicyRelabel flips annotated pairs touching a target gene to
	// unannotated and clears their sources, preserving row count so
	// parallel score tables stay aligned. The trade-off: the flipped
	// rows become negatives that are not true biological negatives.
	PolicyRelabel
)

// String returns the string representation of the Policy.
func (p Policy) String() string {
	switch p {
	case PolicyRemove:
		return "remove"
	case PolicyRelabel:
		return "relabel"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name (case-insensitive).
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "remove":
		return PolicyRemove, nil
	case "relabel":
		return PolicyRelabel, nil
	default:
		return 0, fmt.Errorf("%w: unknown holdout policy %q", ErrInvalidInput, s)
	}
}

// ScoredPair is one row of a scored standard: the pair-list schema
// plus the row index into the originating gold standard and the
// external prediction score.
type ScoredPair struct {
	Index     int
	Gene1     string
	Gene2     string
	Annotated bool
	SourceIDs []string
	Score     float64
}

// FromStandard wraps a bare standard as a scored table with zero
// scores and Index set to each row's position, so the holdout engine
// and downstream evaluation apply uniformly.
func FromStandard(std *coanno.Standard) []ScoredPair {
	rows := make([]ScoredPair, len(std.Pairs))
	for i, p := range std.Pairs {
		rows[i] = ScoredPair{
			Index:     i,
			Gene1:     p.Gene1,
			Gene2:     p.Gene2,
			Annotated: p.Annotated,
			SourceIDs: p.SourceIDs,
		}
	}
	return rows
}
