// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package network imports pre-scored global functional networks
// (HumanNet-style edge lists) and reduces them to the co-annotation
// pair-list schema by top-K binarization.
package network

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/csbio/flex-go/services/flex/coanno"
)

// Edge is one scored row of a functional network: an unordered gene
// pair with its confidence score. Gene1 < Gene2 after normalization.
type Edge struct {
	Gene1 string
	Gene2 string
	Score float64
}

// ParseEdges reads a three-column network file: gene1, gene2, score.
//
// Description:
//
//	Accepts an optional header row (detected by a non-numeric score
//	field), '#' comment lines, and either orientation of each pair.
//	Pairs are normalized to Gene1 < Gene2; self-edges are dropped;
//	a pair listed more than once keeps its highest score. The result
//	is sorted by pair for reproducibility.
//
// Inputs:
//   - r: network source. Must not be nil.
//   - delim: field delimiter ('\t' for HumanNet-style files).
//
// Outputs:
//   - []Edge: normalized edges sorted by (Gene1, Gene2).
//   - error: wraps ErrInvalidInput on a short row, a blank gene
//     symbol, or a non-numeric score.
func ParseEdges(r io.Reader, delim rune) ([]Edge, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.Comment = '#'
	cr.FieldsPerRecord = -1

	best := make(map[string]Edge)
	first := true
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read network row %d: %w", line, err)
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("%w: network row %d has %d fields, want at least 3",
				ErrInvalidInput, line, len(rec))
		}

		score, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			if first {
				// Header row.
				first = false
				continue
			}
			return nil, fmt.Errorf("%w: network row %d has a non-numeric score %q",
				ErrInvalidInput, line, rec[2])
		}
		first = false

		g1 := strings.TrimSpace(rec[0])
		g2 := strings.TrimSpace(rec[1])
		if g1 == "" || g2 == "" {
			return nil, fmt.Errorf("%w: network row %d has a blank gene symbol", ErrInvalidInput, line)
		}
		if g1 == g2 {
			continue
		}
		if g2 < g1 {
			g1, g2 = g2, g1
		}

		key := g1 + "\x00" + g2
		if prev, ok := best[key]; !ok || score > prev.Score {
			best[key] = Edge{Gene1: g1, Gene2: g2, Score: score}
		}
	}

	edges := make([]Edge, 0, len(best))
	for _, e := range best {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Gene1 != edges[j].Gene1 {
			return edges[i].Gene1 < edges[j].Gene1
		}
		return edges[i].Gene2 < edges[j].Gene2
	})
	return edges, nil
}

// TopK binarizes a scored network into a co-annotation standard: the k
// highest-scoring edges become annotated pairs and the remainder become
// unannotated pairs. Ranking is by score descending with ties broken by
// pair order, so equal inputs always select the same edge set. When k
// meets or exceeds the edge count every pair is annotated.
//
// Returns ErrInvalidInput when k < 1 and ErrEmptyResult when edges is
// empty.
func TopK(edges []Edge, k int) (*coanno.Standard, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: top-k cutoff %d, want >= 1", ErrInvalidInput, k)
	}
	if len(edges) == 0 {
		return nil, fmt.Errorf("%w: network has no edges", ErrEmptyResult)
	}

	ranked := make([]Edge, len(edges))
	copy(ranked, edges)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Gene1 != ranked[j].Gene1 {
			return ranked[i].Gene1 < ranked[j].Gene1
		}
		return ranked[i].Gene2 < ranked[j].Gene2
	})

	annotated := make(map[string]struct{}, k)
	for i := 0; i < k && i < len(ranked); i++ {
		annotated[ranked[i].Gene1+"\x00"+ranked[i].Gene2] = struct{}{}
	}

	geneSet := make(map[string]struct{}, len(edges))
	pairs := make([]coanno.Pair, len(ranked))
	for i, e := range ranked {
		_, top := annotated[e.Gene1+"\x00"+e.Gene2]
		pairs[i] = coanno.Pair{Gene1: e.Gene1, Gene2: e.Gene2, Annotated: top}
		geneSet[e.Gene1] = struct{}{}
		geneSet[e.Gene2] = struct{}{}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Gene1 != pairs[j].Gene1 {
			return pairs[i].Gene1 < pairs[j].Gene1
		}
		return pairs[i].Gene2 < pairs[j].Gene2
	})

	genes := make([]string, 0, len(geneSet))
	for g := range geneSet {
		genes = append(genes, g)
	}
	sort.Strings(genes)

	return &coanno.Standard{Genes: genes, Pairs: pairs}, nil
}
