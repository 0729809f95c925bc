// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package coanno derives co-annotation gold standards from an entity
// membership index: every unordered candidate gene pair, labeled by
// whether the two genes share at least a threshold number of entities.
package coanno

import "strings"

// Pair is one unordered candidate gene pair with its annotation label.
//
// Gene1 < Gene2 in lexicographic candidate order, exactly one Pair per
// unordered pair. SourceIDs holds the shared entity IDs sorted
// lexicographically whenever the intersection is nonempty, even when
// the pair was thresholded to Annotated=false; the raw shared count is
// len(SourceIDs).
type Pair struct {
	Gene1     string
	Gene2     string
	Annotated bool
	SourceIDs []string
}

// SharedCount returns the raw shared-entity count before binarization.
func (p Pair) SharedCount() int {
	return len(p.SourceIDs)
}

// SourceField returns the persisted form of the source IDs: the shared
// entity identifiers semicolon-joined when the pair is annotated,
// empty otherwise.
func (p Pair) SourceField() string {
	if !p.Annotated || len(p.SourceIDs) == 0 {
		return ""
	}
	return strings.Join(p.SourceIDs, ";")
}

// Standard is a co-annotation gold standard in pair-list form.
//
// Genes is the sorted candidate list. When produced by BuildStandard,
// Pairs holds exactly C(n,2) rows in enumeration order (i ascending,
// then j); network-derived standards carry only their edge pairs, in
// the same sorted order. Treated as immutable by every consumer.
type Standard struct {
	Genes []string
	Pairs []Pair
}

// NumGenes returns the candidate gene count.
func (s *Standard) NumGenes() int {
	return len(s.Genes)
}

// NumPairs returns the number of pair rows.
func (s *Standard) NumPairs() int {
	return len(s.Pairs)
}

// NumPositives returns the number of annotated pairs.
func (s *Standard) NumPositives() int {
	n := 0
	for i := range s.Pairs {
		if s.Pairs[i].Annotated {
			n++
		}
	}
	return n
}

// Matrix is a co-annotation standard in symmetric adjacency form over
// the sorted candidate gene order. The diagonal is never written by
// the builder and stays zero.
type Matrix struct {
	Genes []string
	cells []uint8
	n     int
}

func newMatrix(genes []string) *Matrix {
	n := len(genes)
	return &Matrix{
		Genes: genes,
		cells: make([]uint8, n*n),
		n:     n,
	}
}

// Dim returns the matrix dimension (candidate gene count).
func (m *Matrix) Dim() int {
	return m.n
}

// At returns the 0/1 annotation cell for candidate positions (i, j).
func (m *Matrix) At(i, j int) uint8 {
	return m.cells[i*m.n+j]
}

func (m *Matrix) set(i, j int, v uint8) {
	m.cells[i*m.n+j] = v
	m.cells[j*m.n+i] = v
}

// GeneIndex returns the candidate position of a gene symbol, or -1 if
// the gene is not part of the standard.
func (m *Matrix) GeneIndex(gene string) int {
	lo, hi := 0, len(m.Genes)
	for lo < hi {
		mid := (lo + hi) / 2
		if m.Genes[mid] < gene {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(m.Genes) && m.Genes[lo] == gene {
		return lo
	}
	return -1
}
