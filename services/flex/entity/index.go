// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package entity

import "sort"

// Index maps each gene symbol to the set of entity IDs it belongs to.
//
// Description:
//
//	Built once from a record slice and read-only afterward. A gene is a
//	key iff it is a non-empty, whitespace-stripped member token of at
//	least one entity; duplicate memberships collapse into the set. The
//	sorted candidate gene list derived from the keys fixes pair
//	enumeration order and matrix row/column order downstream, so it is
//	computed eagerly and never changes.
//
// Thread Safety: safe for concurrent reads after BuildIndex returns.
type Index struct {
	members map[string]map[string]struct{}
	genes   []string
	maxSize int
}

// BuildIndex constructs the gene-to-entity index from entity records.
//
// Gene tokens are re-normalized (whitespace stripped, empties dropped)
// so hand-built records obey the same invariant as loaded tables. Pure
// function of its input; the records are not retained.
func BuildIndex(records []Record) *Index {
	idx := &Index{members: make(map[string]map[string]struct{})}
	for _, rec := range records {
		for _, raw := range rec.Genes {
			gene := stripWhitespace(raw)
			if gene == "" {
				continue
			}
			set, ok := idx.members[gene]
			if !ok {
				set = make(map[string]struct{})
				idx.members[gene] = set
			}
			set[rec.ID] = struct{}{}
		}
	}

	idx.genes = make([]string, 0, len(idx.members))
	for gene := range idx.members {
		idx.genes = append(idx.genes, gene)
	}
	sort.Strings(idx.genes)

	for _, set := range idx.members {
		if len(set) > idx.maxSize {
			idx.maxSize = len(set)
		}
	}
	return idx
}

// Genes returns the candidate gene list: every distinct indexed symbol
// in lexicographic order. The returned slice is a fresh copy.
func (idx *Index) Genes() []string {
	genes := make([]string, len(idx.genes))
	copy(genes, idx.genes)
	return genes
}

// NumGenes returns the number of candidate genes.
func (idx *Index) NumGenes() int {
	return len(idx.genes)
}

// HasGene reports whether the symbol is indexed.
func (idx *Index) HasGene(gene string) bool {
	_, ok := idx.members[gene]
	return ok
}

// EntityIDs returns the sorted entity IDs the gene belongs to, or an
// empty slice for an unindexed gene.
func (idx *Index) EntityIDs(gene string) []string {
	set, ok := idx.members[gene]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MaxMembership returns the largest entity-set size over all genes.
// It bounds the meaningful range of the co-annotation overlap
// threshold: no pair can share more entities than either gene has.
func (idx *Index) MaxMembership() int {
	return idx.maxSize
}

// MembersByEntity inverts the index: entity ID to the candidate-list
// positions of its member genes, positions ascending.
//
// This is the sparsity handle for pair enumeration. Pairs drawn from
// within one entity's member positions are the only possible positives;
// every pair absent from all entities is negative without any
// intersection work.
func (idx *Index) MembersByEntity() map[string][]int {
	inv := make(map[string][]int)
	for pos, gene := range idx.genes {
		for id := range idx.members[gene] {
			inv[id] = append(inv[id], pos)
		}
	}
	return inv
}
