// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package profile scores co-annotation standards against quantitative
// gene profiles (dependency screens, genetic-interaction matrices) by
// correlating profile rows.
package profile

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Matrix is a genes-by-conditions profile matrix. Rows are gene
// profiles; missing measurements are held as NaN.
//
// Thread Safety: immutable after LoadMatrix; safe for concurrent reads.
type Matrix struct {
	index map[string]int
	genes []string
	conds []string
	rows  [][]float64
}

// NumGenes returns the number of profiled genes.
func (m *Matrix) NumGenes() int { return len(m.genes) }

// NumConditions returns the number of measurement columns.
func (m *Matrix) NumConditions() int { return len(m.conds) }

// Genes returns a fresh copy of the profiled gene symbols in file
// order.
func (m *Matrix) Genes() []string {
	out := make([]string, len(m.genes))
	copy(out, m.genes)
	return out
}

// HasGene reports whether the matrix holds a profile for gene.
func (m *Matrix) HasGene(gene string) bool {
	_, ok := m.index[gene]
	return ok
}

// Row returns the profile for gene. The returned slice is the backing
// row and must not be modified.
func (m *Matrix) Row(gene string) ([]float64, bool) {
	i, ok := m.index[gene]
	if !ok {
		return nil, false
	}
	return m.rows[i], true
}

// LoadMatrix reads a profile matrix from CSV.
//
// Description:
//
//	The first row is a header naming the measurement columns; the
//	first column of every data row is the gene symbol. Cells that are
//	empty, "NA", or "NaN" load as NaN and are skipped pairwise during
//	correlation. Gene symbols are matched case-sensitively against
//	standards, so the matrix and the entity table must agree on
//	naming.
//
// Outputs:
//   - *Matrix: immutable profile matrix.
//   - error: wraps ErrInvalidInput on a ragged row, a duplicate or
//     blank gene symbol, a non-numeric cell, or a matrix with no data.
func LoadMatrix(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: profile matrix is empty", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read profile header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: profile matrix needs at least one measurement column", ErrInvalidInput)
	}

	m := &Matrix{
		index: make(map[string]int),
		conds: header[1:],
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read profile row %d: %w", line, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%w: profile row %d has %d fields, want %d",
				ErrInvalidInput, line, len(rec), len(header))
		}

		gene := strings.TrimSpace(rec[0])
		if gene == "" {
			return nil, fmt.Errorf("%w: profile row %d has a blank gene symbol", ErrInvalidInput, line)
		}
		if _, dup := m.index[gene]; dup {
			return nil, fmt.Errorf("%w: duplicate gene %q at profile row %d", ErrInvalidInput, gene, line)
		}

		row := make([]float64, len(rec)-1)
		for i, cell := range rec[1:] {
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: profile row %d column %d: non-numeric cell %q",
					ErrInvalidInput, line, i+2, cell)
			}
			row[i] = v
		}

		m.index[gene] = len(m.rows)
		m.genes = append(m.genes, gene)
		m.rows = append(m.rows, row)
	}

	if len(m.rows) == 0 {
		return nil, fmt.Errorf("%w: profile matrix has no data rows", ErrInvalidInput)
	}
	return m, nil
}

// parseCell converts one matrix cell, mapping the missing-value
// spellings R and pandas emit to NaN.
func parseCell(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	switch s {
	case "", "NA", "na", "NaN", "nan", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
