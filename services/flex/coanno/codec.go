// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package coanno

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Pair-list CSV header, fixed column order.
var standardHeader = []string{"gene1", "gene2", "is_annotated", "ID"}

// WriteStandardCSV encodes a standard in the pair-list schema:
// gene1, gene2, is_annotated (0/1), ID (semicolon-joined sorted shared
// entity IDs, empty when unannotated). Rows are written in enumeration
// order, so identical standards encode byte-identically.
func WriteStandardCSV(w io.Writer, std *Standard) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(standardHeader); err != nil {
		return fmt.Errorf("write pair-list header: %w", err)
	}
	row := make([]string, 4)
	for i := range std.Pairs {
		p := &std.Pairs[i]
		row[0] = p.Gene1
		row[1] = p.Gene2
		if p.Annotated {
			row[2] = "1"
		} else {
			row[2] = "0"
		}
		row[3] = p.SourceField()
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write pair row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadStandardCSV decodes a pair-list CSV back into a Standard. The
// candidate gene list is reconstructed as the sorted union of the
// gene columns; pair rows keep file order.
func ReadStandardCSV(r io.Reader) (*Standard, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: pair-list table is empty", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read pair-list header: %w", err)
	}
	if len(header) != len(standardHeader) {
		return nil, fmt.Errorf("%w: pair-list table must have %d columns, got %d",
			ErrInvalidInput, len(standardHeader), len(header))
	}
	cr.FieldsPerRecord = len(standardHeader)
	for i, want := range standardHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return nil, fmt.Errorf("%w: pair-list column %d must be %q, got %q",
				ErrInvalidInput, i+1, want, header[i])
		}
	}

	seen := make(map[string]struct{})
	var pairs []Pair
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read pair row %d: %w", line, err)
		}
		p := Pair{Gene1: row[0], Gene2: row[1]}
		switch row[2] {
		case "1":
			p.Annotated = true
		case "0":
			p.Annotated = false
		default:
			return nil, fmt.Errorf("%w: pair row %d has is_annotated %q, want 0 or 1",
				ErrInvalidInput, line, row[2])
		}
		if row[3] != "" {
			p.SourceIDs = strings.Split(row[3], ";")
		}
		pairs = append(pairs, p)
		seen[p.Gene1] = struct{}{}
		seen[p.Gene2] = struct{}{}
	}

	genes := make([]string, 0, len(seen))
	for g := range seen {
		genes = append(genes, g)
	}
	sort.Strings(genes)
	if pairs == nil {
		pairs = []Pair{}
	}
	return &Standard{Genes: genes, Pairs: pairs}, nil
}

// WriteMatrixCSV encodes the adjacency form: a header row of candidate
// genes, then one labeled 0/1 row per gene in candidate order.
func WriteMatrixCSV(w io.Writer, m *Matrix) error {
	cw := csv.NewWriter(w)

	header := make([]string, m.Dim()+1)
	header[0] = ""
	copy(header[1:], m.Genes)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write matrix header: %w", err)
	}

	row := make([]string, m.Dim()+1)
	for i := 0; i < m.Dim(); i++ {
		row[0] = m.Genes[i]
		for j := 0; j < m.Dim(); j++ {
			if m.At(i, j) == 1 {
				row[j+1] = "1"
			} else {
				row[j+1] = "0"
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write matrix row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
