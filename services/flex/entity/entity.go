// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package entity models curated functional entities (protein complexes,
// pathways, GO terms) and builds the gene-to-entity membership index that
// co-annotation standards are derived from.
package entity

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// geneDelimiter separates gene symbols inside a table's Genes field.
const geneDelimiter = ";"

// Required entity table columns, matched against the header row.
const (
	ColumnID    = "ID"
	ColumnName  = "Name"
	ColumnGenes = "Genes"
)

// Record is a single curated entity with its member gene list.
//
// Member genes are whitespace-stripped, case-preserved symbols in the
// order they appeared in the source table. Records are treated as
// immutable once loaded.
type Record struct {
	ID    string
	Name  string
	Genes []string
}

// Size returns the number of member genes.
func (r Record) Size() int {
	return len(r.Genes)
}

// ParseGeneList splits a delimited gene-list field into clean symbols.
//
// Description:
//
//	Splits on ";", removes every whitespace character from each token
//	(CORUM-style exports carry internal spaces), and discards tokens
//	that are empty after stripping. Symbol case is preserved: "C4orf3"
//	and "C4ORF3" are distinct genes and are never collapsed.
//
// Outputs:
//   - []string: cleaned symbols in source order; nil when none survive.
func ParseGeneList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, geneDelimiter)
	genes := make([]string, 0, len(parts))
	for _, part := range parts {
		symbol := stripWhitespace(part)
		if symbol == "" {
			continue
		}
		genes = append(genes, symbol)
	}
	if len(genes) == 0 {
		return nil
	}
	return genes
}

// stripWhitespace removes all whitespace runes, not just the surround.
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// LoadTable reads a comma-separated entity table.
//
// See LoadTableDelim for the schema contract.
func LoadTable(r io.Reader) ([]Record, error) {
	return LoadTableDelim(r, ',')
}

// LoadTableDelim reads an entity table with the given field delimiter.
//
// Description:
//
//	Expects a header row containing the ID, Name, and Genes columns
//	(any column order, case-insensitive match, extra columns ignored).
//	Each data row yields one Record; the Genes field is parsed with
//	ParseGeneList. An empty Genes field is legal and contributes no
//	genes, but a row that is missing the field entirely is rejected.
//
// Inputs:
//   - r: table source. Must not be nil.
//   - delim: field delimiter (',' for CSV exports, '\t' for CORUM-style
//     downloads).
//
// Outputs:
//   - []Record: one per data row, in table order.
//   - error: wraps ErrInvalidInput on a missing required column or a
//     short row.
func LoadTableDelim(r io.Reader, delim rune) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: entity table is empty", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read entity table header: %w", err)
	}

	idCol, nameCol, genesCol := -1, -1, -1
	for i, col := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(col), ColumnID):
			idCol = i
		case strings.EqualFold(strings.TrimSpace(col), ColumnName):
			nameCol = i
		case strings.EqualFold(strings.TrimSpace(col), ColumnGenes):
			genesCol = i
		}
	}
	if idCol < 0 || nameCol < 0 || genesCol < 0 {
		return nil, fmt.Errorf("%w: entity table must have %s, %s, and %s columns",
			ErrInvalidInput, ColumnID, ColumnName, ColumnGenes)
	}

	width := max(idCol, max(nameCol, genesCol)) + 1
	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read entity table row %d: %w", line, err)
		}
		if len(row) < width {
			return nil, fmt.Errorf("%w: entity table row %d is missing the gene-list field",
				ErrInvalidInput, line)
		}
		records = append(records, Record{
			ID:    strings.TrimSpace(row[idCol]),
			Name:  strings.TrimSpace(row[nameCol]),
			Genes: ParseGeneList(row[genesCol]),
		})
	}
	return records, nil
}

// FilterByName keeps records whose Name contains at least one of the
// given substrings (case-sensitive, union across substrings).
//
// An empty substring list keeps every record. The input slice is never
// mutated; the result is freshly allocated.
func FilterByName(records []Record, substrings []string) []Record {
	kept := make([]Record, 0, len(records))
	if len(substrings) == 0 {
		kept = append(kept, records...)
		return kept
	}
	for _, rec := range records {
		for _, sub := range substrings {
			if strings.Contains(rec.Name, sub) {
				kept = append(kept, rec)
				break
			}
		}
	}
	return kept
}
