// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package holdout

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Scored-table CSV header, fixed column order on write.
var scoredHeader = []string{"gene1", "gene2", "is_annotated", "ID", "index", "score"}

// WriteScoredCSV encodes a scored table: the pair-list schema plus the
// index and score columns. Row order is preserved.
func WriteScoredCSV(w io.Writer, rows []ScoredPair) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scoredHeader); err != nil {
		return fmt.Errorf("write scored header: %w", err)
	}
	rec := make([]string, 6)
	for i := range rows {
		r := &rows[i]
		rec[0] = r.Gene1
		rec[1] = r.Gene2
		if r.Annotated {
			rec[2] = "1"
		} else {
			rec[2] = "0"
		}
		rec[3] = strings.Join(r.SourceIDs, ";")
		rec[4] = strconv.Itoa(r.Index)
		rec[5] = strconv.FormatFloat(r.Score, 'g', -1, 64)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write scored row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadScoredCSV decodes a scored table. The gene1, gene2,
// is_annotated, and index columns are required (any order,
// case-insensitive header match); ID and score are optional.
func ReadScoredCSV(r io.Reader) ([]ScoredPair, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: scored table is empty", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read scored table header: %w", err)
	}

	cols := map[string]int{}
	for i, col := range header {
		cols[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{"gene1", "gene2", "is_annotated", "index"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: scored table is missing the %s column", ErrInvalidInput, required)
		}
	}
	g1Col, g2Col := cols["gene1"], cols["gene2"]
	annCol, idxCol := cols["is_annotated"], cols["index"]
	idCol, hasID := cols["id"]
	scoreCol, hasScore := cols["score"]

	var rows []ScoredPair
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read scored row %d: %w", line, err)
		}
		if len(rec) < len(header) {
			return nil, fmt.Errorf("%w: scored row %d is short", ErrInvalidInput, line)
		}

		row := ScoredPair{Gene1: rec[g1Col], Gene2: rec[g2Col]}
		switch rec[annCol] {
		case "1":
			row.Annotated = true
		case "0":
			row.Annotated = false
		default:
			return nil, fmt.Errorf("%w: scored row %d has is_annotated %q, want 0 or 1",
				ErrInvalidInput, line, rec[annCol])
		}
		row.Index, err = strconv.Atoi(strings.TrimSpace(rec[idxCol]))
		if err != nil {
			return nil, fmt.Errorf("%w: scored row %d has a non-integer index %q",
				ErrInvalidInput, line, rec[idxCol])
		}
		if hasID && rec[idCol] != "" {
			row.SourceIDs = strings.Split(rec[idCol], ";")
		}
		if hasScore && rec[scoreCol] != "" {
			row.Score, err = strconv.ParseFloat(strings.TrimSpace(rec[scoreCol]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: scored row %d has a non-numeric score %q",
					ErrInvalidInput, line, rec[scoreCol])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
