// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package perf

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var (
	curveHeader   = []string{"threshold", "tp", "fp", "precision", "recall"}
	contribHeader = []string{"entity", "pairs", "contribution", "fraction"}
)

// WriteCurveCSV writes the sweep as CSV, one row per point.
func WriteCurveCSV(w io.Writer, c *Curve) error {
	if c == nil {
		return fmt.Errorf("%w: nil curve", ErrInvalidInput)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(curveHeader); err != nil {
		return fmt.Errorf("write curve header: %w", err)
	}
	for _, p := range c.Points {
		rec := []string{
			strconv.FormatFloat(p.Threshold, 'g', -1, 64),
			strconv.Itoa(p.TP),
			strconv.Itoa(p.FP),
			strconv.FormatFloat(p.Precision, 'g', -1, 64),
			strconv.FormatFloat(p.Recall, 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write curve row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteContributionsCSV writes the per-entity breakdown as CSV.
func WriteContributionsCSV(w io.Writer, rows []EntityContribution) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(contribHeader); err != nil {
		return fmt.Errorf("write contribution header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.EntityID,
			strconv.Itoa(r.Pairs),
			strconv.FormatFloat(r.Contribution, 'g', -1, 64),
			strconv.FormatFloat(r.Fraction, 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write contribution row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
