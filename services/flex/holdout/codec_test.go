// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package holdout

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestScoredCSVRoundTrip(t *testing.T) {
	rows := []ScoredPair{
		{Index: 0, Gene1: "g1", Gene2: "g2", Annotated: true, SourceIDs: []string{"A", "B"}, Score: 0.91},
		{Index: 1, Gene1: "g1", Gene2: "g3", Annotated: false, Score: -0.25},
		{Index: 5, Gene1: "g3", Gene2: "g4", Annotated: true, SourceIDs: []string{"B"}, Score: 0},
	}

	var buf bytes.Buffer
	if err := WriteScoredCSV(&buf, rows); err != nil {
		t.Fatalf("WriteScoredCSV failed: %v", err)
	}
	got, err := ReadScoredCSV(&buf)
	if err != nil {
		t.Fatalf("ReadScoredCSV failed: %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("round trip diverged:\n got %+v\nwant %+v", got, rows)
	}
}

func TestReadScoredCSVFlexibleColumns(t *testing.T) {
	// Shuffled column order, extra column, no ID column.
	in := "score,gene2,gene1,run,is_annotated,index\n" +
		"0.5,g2,g1,r1,1,0\n" +
		"-1.5,g3,g1,r1,0,1\n"
	rows, err := ReadScoredCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadScoredCSV failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Gene1 != "g1" || rows[0].Gene2 != "g2" || !rows[0].Annotated || rows[0].Score != 0.5 {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Index != 1 || rows[1].Score != -1.5 {
		t.Errorf("unexpected second row: %+v", rows[1])
	}
}

func TestReadScoredCSVErrors(t *testing.T) {
	t.Run("missing index column", func(t *testing.T) {
		in := "gene1,gene2,is_annotated,score\ng1,g2,1,0.5\n"
		if _, err := ReadScoredCSV(strings.NewReader(in)); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("non-integer index", func(t *testing.T) {
		in := "gene1,gene2,is_annotated,index\ng1,g2,1,first\n"
		if _, err := ReadScoredCSV(strings.NewReader(in)); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("bad label", func(t *testing.T) {
		in := "gene1,gene2,is_annotated,index\ng1,g2,maybe,0\n"
		if _, err := ReadScoredCSV(strings.NewReader(in)); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("bad score", func(t *testing.T) {
		in := "gene1,gene2,is_annotated,index,score\ng1,g2,1,0,high\n"
		if _, err := ReadScoredCSV(strings.NewReader(in)); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if _, err := ReadScoredCSV(strings.NewReader("")); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
