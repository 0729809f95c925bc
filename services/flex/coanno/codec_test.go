// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package coanno

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/csbio/flex-go/services/flex/entity"
)

func TestWriteStandardCSV(t *testing.T) {
	idx := buildTwoComplexIndex(t)
	std, err := BuildStandard(context.Background(), idx)
	if err != nil {
		t.Fatalf("BuildStandard failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteStandardCSV(&buf, std); err != nil {
		t.Fatalf("WriteStandardCSV failed: %v", err)
	}

	want := "gene1,gene2,is_annotated,ID\n" +
		"g1,g2,1,A\n" +
		"g1,g3,1,A\n" +
		"g1,g4,0,\n" +
		"g2,g3,1,A\n" +
		"g2,g4,0,\n" +
		"g3,g4,1,B\n"
	if buf.String() != want {
		t.Errorf("unexpected encoding:\n got %q\nwant %q", buf.String(), want)
	}
}

func TestWriteStandardCSVMultiSource(t *testing.T) {
	idx := entity.BuildIndex([]entity.Record{
		{ID: "A", Genes: []string{"g1", "g2"}},
		{ID: "B", Genes: []string{"g1", "g2"}},
	})
	std, err := BuildStandard(context.Background(), idx)
	if err != nil {
		t.Fatalf("BuildStandard failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteStandardCSV(&buf, std); err != nil {
		t.Fatalf("WriteStandardCSV failed: %v", err)
	}
	if !strings.Contains(buf.String(), "g1,g2,1,A;B\n") {
		t.Errorf("expected semicolon-joined sources, got %q", buf.String())
	}
}

func TestStandardCSVRoundTrip(t *testing.T) {
	idx := buildRandomIndex(t, 25, 20)
	std, err := BuildStandard(context.Background(), idx)
	if err != nil {
		t.Fatalf("BuildStandard failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteStandardCSV(&buf, std); err != nil {
		t.Fatalf("WriteStandardCSV failed: %v", err)
	}
	got, err := ReadStandardCSV(&buf)
	if err != nil {
		t.Fatalf("ReadStandardCSV failed: %v", err)
	}

	if !reflect.DeepEqual(got.Genes, std.Genes) {
		t.Errorf("gene list did not round-trip: %v vs %v", got.Genes, std.Genes)
	}
	if got.NumPairs() != std.NumPairs() {
		t.Fatalf("pair count did not round-trip: %d vs %d", got.NumPairs(), std.NumPairs())
	}
	for i := range got.Pairs {
		g, w := got.Pairs[i], std.Pairs[i]
		if g.Gene1 != w.Gene1 || g.Gene2 != w.Gene2 || g.Annotated != w.Annotated {
			t.Fatalf("row %d did not round-trip: %+v vs %+v", i, g, w)
		}
		// The persisted schema keeps sources for annotated rows only.
		if w.Annotated && !reflect.DeepEqual(g.SourceIDs, w.SourceIDs) {
			t.Fatalf("row %d sources did not round-trip: %v vs %v", i, g.SourceIDs, w.SourceIDs)
		}
	}
}

func TestReadStandardCSVErrors(t *testing.T) {
	t.Run("wrong header", func(t *testing.T) {
		in := "a,b,c,d\ng1,g2,1,A\n"
		if _, err := ReadStandardCSV(strings.NewReader(in)); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("bad label", func(t *testing.T) {
		in := "gene1,gene2,is_annotated,ID\ng1,g2,yes,A\n"
		if _, err := ReadStandardCSV(strings.NewReader(in)); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if _, err := ReadStandardCSV(strings.NewReader("")); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestWriteMatrixCSV(t *testing.T) {
	idx := buildTwoComplexIndex(t)
	m, err := BuildMatrix(context.Background(), idx)
	if err != nil {
		t.Fatalf("BuildMatrix failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteMatrixCSV(&buf, m); err != nil {
		t.Fatalf("WriteMatrixCSV failed: %v", err)
	}

	want := ",g1,g2,g3,g4\n" +
		"g1,0,1,1,0\n" +
		"g2,1,0,1,0\n" +
		"g3,1,1,0,1\n" +
		"g4,0,0,1,0\n"
	if buf.String() != want {
		t.Errorf("unexpected encoding:\n got %q\nwant %q", buf.String(), want)
	}
}
