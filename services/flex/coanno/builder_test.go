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
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"testing"

	"github.com/csbio/flex-go/services/flex/entity"
)

// =============================================================================
// Fixtures
// =============================================================================

// buildTwoComplexIndex is the canonical fixture: A={g1,g2,g3}, B={g3,g4}.
func buildTwoComplexIndex(t *testing.T) *entity.Index {
	t.Helper()
	return entity.BuildIndex([]entity.Record{
		{ID: "A", Name: "Complex A", Genes: []string{"g1", "g2", "g3"}},
		{ID: "B", Name: "Complex B", Genes: []string{"g3", "g4"}},
	})
}

// buildRandomIndex creates a reproducible index large enough to engage
// parallel emission.
func buildRandomIndex(t *testing.T, genes, entities int) *entity.Index {
	t.Helper()
	rng := rand.New(rand.NewSource(42))

	pool := make([]string, genes)
	for i := range pool {
		pool[i] = fmt.Sprintf("g%03d", i)
	}

	records := make([]entity.Record, entities)
	for e := range records {
		size := 2 + rng.Intn(9)
		members := make([]string, size)
		for m := range members {
			members[m] = pool[rng.Intn(len(pool))]
		}
		records[e] = entity.Record{ID: fmt.Sprintf("E%03d", e), Genes: members}
	}
	return entity.BuildIndex(records)
}

// intersectSorted merges two sorted ID slices; nil when disjoint.
func intersectSorted(a, b []string) []string {
	var out []string
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// naivePairs recomputes the standard with a full intersection pass.
func naivePairs(t *testing.T, idx *entity.Index, minOverlap int) []Pair {
	t.Helper()
	genes := idx.Genes()
	var pairs []Pair
	for i := 0; i < len(genes); i++ {
		for j := i + 1; j < len(genes); j++ {
			p := Pair{Gene1: genes[i], Gene2: genes[j]}
			shared := intersectSorted(idx.EntityIDs(genes[i]), idx.EntityIDs(genes[j]))
			if len(shared) > 0 {
				p.SourceIDs = shared
				p.Annotated = len(shared) >= minOverlap
			}
			pairs = append(pairs, p)
		}
	}
	return pairs
}

// =============================================================================
// BuildStandard Tests
// =============================================================================

func TestBuildStandardFixture(t *testing.T) {
	idx := buildTwoComplexIndex(t)
	std, err := BuildStandard(context.Background(), idx)
	if err != nil {
		t.Fatalf("BuildStandard failed: %v", err)
	}

	if got := std.Genes; !reflect.DeepEqual(got, []string{"g1", "g2", "g3", "g4"}) {
		t.Fatalf("unexpected candidate genes: %v", got)
	}

	want := []Pair{
		{Gene1: "g1", Gene2: "g2", Annotated: true, SourceIDs: []string{"A"}},
		{Gene1: "g1", Gene2: "g3", Annotated: true, SourceIDs: []string{"A"}},
		{Gene1: "g1", Gene2: "g4"},
		{Gene1: "g2", Gene2: "g3", Annotated: true, SourceIDs: []string{"A"}},
		{Gene1: "g2", Gene2: "g4"},
		{Gene1: "g3", Gene2: "g4", Annotated: true, SourceIDs: []string{"B"}},
	}
	if !reflect.DeepEqual(std.Pairs, want) {
		t.Errorf("unexpected pairs:\n got %+v\nwant %+v", std.Pairs, want)
	}
	if std.NumPositives() != 4 {
		t.Errorf("expected 4 positives, got %d", std.NumPositives())
	}
}

func TestBuildStandardCardinality(t *testing.T) {
	idx := buildRandomIndex(t, 40, 15)
	std, err := BuildStandard(context.Background(), idx)
	if err != nil {
		t.Fatalf("BuildStandard failed: %v", err)
	}

	n := std.NumGenes()
	if want := n * (n - 1) / 2; std.NumPairs() != want {
		t.Fatalf("expected C(%d,2)=%d pairs, got %d", n, want, std.NumPairs())
	}

	// Each unordered pair exactly once, i < j in candidate order.
	seen := make(map[string]struct{}, std.NumPairs())
	for _, p := range std.Pairs {
		if p.Gene1 >= p.Gene2 {
			t.Fatalf("pair out of order: %s >= %s", p.Gene1, p.Gene2)
		}
		key := p.Gene1 + "|" + p.Gene2
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate pair %s", key)
		}
		seen[key] = struct{}{}
	}
}

func TestBuildStandardMatchesNaive(t *testing.T) {
	for _, overlap := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("min overlap %d", overlap), func(t *testing.T) {
			idx := buildRandomIndex(t, 30, 25)
			std, err := BuildStandard(context.Background(), idx, WithMinOverlap(overlap))
			if err != nil {
				t.Fatalf("BuildStandard failed: %v", err)
			}
			want := naivePairs(t, idx, overlap)
			if !reflect.DeepEqual(std.Pairs, want) {
				t.Errorf("sparse enumeration diverged from naive pass at overlap %d", overlap)
			}
		})
	}
}

func TestBuildStandardThreshold(t *testing.T) {
	// g1/g2 share {A,B}; g2/g3 share {A,C}; g1/g3 share only {A}.
	idx := entity.BuildIndex([]entity.Record{
		{ID: "A", Genes: []string{"g1", "g2", "g3"}},
		{ID: "B", Genes: []string{"g1", "g2"}},
		{ID: "C", Genes: []string{"g2", "g3"}},
	})
	std, err := BuildStandard(context.Background(), idx, WithMinOverlap(2))
	if err != nil {
		t.Fatalf("BuildStandard failed: %v", err)
	}

	byPair := make(map[string]Pair)
	for _, p := range std.Pairs {
		byPair[p.Gene1+"|"+p.Gene2] = p
	}

	if p := byPair["g1|g2"]; !p.Annotated || !reflect.DeepEqual(p.SourceIDs, []string{"A", "B"}) {
		t.Errorf("g1/g2 should be annotated with sources [A B], got %+v", p)
	}
	if p := byPair["g2|g3"]; !p.Annotated || !reflect.DeepEqual(p.SourceIDs, []string{"A", "C"}) {
		t.Errorf("g2/g3 should be annotated with sources [A C], got %+v", p)
	}
	// Below threshold, but the raw intersection is retained.
	if p := byPair["g1|g3"]; p.Annotated || p.SharedCount() != 1 {
		t.Errorf("g1/g3 should be unannotated with shared count 1, got %+v", p)
	}
}

func TestBuildStandardDegenerate(t *testing.T) {
	t.Run("single gene", func(t *testing.T) {
		idx := entity.BuildIndex([]entity.Record{{ID: "A", Genes: []string{"g1"}}})
		std, err := BuildStandard(context.Background(), idx)
		if err != nil {
			t.Fatalf("expected empty success, got %v", err)
		}
		if std.NumPairs() != 0 || std.NumGenes() != 1 {
			t.Errorf("expected 1 gene and 0 pairs, got %d/%d", std.NumGenes(), std.NumPairs())
		}
	})

	t.Run("no genes", func(t *testing.T) {
		std, err := BuildStandard(context.Background(), entity.BuildIndex(nil))
		if err != nil {
			t.Fatalf("expected empty success, got %v", err)
		}
		if std.NumPairs() != 0 {
			t.Errorf("expected 0 pairs, got %d", std.NumPairs())
		}
	})
}

func TestBuildStandardInvalidOverlap(t *testing.T) {
	idx := buildTwoComplexIndex(t)

	if _, err := BuildStandard(context.Background(), idx, WithMinOverlap(0)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("overlap 0: expected ErrInvalidInput, got %v", err)
	}
	// Largest membership in the fixture is 2 (g3 in A and B).
	if _, err := BuildStandard(context.Background(), idx, WithMinOverlap(3)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("overlap 3: expected ErrInvalidInput, got %v", err)
	}
	if _, err := BuildStandard(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil index: expected ErrInvalidInput, got %v", err)
	}
}

func TestBuildStandardParallelMatchesSerial(t *testing.T) {
	// 120 genes gives 7140 pairs, past the parallel threshold.
	idx := buildRandomIndex(t, 120, 60)

	serial, err := BuildStandard(context.Background(), idx, WithWorkers(1))
	if err != nil {
		t.Fatalf("serial build failed: %v", err)
	}
	parallel, err := BuildStandard(context.Background(), idx, WithWorkers(4))
	if err != nil {
		t.Fatalf("parallel build failed: %v", err)
	}

	if !reflect.DeepEqual(serial.Pairs, parallel.Pairs) {
		t.Fatal("parallel emission diverged from serial order")
	}

	var a, b bytes.Buffer
	if err := WriteStandardCSV(&a, serial); err != nil {
		t.Fatalf("encode serial: %v", err)
	}
	if err := WriteStandardCSV(&b, parallel); err != nil {
		t.Fatalf("encode parallel: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("parallel output not byte-identical to serial")
	}
}

func TestBuildStandardIdempotent(t *testing.T) {
	idx := buildRandomIndex(t, 50, 30)

	var first, second bytes.Buffer
	for i, buf := range []*bytes.Buffer{&first, &second} {
		std, err := BuildStandard(context.Background(), idx)
		if err != nil {
			t.Fatalf("build %d failed: %v", i+1, err)
		}
		if err := WriteStandardCSV(buf, std); err != nil {
			t.Fatalf("encode %d failed: %v", i+1, err)
		}
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatal("repeated builds are not byte-identical")
	}
}

func TestBuildStandardCancellation(t *testing.T) {
	idx := buildRandomIndex(t, 120, 60)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := BuildStandard(ctx, idx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBuildStandardProgress(t *testing.T) {
	idx := buildRandomIndex(t, 120, 60)

	var mu sync.Mutex
	phases := make(map[ProgressPhase]int)
	_, err := BuildStandard(context.Background(), idx, WithProgress(func(p BuildProgress) {
		mu.Lock()
		phases[p.Phase]++
		mu.Unlock()
	}))
	if err != nil {
		t.Fatalf("BuildStandard failed: %v", err)
	}
	if phases[ProgressPhaseIndexing] == 0 {
		t.Error("expected indexing progress callbacks")
	}
	if phases[ProgressPhaseEnumerating] == 0 {
		t.Error("expected enumeration progress callbacks")
	}
}

// =============================================================================
// BuildMatrix Tests
// =============================================================================

func TestBuildMatrixFixture(t *testing.T) {
	idx := buildTwoComplexIndex(t)
	m, err := BuildMatrix(context.Background(), idx)
	if err != nil {
		t.Fatalf("BuildMatrix failed: %v", err)
	}

	// Candidate order: g1=0, g2=1, g3=2, g4=3.
	want := [4][4]uint8{
		{0, 1, 1, 0},
		{1, 0, 1, 0},
		{1, 1, 0, 1},
		{0, 0, 1, 0},
	}
	for i := 0; i < m.Dim(); i++ {
		for j := 0; j < m.Dim(); j++ {
			if m.At(i, j) != want[i][j] {
				t.Errorf("M[%d][%d] = %d, want %d", i, j, m.At(i, j), want[i][j])
			}
		}
	}
}

func TestBuildMatrixSymmetry(t *testing.T) {
	idx := buildRandomIndex(t, 40, 25)
	m, err := BuildMatrix(context.Background(), idx)
	if err != nil {
		t.Fatalf("BuildMatrix failed: %v", err)
	}

	for i := 0; i < m.Dim(); i++ {
		if m.At(i, i) != 0 {
			t.Errorf("diagonal cell [%d][%d] was written", i, i)
		}
		for j := i + 1; j < m.Dim(); j++ {
			if m.At(i, j) != m.At(j, i) {
				t.Errorf("asymmetry at [%d][%d]", i, j)
			}
		}
	}
}

func TestBuildMatrixMatchesPairList(t *testing.T) {
	for _, overlap := range []int{1, 2} {
		t.Run(fmt.Sprintf("min overlap %d", overlap), func(t *testing.T) {
			idx := buildRandomIndex(t, 30, 25)
			std, err := BuildStandard(context.Background(), idx, WithMinOverlap(overlap))
			if err != nil {
				t.Fatalf("BuildStandard failed: %v", err)
			}
			m, err := BuildMatrix(context.Background(), idx, WithMinOverlap(overlap))
			if err != nil {
				t.Fatalf("BuildMatrix failed: %v", err)
			}

			n := len(std.Genes)
			k := 0
			for i := 0; i < n; i++ {
				for j := i + 1; j < n; j++ {
					cell := m.At(i, j) == 1
					if cell != std.Pairs[k].Annotated {
						t.Fatalf("matrix and pair list disagree at (%s,%s)",
							std.Pairs[k].Gene1, std.Pairs[k].Gene2)
					}
					k++
				}
			}
		})
	}
}

func TestBuildMatrixDegenerate(t *testing.T) {
	m, err := BuildMatrix(context.Background(), entity.BuildIndex(nil))
	if err != nil {
		t.Fatalf("expected empty success, got %v", err)
	}
	if m.Dim() != 0 {
		t.Errorf("expected empty matrix, got dim %d", m.Dim())
	}

	if _, err := BuildMatrix(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil index: expected ErrInvalidInput, got %v", err)
	}
}

// =============================================================================
// Partition Helpers
// =============================================================================

func TestRowOffset(t *testing.T) {
	// n=4: ranks are (0,1)=0 (0,2)=1 (0,3)=2 (1,2)=3 (1,3)=4 (2,3)=5.
	cases := []struct{ i, want int }{{0, 0}, {1, 3}, {2, 5}, {3, 6}}
	for _, c := range cases {
		if got := rowOffset(4, c.i); got != c.want {
			t.Errorf("rowOffset(4,%d) = %d, want %d", c.i, got, c.want)
		}
	}
}

func TestRowChunks(t *testing.T) {
	for _, workers := range []int{1, 2, 4, 8, 100} {
		t.Run(fmt.Sprintf("%d workers", workers), func(t *testing.T) {
			n := 50
			bounds := rowChunks(n, workers)
			if bounds[0] != 0 || bounds[len(bounds)-1] != n-1 {
				t.Fatalf("bounds must cover [0,%d), got %v", n-1, bounds)
			}
			for i := 1; i < len(bounds); i++ {
				if bounds[i] <= bounds[i-1] {
					t.Fatalf("chunk %d is empty or reversed: %v", i, bounds)
				}
			}
			if len(bounds)-1 > workers {
				t.Fatalf("more chunks than workers: %v", bounds)
			}
		})
	}
}

func ExampleBuildStandard() {
	idx := entity.BuildIndex([]entity.Record{
		{ID: "A", Name: "Complex A", Genes: []string{"g1", "g2", "g3"}},
		{ID: "B", Name: "Complex B", Genes: []string{"g3", "g4"}},
	})
	std, err := BuildStandard(context.Background(), idx)
	if err != nil {
		fmt.Println("build failed:", err)
		return
	}
	for _, p := range std.Pairs {
		label := 0
		if p.Annotated {
			label = 1
		}
		fmt.Printf("%s,%s,%d,%s\n", p.Gene1, p.Gene2, label, p.SourceField())
	}
	// Output:
	// g1,g2,1,A
	// g1,g3,1,A
	// g1,g4,0,
	// g2,g3,1,A
	// g2,g4,0,
	// g3,g4,1,B
}
