// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package network

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// ============================================================
// Fixtures
// ============================================================

const sampleNetwork = `gene1	gene2	score
g1	g2	0.9
g3	g1	0.8
g2	g4	0.7
g3	g4	0.4
`

func sampleEdges(t *testing.T) []Edge {
	t.Helper()
	edges, err := ParseEdges(strings.NewReader(sampleNetwork), '\t')
	if err != nil {
		t.Fatalf("ParseEdges() error = %v", err)
	}
	return edges
}

func testFetcher(opts ...FetcherOption) *Fetcher {
	base := []FetcherOption{WithRateLimit(rate.Inf, 1)}
	f := NewFetcher(append(base, opts...)...)
	f.backoff = time.Millisecond
	return f
}

// ============================================================
// ParseEdges
// ============================================================

func TestParseEdges(t *testing.T) {
	edges := sampleEdges(t)

	want := []Edge{
		{Gene1: "g1", Gene2: "g2", Score: 0.9},
		{Gene1: "g1", Gene2: "g3", Score: 0.8},
		{Gene1: "g2", Gene2: "g4", Score: 0.7},
		{Gene1: "g3", Gene2: "g4", Score: 0.4},
	}
	if !reflect.DeepEqual(edges, want) {
		t.Errorf("ParseEdges() = %+v, want %+v", edges, want)
	}
}

func TestParseEdgesNoHeader(t *testing.T) {
	edges, err := ParseEdges(strings.NewReader("g1\tg2\t0.5\n"), '\t')
	if err != nil {
		t.Fatalf("ParseEdges() error = %v", err)
	}
	if len(edges) != 1 || edges[0].Score != 0.5 {
		t.Errorf("ParseEdges() = %+v, want one edge with score 0.5", edges)
	}
}

func TestParseEdgesComments(t *testing.T) {
	input := "# HumanNet-XC v3\n# build 2022-04\ng1\tg2\t0.5\n"
	edges, err := ParseEdges(strings.NewReader(input), '\t')
	if err != nil {
		t.Fatalf("ParseEdges() error = %v", err)
	}
	if len(edges) != 1 {
		t.Errorf("ParseEdges() returned %d edges, want 1", len(edges))
	}
}

func TestParseEdgesNormalization(t *testing.T) {
	t.Run("self edges dropped", func(t *testing.T) {
		edges, err := ParseEdges(strings.NewReader("g1\tg1\t0.9\ng1\tg2\t0.5\n"), '\t')
		if err != nil {
			t.Fatalf("ParseEdges() error = %v", err)
		}
		if len(edges) != 1 {
			t.Errorf("self edge survived: %+v", edges)
		}
	})

	t.Run("duplicate keeps highest score", func(t *testing.T) {
		input := "g1\tg2\t0.3\ng2\tg1\t0.8\ng1\tg2\t0.5\n"
		edges, err := ParseEdges(strings.NewReader(input), '\t')
		if err != nil {
			t.Fatalf("ParseEdges() error = %v", err)
		}
		if len(edges) != 1 {
			t.Fatalf("ParseEdges() returned %d edges, want 1", len(edges))
		}
		if edges[0].Score != 0.8 {
			t.Errorf("duplicate pair kept score %v, want 0.8", edges[0].Score)
		}
	})

	t.Run("orientation normalized", func(t *testing.T) {
		edges, err := ParseEdges(strings.NewReader("zz\taa\t0.1\n"), '\t')
		if err != nil {
			t.Fatalf("ParseEdges() error = %v", err)
		}
		if edges[0].Gene1 != "aa" || edges[0].Gene2 != "zz" {
			t.Errorf("pair not normalized: %+v", edges[0])
		}
	})
}

func TestParseEdgesErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"short row", "g1\tg2\t0.5\ng3\tg4\n"},
		{"blank gene", "g1\t \t0.5\n"},
		{"bad score past header", "gene1\tgene2\tscore\ng1\tg2\tabc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEdges(strings.NewReader(tt.input), '\t')
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ParseEdges() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

// ============================================================
// TopK
// ============================================================

func TestTopK(t *testing.T) {
	std, err := TopK(sampleEdges(t), 2)
	if err != nil {
		t.Fatalf("TopK() error = %v", err)
	}

	if got := std.NumPairs(); got != 4 {
		t.Fatalf("NumPairs() = %d, want 4", got)
	}
	if got := std.NumPositives(); got != 2 {
		t.Errorf("NumPositives() = %d, want 2", got)
	}

	// Top two scores are g1-g2 (0.9) and g1-g3 (0.8).
	annotated := map[string]bool{}
	for _, p := range std.Pairs {
		annotated[p.Gene1+"-"+p.Gene2] = p.Annotated
		if p.SourceIDs != nil {
			t.Errorf("network pair %s-%s carries source IDs", p.Gene1, p.Gene2)
		}
	}
	if !annotated["g1-g2"] || !annotated["g1-g3"] {
		t.Errorf("top scoring pairs not annotated: %v", annotated)
	}
	if annotated["g2-g4"] || annotated["g3-g4"] {
		t.Errorf("low scoring pairs annotated: %v", annotated)
	}

	wantGenes := []string{"g1", "g2", "g3", "g4"}
	if !reflect.DeepEqual(std.Genes, wantGenes) {
		t.Errorf("Genes = %v, want %v", std.Genes, wantGenes)
	}
}

func TestTopKOrderedOutput(t *testing.T) {
	std, err := TopK(sampleEdges(t), 1)
	if err != nil {
		t.Fatalf("TopK() error = %v", err)
	}
	for i := 1; i < len(std.Pairs); i++ {
		prev, cur := std.Pairs[i-1], std.Pairs[i]
		if prev.Gene1 > cur.Gene1 || (prev.Gene1 == cur.Gene1 && prev.Gene2 >= cur.Gene2) {
			t.Fatalf("pairs out of order at %d: %+v then %+v", i, prev, cur)
		}
	}
}

func TestTopKTieBreak(t *testing.T) {
	edges := []Edge{
		{Gene1: "g1", Gene2: "g4", Score: 0.5},
		{Gene1: "g1", Gene2: "g2", Score: 0.5},
		{Gene1: "g1", Gene2: "g3", Score: 0.5},
	}
	std, err := TopK(edges, 1)
	if err != nil {
		t.Fatalf("TopK() error = %v", err)
	}
	for _, p := range std.Pairs {
		want := p.Gene1 == "g1" && p.Gene2 == "g2"
		if p.Annotated != want {
			t.Errorf("tie break picked %s-%s annotated=%v", p.Gene1, p.Gene2, p.Annotated)
		}
	}
}

func TestTopKCutoffAtOrPastLength(t *testing.T) {
	for _, k := range []int{4, 10} {
		std, err := TopK(sampleEdges(t), k)
		if err != nil {
			t.Fatalf("TopK(%d) error = %v", k, err)
		}
		if got := std.NumPositives(); got != 4 {
			t.Errorf("TopK(%d) positives = %d, want all 4", k, got)
		}
	}
}

func TestTopKErrors(t *testing.T) {
	if _, err := TopK(sampleEdges(t), 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("TopK(0) error = %v, want ErrInvalidInput", err)
	}
	if _, err := TopK(nil, 5); !errors.Is(err, ErrEmptyResult) {
		t.Errorf("TopK(no edges) error = %v, want ErrEmptyResult", err)
	}
}

func TestTopKDoesNotMutateInput(t *testing.T) {
	edges := sampleEdges(t)
	snapshot := make([]Edge, len(edges))
	copy(snapshot, edges)

	if _, err := TopK(edges, 1); err != nil {
		t.Fatalf("TopK() error = %v", err)
	}
	if !reflect.DeepEqual(edges, snapshot) {
		t.Errorf("TopK() mutated its input")
	}
}

// ============================================================
// Importers
// ============================================================

func TestFileImporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.tsv")
	if err := os.WriteFile(path, []byte(sampleNetwork), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	imp := FileImporter{Path: path}
	edges, err := imp.Import(context.Background())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(edges) != 4 {
		t.Errorf("Import() returned %d edges, want 4", len(edges))
	}
}

func TestFileImporterGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(sampleNetwork)); err != nil {
		t.Fatalf("gzip fixture: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "net.tsv.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	edges, err := FileImporter{Path: path}.Import(context.Background())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(edges) != 4 {
		t.Errorf("Import() returned %d edges, want 4", len(edges))
	}
}

func TestFileImporterMissing(t *testing.T) {
	_, err := FileImporter{Path: filepath.Join(t.TempDir(), "absent.tsv")}.Import(context.Background())
	if err == nil {
		t.Fatal("Import() succeeded on a missing file")
	}
}

func TestHTTPImporter(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(sampleNetwork))
	}))
	defer srv.Close()

	cache := filepath.Join(t.TempDir(), "cache", "net.tsv")
	imp := HTTPImporter{URL: srv.URL, CachePath: cache, Fetcher: testFetcher()}

	edges, err := imp.Import(context.Background())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(edges) != 4 {
		t.Errorf("Import() returned %d edges, want 4", len(edges))
	}

	// Second import is served from the cache.
	if _, err := imp.Import(context.Background()); err != nil {
		t.Fatalf("cached Import() error = %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1", got)
	}
}

func TestImportStandard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.tsv")
	if err := os.WriteFile(path, []byte(sampleNetwork), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	std, err := ImportStandard(context.Background(), FileImporter{Path: path}, 2)
	if err != nil {
		t.Fatalf("ImportStandard() error = %v", err)
	}
	if std.NumPairs() != 4 || std.NumPositives() != 2 {
		t.Errorf("ImportStandard() pairs=%d positives=%d, want 4 and 2",
			std.NumPairs(), std.NumPositives())
	}
}

func TestImportStandardNilImporter(t *testing.T) {
	if _, err := ImportStandard(context.Background(), nil, 2); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ImportStandard(nil) error = %v, want ErrInvalidInput", err)
	}
}

// ============================================================
// Fetcher
// ============================================================

func TestFetchRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	payload, err := testFetcher().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(payload) != "payload" {
		t.Errorf("Fetch() = %q, want %q", payload, "payload")
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestFetchNotFoundFailsFast(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher().Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Fetch() error = %v, want ErrFetchFailed", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("404 retried: server hit %d times, want 1", got)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testFetcher(WithRetries(2)).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Fetch() error = %v, want ErrFetchFailed", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hit %d times, want 2", got)
	}
}

func TestFetchGzipPayload(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte("plain text"))
	zw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	payload, err := testFetcher().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(payload) != "plain text" {
		t.Errorf("Fetch() = %q, want decompressed payload", payload)
	}
}

func TestFetchFileWritesCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	cache := filepath.Join(t.TempDir(), "nested", "dir", "net.tsv")
	payload, err := testFetcher().FetchFile(context.Background(), srv.URL, cache)
	if err != nil {
		t.Fatalf("FetchFile() error = %v", err)
	}
	if string(payload) != "payload" {
		t.Errorf("FetchFile() = %q, want %q", payload, "payload")
	}

	cached, err := os.ReadFile(cache)
	if err != nil {
		t.Fatalf("cache file not written: %v", err)
	}
	if string(cached) != "payload" {
		t.Errorf("cache holds %q, want %q", cached, "payload")
	}
}

func TestFetchCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testFetcher().Fetch(ctx, "http://127.0.0.1:0/unreachable")
	if err == nil {
		t.Fatal("Fetch() succeeded with a canceled context")
	}
}

func TestMaybeGunzipPassthrough(t *testing.T) {
	payload, _, err := maybeGunzip([]byte("not compressed"))
	if err != nil {
		t.Fatalf("maybeGunzip() error = %v", err)
	}
	if string(payload) != "not compressed" {
		t.Errorf("maybeGunzip() altered a plain payload")
	}
}
