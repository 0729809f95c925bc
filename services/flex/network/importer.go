// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package network

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/csbio/flex-go/services/flex/coanno"
)

// Importer produces a normalized edge list from some network source.
type Importer interface {
	// Import reads and parses the source. Edges are returned
	// normalized and sorted the way ParseEdges leaves them.
	Import(ctx context.Context) ([]Edge, error)

	// Source names the origin for spans and log lines.
	Source() string
}

// FileImporter reads a network edge list from the local filesystem.
type FileImporter struct {
	// Path is the edge-list file. Gzip files are handled.
	Path string

	// Delim is the field delimiter. Zero means tab.
	Delim rune
}

// Import implements Importer.
func (fi FileImporter) Import(ctx context.Context) ([]Edge, error) {
	payload, err := os.ReadFile(fi.Path)
	if err != nil {
		return nil, fmt.Errorf("read network file: %w", err)
	}
	payload, _, err = maybeGunzip(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, fi.Path, err)
	}
	return ParseEdges(bytes.NewReader(payload), fi.delim())
}

// Source implements Importer.
func (fi FileImporter) Source() string { return fi.Path }

func (fi FileImporter) delim() rune {
	if fi.Delim == 0 {
		return '\t'
	}
	return fi.Delim
}

// HTTPImporter downloads a network edge list, caching the raw payload
// next to other imported networks so repeated imports skip the
// download.
type HTTPImporter struct {
	// URL is the network source.
	URL string

	// CachePath stores the downloaded payload. Empty disables caching.
	CachePath string

	// Delim is the field delimiter. Zero means tab.
	Delim rune

	// Fetcher performs the download. Nil means NewFetcher() defaults.
	Fetcher *Fetcher
}

// Import implements Importer.
func (hi HTTPImporter) Import(ctx context.Context) ([]Edge, error) {
	f := hi.Fetcher
	if f == nil {
		f = NewFetcher()
	}

	var payload []byte
	var err error
	if hi.CachePath != "" {
		payload, err = f.FetchFile(ctx, hi.URL, hi.CachePath)
	} else {
		payload, err = f.Fetch(ctx, hi.URL)
	}
	if err != nil {
		return nil, err
	}
	delim := hi.Delim
	if delim == 0 {
		delim = '\t'
	}
	return ParseEdges(bytes.NewReader(payload), delim)
}

// Source implements Importer.
func (hi HTTPImporter) Source() string { return hi.URL }

// ImportStandard runs an importer and binarizes the result at the
// top-k cutoff.
//
// Description:
//
//	One-call path from a network source to a co-annotation standard:
//	import, normalize, rank by score, annotate the top k pairs. The
//	resulting standard holds only the network's edges, not the full
//	pair enumeration a gold standard build produces.
//
// Inputs:
//   - ctx: cancellation and tracing context.
//   - imp: network source. Must not be nil.
//   - k: number of edges to annotate. Must be >= 1.
//
// Outputs:
//   - *coanno.Standard: edge pairs sorted by (Gene1, Gene2).
//   - error: ErrInvalidInput for a bad cutoff or malformed source,
//     ErrEmptyResult for a source with no usable edges, ErrFetchFailed
//     when a download is exhausted.
func ImportStandard(ctx context.Context, imp Importer, k int) (*coanno.Standard, error) {
	if imp == nil {
		return nil, fmt.Errorf("%w: importer is nil", ErrInvalidInput)
	}
	ctx, span := startImportSpan(ctx, imp.Source(), k)
	defer span.End()
	start := time.Now()

	edges, err := imp.Import(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "network import failed")
		recordImportMetrics(ctx, time.Since(start), 0, false)
		return nil, err
	}

	std, err := TopK(edges, k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "top-k binarization failed")
		recordImportMetrics(ctx, time.Since(start), len(edges), false)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("network.edges", len(edges)),
		attribute.Int("network.genes", std.NumGenes()),
	)
	recordImportMetrics(ctx, time.Since(start), len(edges), true)
	return std, nil
}
