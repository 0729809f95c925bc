// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package flex provides the HTTP service for gene co-annotation
// benchmarking.
//
// The service exposes endpoints for:
//   - Building and caching co-annotation gold standards
//   - Deriving the symmetric matrix form
//   - Applying hold-out policies to scored standards
//   - Precision-recall evaluation
package flex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/csbio/flex-go/services/flex/cache"
	"github.com/csbio/flex-go/services/flex/coanno"
	"github.com/csbio/flex-go/services/flex/entity"
	"github.com/csbio/flex-go/services/flex/holdout"
	"github.com/csbio/flex-go/services/flex/perf"
	"github.com/csbio/flex-go/services/flex/storage/badger"
)

// ServiceConfig configures the flex service.
type ServiceConfig struct {
	// MinOverlap is the default shared-entity threshold for builds.
	// Default: 1
	MinOverlap int

	// Workers is the default build worker count. 0 lets the builder
	// pick from GOMAXPROCS.
	Workers int

	// MaxInlinePairs caps the pair rows returned inline in build
	// responses. Default: 50000
	MaxInlinePairs int

	// BuildTimeout bounds a single standard or matrix build.
	// Default: 5m
	BuildTimeout time.Duration
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MinOverlap:     1,
		Workers:        0,
		MaxInlinePairs: 50000,
		BuildTimeout:   5 * time.Minute,
	}
}

// Service is the flex benchmarking service.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Builds of the same standard
//	name are collapsed into one by the cache layer.
type Service struct {
	config ServiceConfig
	store  *badger.Store
	cache  *cache.Builder
	log    *slog.Logger
}

// NewService creates a flex service over the given store.
//
// A nil log selects the default logger.
func NewService(config ServiceConfig, store *badger.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if config.MinOverlap < 1 {
		config.MinOverlap = 1
	}
	if config.MaxInlinePairs <= 0 {
		config.MaxInlinePairs = 50000
	}
	if config.BuildTimeout <= 0 {
		config.BuildTimeout = 5 * time.Minute
	}
	return &Service{
		config: config,
		store:  store,
		cache:  cache.NewBuilder(store, log),
		log:    log,
	}
}

// BuildParams carries per-request overrides of the build defaults.
type BuildParams struct {
	// MinOverlap overrides the shared-entity threshold. 0 selects the
	// service default.
	MinOverlap int

	// Workers overrides the worker count. 0 selects the builder
	// default.
	Workers int

	// FilterNames restricts the entity table to entities whose name
	// contains any of the substrings (case-insensitive).
	FilterNames []string
}

// buildOptions assembles the coanno options for the given params.
func (s *Service) buildOptions(p BuildParams) []coanno.BuildOption {
	minOverlap := p.MinOverlap
	if minOverlap <= 0 {
		minOverlap = s.config.MinOverlap
	}
	opts := []coanno.BuildOption{coanno.WithMinOverlap(minOverlap)}
	workers := p.Workers
	if workers <= 0 {
		workers = s.config.Workers
	}
	if workers > 0 {
		opts = append(opts, coanno.WithWorkers(workers))
	}
	return opts
}

// prepareIndex filters and indexes the entity table.
func prepareIndex(records []entity.Record, filterNames []string) *entity.Index {
	if len(filterNames) > 0 {
		records = entity.FilterByName(records, filterNames)
	}
	return entity.BuildIndex(records)
}

// BuildStandard returns the standard stored under name, building it
// from the entity table on a miss.
//
// Description:
//
//	The cache lookup is by name only: a hit returns the stored
//	standard regardless of the supplied table or params, so callers
//	that change inputs must evict first. On a miss the build runs
//	under the configured timeout, and concurrent builds of the same
//	name are collapsed into one.
//
// Outputs:
//   - *coanno.Standard: the cached or freshly built standard.
//   - bool: true when served from the store.
//   - error: wraps coanno.ErrInvalidInput for bad parameters; the
//     context error on timeout or cancellation.
func (s *Service) BuildStandard(ctx context.Context, name string, records []entity.Record, p BuildParams) (*coanno.Standard, bool, error) {
	return s.cache.LoadOrBuild(ctx, name, func(ctx context.Context) (*coanno.Standard, error) {
		ctx, cancel := context.WithTimeout(ctx, s.config.BuildTimeout)
		defer cancel()
		idx := prepareIndex(records, p.FilterNames)
		return coanno.BuildStandard(ctx, idx, s.buildOptions(p)...)
	})
}

// BuildMatrix derives the symmetric matrix form from the entity table.
//
// Matrices are not cached; every call is a fresh build under the
// configured timeout.
func (s *Service) BuildMatrix(ctx context.Context, records []entity.Record, p BuildParams) (*coanno.Matrix, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.BuildTimeout)
	defer cancel()
	idx := prepareIndex(records, p.FilterNames)
	return coanno.BuildMatrix(ctx, idx, s.buildOptions(p)...)
}

// GetStandard fetches a stored standard.
//
// Returns badger.ErrNotFound when nothing is stored under name.
func (s *Service) GetStandard(ctx context.Context, name string) (*coanno.Standard, error) {
	return s.store.GetStandard(ctx, name)
}

// DeleteStandard evicts a stored standard. Deleting a missing
// standard is not an error.
func (s *Service) DeleteStandard(ctx context.Context, name string) error {
	return s.cache.Invalidate(ctx, name)
}

// ListStandards returns the stored standard names, sorted.
func (s *Service) ListStandards(ctx context.Context) ([]string, error) {
	return s.store.ListStandards(ctx)
}

// ApplyHoldout derives a scored table with target-touching annotated
// pairs removed or relabeled.
func (s *Service) ApplyHoldout(ctx context.Context, rows []holdout.ScoredPair, goldRows int, targets []string, policy holdout.Policy) ([]holdout.ScoredPair, error) {
	return holdout.Apply(ctx, rows, goldRows, targets, policy)
}

// EvaluatePR computes the precision-recall curve for a scored table.
func (s *Service) EvaluatePR(ctx context.Context, rows []holdout.ScoredPair) (*perf.Curve, error) {
	return perf.PRCurve(ctx, rows)
}

// StandardCount returns the number of stored standards. Used by the
// readiness probe.
func (s *Service) StandardCount(ctx context.Context) (int, error) {
	names, err := s.store.ListStandards(ctx)
	if err != nil {
		return 0, fmt.Errorf("count standards: %w", err)
	}
	return len(names), nil
}
