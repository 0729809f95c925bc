// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache wraps standard construction with cache-by-existence
// persistence. A stored standard is returned as-is with no freshness
// or hash validation; on a miss the standard is built and then
// persisted best-effort. A build survives a failed persist; the
// computed standard is never discarded.
package cache

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/csbio/flex-go/services/flex/coanno"
	"github.com/csbio/flex-go/services/flex/storage/badger"
)

// BuildFunc computes a standard on a cache miss.
type BuildFunc func(ctx context.Context) (*coanno.Standard, error)

// Builder caches built standards in the embedded store and collapses
// concurrent builds of the same name into one.
//
// Thread Safety: safe for concurrent use.
type Builder struct {
	store *badger.Store
	group singleflight.Group
	log   *slog.Logger
}

// NewBuilder wraps store. A nil log selects the default logger.
func NewBuilder(store *badger.Store, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{store: store, log: log}
}

// LoadOrBuild returns the standard stored under name, building and
// persisting it on a miss.
//
// Description:
//
//	The lookup is existence-only: whatever is stored under name is
//	returned without freshness checks, so eviction is the only way to
//	force a rebuild. On a miss the build runs once even under
//	concurrent callers (singleflight), and the result is persisted
//	best-effort: a persist failure is logged and counted, and the
//	computed standard is still returned. A corrupt stored entry is
//	treated as a miss and overwritten by the rebuild.
//
// Outputs:
//   - *coanno.Standard: the cached or freshly built standard.
//   - bool: true when served from the store.
//   - error: the build error on a failed rebuild; nil otherwise.
func (b *Builder) LoadOrBuild(ctx context.Context, name string, build BuildFunc) (*coanno.Standard, bool, error) {
	ctx, span := startLoadSpan(ctx, "badger", name)
	defer span.End()

	std, err := b.store.GetStandard(ctx, name)
	if err == nil {
		recordLookup(ctx, "badger", true)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return std, true, nil
	}
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	if !errors.Is(err, badger.ErrNotFound) {
		b.log.Warn("standard cache read failed, rebuilding", "name", name, "error", err)
	}
	recordLookup(ctx, "badger", false)
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, _ := b.group.Do(name, func() (interface{}, error) {
		built, err := build(ctx)
		if err != nil {
			return nil, err
		}
		if err := b.store.PutStandard(ctx, name, built); err != nil {
			b.log.Warn("standard cache persist failed", "name", name, "error", err)
			recordPersistFailure(ctx, "badger")
		}
		return built, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "standard build failed")
		return nil, false, err
	}
	return v.(*coanno.Standard), false, nil
}

// Invalidate removes the stored standard so the next LoadOrBuild
// rebuilds it. Missing entries are not an error.
func (b *Builder) Invalidate(ctx context.Context, name string) error {
	err := b.store.DeleteStandard(ctx, name)
	if errors.Is(err, badger.ErrNotFound) {
		return nil
	}
	return err
}
