// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/csbio/flex-go/services/flex/coanno"
)

// Files is the CSV-file twin of Builder for CLI runs: standards cache
// as "<name>.csv" under a directory with the same existence-only and
// best-effort-persist semantics.
//
// Thread Safety: safe for concurrent use within one process; no
// cross-process locking.
type Files struct {
	dir   string
	group singleflight.Group
	log   *slog.Logger
}

// NewFiles caches standards under dir. A nil log selects the default
// logger.
func NewFiles(dir string, log *slog.Logger) *Files {
	if log == nil {
		log = slog.Default()
	}
	return &Files{dir: dir, log: log}
}

// Path returns the cache file for name.
func (f *Files) Path(name string) string {
	return filepath.Join(f.dir, name+".csv")
}

// LoadOrBuild returns the standard cached at Path(name), building and
// persisting it on a miss. Semantics match Builder.LoadOrBuild: no
// freshness checks, one concurrent build per name, persist failures
// logged and swallowed.
func (f *Files) LoadOrBuild(ctx context.Context, name string, build BuildFunc) (*coanno.Standard, bool, error) {
	ctx, span := startLoadSpan(ctx, "files", name)
	defer span.End()

	path := f.Path(name)
	if file, err := os.Open(path); err == nil {
		std, err := coanno.ReadStandardCSV(file)
		file.Close()
		if err == nil {
			recordLookup(ctx, "files", true)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return std, true, nil
		}
		f.log.Warn("standard cache file corrupt, rebuilding", "path", path, "error", err)
	}
	recordLookup(ctx, "files", false)
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, _ := f.group.Do(name, func() (interface{}, error) {
		built, err := build(ctx)
		if err != nil {
			return nil, err
		}
		if err := f.persist(path, built); err != nil {
			f.log.Warn("standard cache file write failed", "path", path, "error", err)
			recordPersistFailure(ctx, "files")
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

func (f *Files) persist(path string, std *coanno.Standard) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	if err := coanno.WriteStandardCSV(file, std); err != nil {
		file.Close()
		return fmt.Errorf("write cache file: %w", err)
	}
	return file.Close()
}
