// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csbio/flex-go/services/flex/coanno"
	"github.com/csbio/flex-go/services/flex/storage/badger"
)

// sampleStandard builds a standard whose CSV encoding round-trips
// exactly.
func sampleStandard() *coanno.Standard {
	return &coanno.Standard{
		Genes: []string{"g1", "g2", "g3"},
		Pairs: []coanno.Pair{
			{Gene1: "g1", Gene2: "g2", Annotated: true, SourceIDs: []string{"A"}},
			{Gene1: "g1", Gene2: "g3", Annotated: false},
			{Gene1: "g2", Gene2: "g3", Annotated: true, SourceIDs: []string{"A", "B"}},
		},
	}
}

// countingBuild returns a BuildFunc that counts invocations.
func countingBuild(calls *atomic.Int64, delay time.Duration) BuildFunc {
	return func(ctx context.Context) (*coanno.Standard, error) {
		calls.Add(1)
		if delay > 0 {
			time.Sleep(delay)
		}
		return sampleStandard(), nil
	}
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	store, err := badger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewBuilder(store, nil)
}

// TestLoadOrBuildMissThenHit verifies the build runs once and later
// calls are served from the store.
func TestLoadOrBuildMissThenHit(t *testing.T) {
	b := newTestBuilder(t)
	ctx := context.Background()
	var calls atomic.Int64

	std, cached, err := b.LoadOrBuild(ctx, "corum", countingBuild(&calls, 0))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, sampleStandard(), std)
	assert.Equal(t, int64(1), calls.Load())

	std2, cached2, err := b.LoadOrBuild(ctx, "corum", countingBuild(&calls, 0))
	require.NoError(t, err)
	assert.True(t, cached2)
	assert.Equal(t, std, std2)
	assert.Equal(t, int64(1), calls.Load(), "hit must not rebuild")
}

// TestLoadOrBuildConcurrent verifies concurrent misses collapse into a
// single build.
func TestLoadOrBuildConcurrent(t *testing.T) {
	b := newTestBuilder(t)
	var calls atomic.Int64
	build := countingBuild(&calls, 20*time.Millisecond)

	const workers = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			std, _, err := b.LoadOrBuild(context.Background(), "corum", build)
			assert.NoError(t, err)
			assert.Equal(t, sampleStandard(), std)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent misses must share one build")
}

// TestLoadOrBuildBuildError verifies a failed build propagates and
// stores nothing.
func TestLoadOrBuildBuildError(t *testing.T) {
	b := newTestBuilder(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, _, err := b.LoadOrBuild(ctx, "corum", func(ctx context.Context) (*coanno.Standard, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	var calls atomic.Int64
	_, cached, err := b.LoadOrBuild(ctx, "corum", countingBuild(&calls, 0))
	require.NoError(t, err)
	assert.False(t, cached, "failed build must not leave an entry behind")
	assert.Equal(t, int64(1), calls.Load())
}

// TestInvalidate verifies eviction forces the next call to rebuild.
func TestInvalidate(t *testing.T) {
	b := newTestBuilder(t)
	ctx := context.Background()
	var calls atomic.Int64

	_, _, err := b.LoadOrBuild(ctx, "corum", countingBuild(&calls, 0))
	require.NoError(t, err)
	require.NoError(t, b.Invalidate(ctx, "corum"))

	_, cached, err := b.LoadOrBuild(ctx, "corum", countingBuild(&calls, 0))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int64(2), calls.Load())

	// Invalidating an absent entry is a no-op.
	assert.NoError(t, b.Invalidate(ctx, "absent"))
}

// TestFilesMissThenHit verifies the CSV twin caches to disk.
func TestFilesMissThenHit(t *testing.T) {
	f := NewFiles(t.TempDir(), nil)
	ctx := context.Background()
	var calls atomic.Int64

	std, cached, err := f.LoadOrBuild(ctx, "corum", countingBuild(&calls, 0))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, sampleStandard(), std)

	if _, err := os.Stat(f.Path("corum")); err != nil {
		t.Fatalf("cache file not written: %v", err)
	}

	std2, cached2, err := f.LoadOrBuild(ctx, "corum", countingBuild(&calls, 0))
	require.NoError(t, err)
	assert.True(t, cached2)
	assert.Equal(t, std, std2)
	assert.Equal(t, int64(1), calls.Load())
}

// TestFilesStaleEntryReturnedAsIs verifies the existence-only
// contract: whatever is on disk wins, with no freshness checks.
func TestFilesStaleEntryReturnedAsIs(t *testing.T) {
	f := NewFiles(t.TempDir(), nil)
	ctx := context.Background()

	stale := &coanno.Standard{
		Genes: []string{"x1", "x2"},
		Pairs: []coanno.Pair{{Gene1: "x1", Gene2: "x2", Annotated: true, SourceIDs: []string{"Z"}}},
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(f.Path("corum")), 0o755))
	file, err := os.Create(f.Path("corum"))
	require.NoError(t, err)
	require.NoError(t, coanno.WriteStandardCSV(file, stale))
	require.NoError(t, file.Close())

	var calls atomic.Int64
	std, cached, err := f.LoadOrBuild(ctx, "corum", countingBuild(&calls, 0))
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, stale, std)
	assert.Equal(t, int64(0), calls.Load(), "existing entry must suppress the build")
}

// TestFilesCorruptEntryRebuilds verifies a corrupt file is treated as
// a miss and overwritten.
func TestFilesCorruptEntryRebuilds(t *testing.T) {
	f := NewFiles(t.TempDir(), nil)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(f.Path("corum"), []byte("not,a,standard\n"), 0o644))

	var calls atomic.Int64
	std, cached, err := f.LoadOrBuild(ctx, "corum", countingBuild(&calls, 0))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, sampleStandard(), std)
	assert.Equal(t, int64(1), calls.Load())

	// The rebuild repaired the file.
	repaired, err := os.Open(f.Path("corum"))
	require.NoError(t, err)
	defer repaired.Close()
	decoded, err := coanno.ReadStandardCSV(repaired)
	require.NoError(t, err)
	assert.Equal(t, sampleStandard(), decoded)
}

// TestFilesPersistFailureStillReturns verifies the best-effort
// persist: a write failure is swallowed and the build result returned.
func TestFilesPersistFailureStillReturns(t *testing.T) {
	base := t.TempDir()
	blocked := filepath.Join(base, "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("in the way"), 0o644))

	f := NewFiles(blocked, nil) // cache dir path is a regular file
	var calls atomic.Int64

	std, cached, err := f.LoadOrBuild(context.Background(), "corum", countingBuild(&calls, 0))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, sampleStandard(), std)
}
