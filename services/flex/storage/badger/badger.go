// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package badger persists built co-annotation standards in an embedded
// BadgerDB so expensive builds are reused across runs and restarts.
//
// Standards are stored under "std:<name>" keys in the pair-list CSV
// encoding, the same bytes the exporters write, so a stored standard
// round-trips exactly.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/csbio/flex-go/services/flex/coanno"
)

// keyPrefix namespaces standard entries within the key space.
const keyPrefix = "std:"

// Config holds configuration for the standard store.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default: true for production, false for testing.
	SyncWrites bool

	// Logger receives BadgerDB's internal log lines.
	// If nil, BadgerDB's internal logging is disabled.
	Logger *slog.Logger

	// NumVersionsToKeep is the number of versions to keep per key.
	// Default: 1; standards are overwritten whole.
	NumVersionsToKeep int

	// GCInterval is how often to run value log garbage collection.
	// Default: 5 minutes. Set to 0 to disable.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	// Default: 0.5.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults: durable writes, single
// version retention, five-minute GC.
func DefaultConfig() Config {
	return Config{
		SyncWrites:        true,
		NumVersionsToKeep: 1,
		GCInterval:        5 * time.Minute,
		GCDiscardRatio:    0.5,
	}
}

// InMemoryConfig returns a configuration for tests: no disk I/O, no
// sync, no GC.
func InMemoryConfig() Config {
	return Config{
		InMemory:          true,
		SyncWrites:        false,
		NumVersionsToKeep: 1,
		GCInterval:        0,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a named collection of persisted standards backed by
// BadgerDB.
//
// Thread Safety: safe for concurrent use.
type Store struct {
	db       *badger.DB
	gcRunner *GCRunner
	path     string
	inMemory bool
}

// OpenStore opens the standard store with the given configuration.
//
// Description:
//
//	Opens BadgerDB at the configured path (created if missing), or in
//	memory, and starts the GC runner when GCInterval is set. Callers
//	own the store and must Close it.
//
// Outputs:
//   - *Store: the opened store.
//   - error: wraps ErrInvalidInput when a persistent store has no
//     path; otherwise the BadgerDB open error.
func OpenStore(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("%w: path is required for a persistent store", ErrInvalidInput)
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(cfg.NumVersionsToKeep)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open standard store: %w", err)
	}

	s := &Store{
		db:       db,
		path:     cfg.Path,
		inMemory: cfg.InMemory,
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		runner, err := NewGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create GC runner: %w", err)
		}
		s.gcRunner = runner
		runner.Start()
	}
	return s, nil
}

// OpenInMemory opens an ephemeral store for tests.
func OpenInMemory() (*Store, error) {
	return OpenStore(InMemoryConfig())
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	if s.gcRunner != nil {
		s.gcRunner.Stop()
	}
	return s.db.Close()
}

// Path returns the store directory, or empty for in-memory stores.
func (s *Store) Path() string { return s.path }

// InMemory reports whether the store is ephemeral.
func (s *Store) InMemory() bool { return s.inMemory }

func standardKey(name string) []byte {
	return []byte(keyPrefix + name)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: standard name is empty", ErrInvalidInput)
	}
	return nil
}

// PutStandard stores std under name, replacing any previous entry.
//
// The value is the pair-list CSV encoding, so anything readable by the
// CSV codec can be stored and a stored standard round-trips exactly.
func (s *Store) PutStandard(ctx context.Context, name string, std *coanno.Standard) error {
	if err := validateName(name); err != nil {
		return err
	}
	if std == nil {
		return fmt.Errorf("%w: nil standard", ErrInvalidInput)
	}

	var buf bytes.Buffer
	if err := coanno.WriteStandardCSV(&buf, std); err != nil {
		return fmt.Errorf("encode standard %q: %w", name, err)
	}

	return s.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(standardKey(name), buf.Bytes())
	})
}

// GetStandard loads the standard stored under name.
//
// Outputs:
//   - *coanno.Standard: the decoded standard.
//   - error: ErrNotFound when nothing is stored under name; a decode
//     error if the stored bytes are corrupt.
func (s *Store) GetStandard(ctx context.Context, name string) (*coanno.Standard, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	var raw []byte
	err := s.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(standardKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		if err != nil {
			return fmt.Errorf("get standard %q: %w", name, err)
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	std, err := coanno.ReadStandardCSV(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode standard %q: %w", name, err)
	}
	return std, nil
}

// HasStandard reports whether a standard is stored under name.
func (s *Store) HasStandard(ctx context.Context, name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}

	found := false
	err := s.WithReadTxn(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(standardKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// DeleteStandard removes the standard stored under name.
//
// Returns ErrNotFound when nothing is stored under name, so callers
// can distinguish eviction from a no-op.
func (s *Store) DeleteStandard(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	return s.WithTxn(ctx, func(txn *badger.Txn) error {
		key := standardKey(name)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// ListStandards returns the names of every stored standard in key
// order.
func (s *Store) ListStandards(ctx context.Context) ([]string, error) {
	names := []string{}
	err := s.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), keyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// WithTxn executes fn within a read-write transaction, committing when
// fn returns nil and discarding otherwise.
func (s *Store) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

// WithReadTxn executes fn within a read-only transaction.
func (s *Store) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	return fn(txn)
}
