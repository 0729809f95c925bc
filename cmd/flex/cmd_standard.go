// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/csbio/flex-go/pkg/ux"
	"github.com/csbio/flex-go/services/flex/cache"
	"github.com/csbio/flex-go/services/flex/coanno"
	"github.com/csbio/flex-go/services/flex/entity"
	"github.com/csbio/flex-go/services/flex/holdout"
)

func runStandardBuild(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	records, err := readEntityTable(buildEntities, buildFilters)
	if err != nil {
		return err
	}
	index := entity.BuildIndex(records)
	ux.Info(fmt.Sprintf("Loaded %d entities covering %d genes from %s",
		len(records), index.NumGenes(), buildEntities))

	opts := []coanno.BuildOption{
		coanno.WithMinOverlap(effectiveMinOverlap()),
	}
	if buildWorkers > 0 {
		opts = append(opts, coanno.WithWorkers(buildWorkers))
	} else if cfg.Build.Workers > 0 {
		opts = append(opts, coanno.WithWorkers(cfg.Build.Workers))
	}

	if buildMatrix {
		return buildMatrixFile(ctx, index, opts)
	}

	spin := ux.NewSpinner("Building standard")
	spin.Start()
	opts = append(opts, coanno.WithProgress(func(p coanno.BuildProgress) {
		switch p.Phase {
		case coanno.ProgressPhaseIndexing:
			spin.UpdateMessage(fmt.Sprintf("Indexing entities (%d/%d)", p.EntitiesIndexed, p.EntitiesTotal))
		case coanno.ProgressPhaseEnumerating:
			spin.UpdateMessage(fmt.Sprintf("Enumerating pairs (%d/%d rows)", p.RowsEmitted, p.RowsTotal))
		}
	}))

	std, cached, err := buildThroughCache(ctx, index, opts)
	if err != nil {
		spin.StopWithError("Build failed")
		return err
	}
	if cached {
		spin.StopWithSuccess("Loaded standard from cache")
	} else {
		spin.StopWithSuccess("Built standard")
	}

	if err := writeStandardFile(buildOut, std); err != nil {
		return err
	}
	ux.Summary(std.NumGenes(), std.NumPairs(), std.NumPositives())
	ux.Success(fmt.Sprintf("Wrote %s", buildOut))
	return nil
}

// buildThroughCache routes the build through the configured standard
// file cache. The cache is keyed by name only; rebuilding with
// different inputs under the same name returns the cached table.
func buildThroughCache(ctx context.Context, index *entity.Index, opts []coanno.BuildOption) (*coanno.Standard, bool, error) {
	build := func(ctx context.Context) (*coanno.Standard, error) {
		return coanno.BuildStandard(ctx, index, opts...)
	}

	if buildNoCache || cfg.Storage.CacheDir == "" {
		std, err := build(ctx)
		return std, false, err
	}

	name := buildName
	if name == "" {
		name = artifactName(buildEntities)
	}
	files := cache.NewFiles(cfg.Storage.CacheDir, slog.Default())
	return files.LoadOrBuild(ctx, name, build)
}

func buildMatrixFile(ctx context.Context, index *entity.Index, opts []coanno.BuildOption) error {
	var m *coanno.Matrix
	err := ux.WithSpinner("Building co-annotation matrix", func() error {
		var buildErr error
		m, buildErr = coanno.BuildMatrix(ctx, index, opts...)
		return buildErr
	})
	if err != nil {
		return err
	}

	f, err := os.Create(buildOut)
	if err != nil {
		return fmt.Errorf("create output file %s: %w", buildOut, err)
	}
	defer f.Close()
	if err := coanno.WriteMatrixCSV(f, m); err != nil {
		return err
	}
	ux.Success(fmt.Sprintf("Wrote %dx%d matrix to %s", m.Dim(), m.Dim(), buildOut))
	return nil
}

func runStandardHoldout(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	scored, err := readScoredFile(holdoutScored)
	if err != nil {
		return err
	}
	targets, err := readTargetGenes(holdoutTargets)
	if err != nil {
		return err
	}
	policy, err := holdout.ParsePolicy(holdoutPolicy)
	if err != nil {
		return err
	}

	// Rows past the gold standard (network edges appended to the
	// scored table) are never touched by a holdout, so the gold row
	// count matters when the two are mixed.
	goldRows := len(scored)
	if holdoutStandard != "" {
		std, err := readStandardFile(holdoutStandard)
		if err != nil {
			return err
		}
		goldRows = std.NumPairs()
	}

	filtered, err := holdout.Apply(ctx, scored, goldRows, targets, policy)
	if err != nil {
		return err
	}

	if err := writeScoredFile(holdoutOut, filtered); err != nil {
		return err
	}
	ux.Success(fmt.Sprintf("Applied %s holdout for %d target genes: %d rows in, %d rows out",
		policy, len(targets), len(scored), len(filtered)))
	return nil
}

// effectiveMinOverlap resolves the threshold: flag, then config.
func effectiveMinOverlap() int {
	if buildMinOverlap > 0 {
		return buildMinOverlap
	}
	return cfg.Build.MinOverlap
}

// artifactName derives a cache or tag name from a file path.
func artifactName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func readEntityTable(path string, filters []string) ([]entity.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open entity table %s: %w", path, err)
	}
	defer f.Close()

	records, err := entity.LoadTable(f)
	if err != nil {
		return nil, err
	}
	if len(filters) > 0 {
		records = entity.FilterByName(records, filters)
	}
	return records, nil
}

// readTargetGenes reads one gene symbol per line, skipping blanks and
// # comments.
func readTargetGenes(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open target gene list %s: %w", path, err)
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read target gene list %s: %w", path, err)
	}
	return targets, nil
}

func readStandardFile(path string) (*coanno.Standard, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open standard %s: %w", path, err)
	}
	defer f.Close()
	return coanno.ReadStandardCSV(f)
}

func writeStandardFile(path string, std *coanno.Standard) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file %s: %w", path, err)
	}
	defer f.Close()
	return coanno.WriteStandardCSV(f, std)
}

func readScoredFile(path string) ([]holdout.ScoredPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scored table %s: %w", path, err)
	}
	defer f.Close()
	return holdout.ReadScoredCSV(f)
}

func writeScoredFile(path string, rows []holdout.ScoredPair) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file %s: %w", path, err)
	}
	defer f.Close()
	return holdout.WriteScoredCSV(f, rows)
}
