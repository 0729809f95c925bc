// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/csbio/flex-go/pkg/ux"
	"github.com/csbio/flex-go/services/flex/config"
	"github.com/csbio/flex-go/services/flex/holdout"
)

func init() {
	// Keep command output scriptable under go test.
	ux.SetMode(ux.ModeMachine)
}

const entityTable = `ID,Name,Genes
C1,BRCA1-A complex,BRCA1;BARD1;TP53
C2,BRCA1 core,BRCA1;BARD1
`

// testCmd returns a command with a usable context, the way Execute
// would hand one to RunE.
func testCmd(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

// resetGlobals snapshots the package-level flag state and the loaded
// config, restoring both when the test finishes.
func resetGlobals(t *testing.T) {
	t.Helper()
	savedCfg := cfg
	t.Cleanup(func() {
		cfg = savedCfg
		buildEntities, buildOut, buildName = "", "", ""
		buildMinOverlap, buildWorkers = 0, 0
		buildFilters = nil
		buildMatrix, buildNoCache = false, false
		holdoutScored, holdoutStandard, holdoutTargets, holdoutOut = "", "", "", ""
		holdoutPolicy = "remove"
		netURL, netFile, netOut, netTopK = "", "", "", 0
		scoreProfilesPath, scoreStandard, scoreOut, scoreWorkers = "", "", "", 0
		evalScored, evalOut, evalStandardName = "", "", ""
		evalInfluxURL, evalInfluxToken = "", ""
		contribScored, contribOut, contribFloor = "", "", 0
	})
	cfg = config.Default()
	cfg.Storage.CacheDir = ""
	cfg.Network.CacheDir = ""
}

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// ============================================================================
// Helper Tests
// ============================================================================

func TestArtifactName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"out/corum.csv", "corum"},
		{"corum", "corum"},
		{"/data/standards/go_bp.csv", "go_bp"},
		// Only the last extension is stripped.
		{"net.tsv.gz", "net.tsv"},
	}
	for _, tt := range tests {
		if got := artifactName(tt.path); got != tt.want {
			t.Errorf("artifactName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestReadTargetGenes(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "targets.txt", "BRCA1\n\n# screening hits\n  TP53  \nEGFR\n")

	targets, err := readTargetGenes(path)
	if err != nil {
		t.Fatalf("readTargetGenes: %v", err)
	}
	want := []string{"BRCA1", "TP53", "EGFR"}
	if len(targets) != len(want) {
		t.Fatalf("got %d targets %v, want %d", len(targets), targets, len(want))
	}
	for i := range want {
		if targets[i] != want[i] {
			t.Errorf("targets[%d] = %q, want %q", i, targets[i], want[i])
		}
	}
}

func TestReadTargetGenes_Missing(t *testing.T) {
	if _, err := readTargetGenes(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected error for missing target file")
	}
}

func TestEffectiveMinOverlap(t *testing.T) {
	resetGlobals(t)

	cfg.Build.MinOverlap = 3
	buildMinOverlap = 0
	if got := effectiveMinOverlap(); got != 3 {
		t.Errorf("config fallback = %d, want 3", got)
	}

	buildMinOverlap = 2
	if got := effectiveMinOverlap(); got != 2 {
		t.Errorf("flag override = %d, want 2", got)
	}
}

func TestDownloadCachePath(t *testing.T) {
	resetGlobals(t)

	cfg.Network.CacheDir = ""
	if got := downloadCachePath("https://example.com/net.tsv.gz"); got != "" {
		t.Errorf("cache disabled, got %q", got)
	}

	cfg.Network.CacheDir = "/tmp/networks"
	if got := downloadCachePath("https://example.com/data/net.tsv.gz"); got != filepath.Join("/tmp/networks", "net.tsv.gz") {
		t.Errorf("cache path = %q", got)
	}
	if got := downloadCachePath("https://example.com/"); got != filepath.Join("/tmp/networks", "network") {
		t.Errorf("root URL cache path = %q", got)
	}
}

// ============================================================================
// standard build
// ============================================================================

func TestRunStandardBuild(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	buildEntities = writeFixture(t, dir, "corum.csv", entityTable)
	buildOut = filepath.Join(dir, "std.csv")
	buildNoCache = true

	if err := runStandardBuild(testCmd(t), nil); err != nil {
		t.Fatalf("runStandardBuild: %v", err)
	}

	std, err := readStandardFile(buildOut)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if std.NumGenes() != 3 || std.NumPairs() != 3 {
		t.Errorf("got %d genes, %d pairs, want 3 and 3", std.NumGenes(), std.NumPairs())
	}
	// Every pair shares C1.
	if std.NumPositives() != 3 {
		t.Errorf("positives = %d, want 3", std.NumPositives())
	}
}

func TestRunStandardBuild_MinOverlap(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	buildEntities = writeFixture(t, dir, "corum.csv", entityTable)
	buildOut = filepath.Join(dir, "std.csv")
	buildNoCache = true
	buildMinOverlap = 2

	if err := runStandardBuild(testCmd(t), nil); err != nil {
		t.Fatalf("runStandardBuild: %v", err)
	}

	std, err := readStandardFile(buildOut)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	// Only BARD1-BRCA1 is in both C1 and C2.
	if std.NumPairs() != 3 || std.NumPositives() != 1 {
		t.Errorf("got %d pairs, %d positives, want 3 and 1", std.NumPairs(), std.NumPositives())
	}
}

func TestRunStandardBuild_FilterNames(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	buildEntities = writeFixture(t, dir, "corum.csv", entityTable)
	buildOut = filepath.Join(dir, "std.csv")
	buildNoCache = true
	buildFilters = []string{"core"}

	if err := runStandardBuild(testCmd(t), nil); err != nil {
		t.Fatalf("runStandardBuild: %v", err)
	}

	std, err := readStandardFile(buildOut)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if std.NumGenes() != 2 || std.NumPairs() != 1 {
		t.Errorf("got %d genes, %d pairs, want 2 and 1", std.NumGenes(), std.NumPairs())
	}
}

func TestRunStandardBuild_CacheByNameOnly(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	cfg.Storage.CacheDir = filepath.Join(dir, "cache")

	buildEntities = writeFixture(t, dir, "corum.csv", entityTable)
	buildOut = filepath.Join(dir, "std1.csv")
	buildName = "corum"

	if err := runStandardBuild(testCmd(t), nil); err != nil {
		t.Fatalf("first build: %v", err)
	}

	// A different table under the same cache name returns the cached
	// standard untouched.
	buildEntities = writeFixture(t, dir, "other.csv", "ID,Name,Genes\nC9,Other,EGFR;KRAS\n")
	buildOut = filepath.Join(dir, "std2.csv")

	if err := runStandardBuild(testCmd(t), nil); err != nil {
		t.Fatalf("second build: %v", err)
	}

	std, err := readStandardFile(buildOut)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if std.NumGenes() != 3 {
		t.Errorf("cached standard has %d genes, want the original 3", std.NumGenes())
	}
}

func TestRunStandardBuild_Matrix(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	buildEntities = writeFixture(t, dir, "corum.csv", entityTable)
	buildOut = filepath.Join(dir, "matrix.csv")
	buildNoCache = true
	buildMatrix = true

	if err := runStandardBuild(testCmd(t), nil); err != nil {
		t.Fatalf("runStandardBuild: %v", err)
	}

	data, err := os.ReadFile(buildOut)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// Header plus one labeled row per gene.
	if len(lines) != 4 {
		t.Fatalf("matrix CSV has %d lines, want 4:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], "BARD1") || !strings.Contains(lines[0], "TP53") {
		t.Errorf("matrix header missing genes: %q", lines[0])
	}
}

func TestRunStandardBuild_MissingEntities(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	buildEntities = filepath.Join(dir, "absent.csv")
	buildOut = filepath.Join(dir, "std.csv")
	buildNoCache = true

	if err := runStandardBuild(testCmd(t), nil); err == nil {
		t.Fatal("expected error for missing entity table")
	}
}

// ============================================================================
// standard holdout
// ============================================================================

func buildScoredFixture(t *testing.T, dir string) string {
	t.Helper()
	rows := []holdout.ScoredPair{
		{Index: 0, Gene1: "BARD1", Gene2: "BRCA1", Annotated: true, SourceIDs: []string{"C1", "C2"}, Score: 0.9},
		{Index: 1, Gene1: "BARD1", Gene2: "TP53", Annotated: true, SourceIDs: []string{"C1"}, Score: 0.8},
		{Index: 2, Gene1: "BRCA1", Gene2: "TP53", Annotated: false, Score: 0.7},
	}
	path := filepath.Join(dir, "scored.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create scored fixture: %v", err)
	}
	defer f.Close()
	if err := holdout.WriteScoredCSV(f, rows); err != nil {
		t.Fatalf("write scored fixture: %v", err)
	}
	return path
}

func TestRunStandardHoldout_Remove(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	holdoutScored = buildScoredFixture(t, dir)
	holdoutTargets = writeFixture(t, dir, "targets.txt", "TP53\n")
	holdoutPolicy = "remove"
	holdoutOut = filepath.Join(dir, "filtered.csv")

	if err := runStandardHoldout(testCmd(t), nil); err != nil {
		t.Fatalf("runStandardHoldout: %v", err)
	}

	rows, err := readScoredFile(holdoutOut)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	// The unannotated TP53 row survives; only the annotated one goes.
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Gene1 != "BARD1" || rows[0].Gene2 != "BRCA1" {
		t.Errorf("rows[0] = %s-%s, want BARD1-BRCA1", rows[0].Gene1, rows[0].Gene2)
	}
}

func TestRunStandardHoldout_Relabel(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	holdoutScored = buildScoredFixture(t, dir)
	holdoutTargets = writeFixture(t, dir, "targets.txt", "TP53\n")
	holdoutPolicy = "relabel"
	holdoutOut = filepath.Join(dir, "relabeled.csv")

	if err := runStandardHoldout(testCmd(t), nil); err != nil {
		t.Fatalf("runStandardHoldout: %v", err)
	}

	rows, err := readScoredFile(holdoutOut)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("relabel changed row count: got %d, want 3", len(rows))
	}
	for _, r := range rows {
		if (r.Gene1 == "TP53" || r.Gene2 == "TP53") && r.Annotated {
			t.Errorf("row %s-%s still annotated after relabel", r.Gene1, r.Gene2)
		}
	}
	if !rows[0].Annotated {
		t.Error("non-target row lost its annotation")
	}
}

func TestRunStandardHoldout_BadPolicy(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	holdoutScored = buildScoredFixture(t, dir)
	holdoutTargets = writeFixture(t, dir, "targets.txt", "TP53\n")
	holdoutPolicy = "discard"
	holdoutOut = filepath.Join(dir, "out.csv")

	if err := runStandardHoldout(testCmd(t), nil); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

// ============================================================================
// network import
// ============================================================================

func TestRunNetworkImport_File(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	netFile = writeFixture(t, dir, "net.tsv", "BRCA1\tBARD1\t0.95\nBRCA1\tTP53\t0.80\nEGFR\tKRAS\t0.10\n")
	netOut = filepath.Join(dir, "net_std.csv")
	netTopK = 2

	if err := runNetworkImport(testCmd(t), nil); err != nil {
		t.Fatalf("runNetworkImport: %v", err)
	}

	std, err := readStandardFile(netOut)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if std.NumPositives() != 2 {
		t.Errorf("positives = %d, want top-2 cutoff", std.NumPositives())
	}
}

func TestRunNetworkImport_NoCutoff(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	cfg.Network.TopK = 0
	netFile = writeFixture(t, dir, "net.tsv", "BRCA1\tBARD1\t0.95\n")
	netOut = filepath.Join(dir, "net_std.csv")
	netTopK = 0

	if err := runNetworkImport(testCmd(t), nil); err == nil {
		t.Fatal("expected error when no top-k cutoff is configured")
	}
}

func TestRunNetworkImport_NoSource(t *testing.T) {
	resetGlobals(t)

	cfg.Network.URL = ""
	netFile = ""
	netURL = ""
	netTopK = 10
	netOut = filepath.Join(t.TempDir(), "out.csv")

	if err := runNetworkImport(testCmd(t), nil); err == nil {
		t.Fatal("expected error when no network source is configured")
	}
}

// ============================================================================
// eval
// ============================================================================

func TestRunEvalPR(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	evalScored = buildScoredFixture(t, dir)
	evalOut = filepath.Join(dir, "curve.csv")

	if err := runEvalPR(testCmd(t), nil); err != nil {
		t.Fatalf("runEvalPR: %v", err)
	}

	data, err := os.ReadFile(evalOut)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "threshold,tp,fp,precision,recall" {
		t.Errorf("curve header = %q", lines[0])
	}
	// One point per distinct score.
	if len(lines) != 4 {
		t.Errorf("curve has %d lines, want 4", len(lines))
	}
}

func TestRunEvalPR_InfluxNeedsToken(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	evalScored = buildScoredFixture(t, dir)
	evalOut = filepath.Join(dir, "curve.csv")
	evalInfluxURL = "http://localhost:8086"
	evalInfluxToken = ""
	t.Setenv("INFLUXDB_TOKEN", "")

	if err := runEvalPR(testCmd(t), nil); err == nil {
		t.Fatal("expected error when export is requested without a token")
	}
}

func TestRunEvalContrib(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	contribScored = buildScoredFixture(t, dir)
	contribOut = filepath.Join(dir, "contrib.csv")

	if err := runEvalContrib(testCmd(t), nil); err != nil {
		t.Fatalf("runEvalContrib: %v", err)
	}

	data, err := os.ReadFile(contribOut)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "entity,pairs,contribution,fraction") {
		t.Errorf("contribution header missing:\n%s", content)
	}
	if !strings.Contains(content, "C1") {
		t.Errorf("contribution rows missing C1 entity:\n%s", content)
	}
}

// ============================================================================
// pipeline: build -> score -> holdout -> eval
// ============================================================================

func TestPipeline_BuildScoreHoldoutEval(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	// Build the standard.
	buildEntities = writeFixture(t, dir, "corum.csv", entityTable)
	buildOut = filepath.Join(dir, "std.csv")
	buildNoCache = true
	if err := runStandardBuild(testCmd(t), nil); err != nil {
		t.Fatalf("build: %v", err)
	}

	// Score correlated profiles over it. BRCA1 and BARD1 move
	// together; TP53 moves against them.
	profiles := "gene,c1,c2,c3,c4\n" +
		"BRCA1,1,2,3,4\n" +
		"BARD1,1.1,2.2,2.9,4.1\n" +
		"TP53,4,3,2,1\n"
	scoreProfilesPath = writeFixture(t, dir, "profiles.csv", profiles)
	scoreStandard = buildOut
	scoreOut = filepath.Join(dir, "scored.csv")
	if err := runScoreProfiles(testCmd(t), nil); err != nil {
		t.Fatalf("score: %v", err)
	}

	// Hold out TP53.
	holdoutScored = scoreOut
	holdoutStandard = buildOut
	holdoutTargets = writeFixture(t, dir, "targets.txt", "TP53\n")
	holdoutPolicy = "remove"
	holdoutOut = filepath.Join(dir, "filtered.csv")
	if err := runStandardHoldout(testCmd(t), nil); err != nil {
		t.Fatalf("holdout: %v", err)
	}

	rows, err := readScoredFile(holdoutOut)
	if err != nil {
		t.Fatalf("read filtered: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("filtered rows = %d, want only BARD1-BRCA1", len(rows))
	}

	// Evaluate what is left.
	evalScored = holdoutOut
	evalOut = filepath.Join(dir, "curve.csv")
	if err := runEvalPR(testCmd(t), nil); err != nil {
		t.Fatalf("eval: %v", err)
	}
	if _, err := os.Stat(evalOut); err != nil {
		t.Fatalf("curve not written: %v", err)
	}
}
