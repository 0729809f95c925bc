// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gcs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ============================================================================
// NewClient Tests
// ============================================================================

func TestNewClient_NonExistentSAKeyPath(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, "test-project", "test-bucket", "/nonexistent/path/to/key.json")
	if err == nil {
		t.Fatal("NewClient with non-existent SA key should return error")
	}
	if !strings.Contains(err.Error(), "service account key not found") {
		t.Errorf("Error should mention SA key not found, got: %v", err)
	}
	if !strings.Contains(err.Error(), "/nonexistent/path/to/key.json") {
		t.Errorf("Error should contain the path, got: %v", err)
	}
}

func TestNewClient_EmptyPath(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, "test-project", "test-bucket", "")
	if err == nil {
		t.Fatal("NewClient with empty SA key path should return error")
	}
}

func TestNewClient_InvalidCredentialsFile(t *testing.T) {
	ctx := context.Background()

	tmpDir := t.TempDir()
	invalidKeyPath := filepath.Join(tmpDir, "invalid_key.json")
	if err := os.WriteFile(invalidKeyPath, []byte("not valid json"), 0o644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	_, err := NewClient(ctx, "test-project", "test-bucket", invalidKeyPath)
	if err == nil {
		t.Fatal("NewClient with invalid credentials file should return error")
	}
}

// ============================================================================
// ArchiveKey Tests
// ============================================================================

func TestArchiveKey(t *testing.T) {
	now := time.Date(2025, 11, 2, 15, 45, 0, 0, time.UTC)

	key := ArchiveKey("out/corum.csv", now)
	want := "standards/2025/11/corum_20251102T154500.csv"
	if key != want {
		t.Errorf("ArchiveKey = %q, want %q", key, want)
	}
}

func TestArchiveKey_BareName(t *testing.T) {
	now := time.Date(2025, 1, 9, 8, 0, 30, 0, time.UTC)

	key := ArchiveKey("corum", now)
	want := "standards/2025/01/corum_20250109T080030.csv"
	if key != want {
		t.Errorf("ArchiveKey = %q, want %q", key, want)
	}
}

func TestArchiveKey_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	local := time.Date(2025, 7, 1, 2, 0, 0, 0, loc)

	key := ArchiveKey("std.csv", local)
	// 02:00 UTC+5 is 21:00 the previous day in UTC.
	want := "standards/2025/06/std_20250630T210000.csv"
	if key != want {
		t.Errorf("ArchiveKey = %q, want %q", key, want)
	}
}

// ============================================================================
// contentTypeFor Tests
// ============================================================================

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"standards/corum.csv", "text/csv"},
		{"out/curve.CSV", "text/csv"},
		{"report.json", "application/json"},
		{"archive.tar.gz", "application/octet-stream"},
		{"noext", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := contentTypeFor(tt.path); got != tt.want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
