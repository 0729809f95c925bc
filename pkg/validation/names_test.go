// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"testing"
)

func TestValidateStandardName(t *testing.T) {
	tests := []struct {
		name     string
		standard string
		wantErr  bool
	}{
		// Valid names
		{"simple", "corum", false},
		{"uppercase", "CORUM", false},
		{"single char", "a", false},
		{"with digit", "corum2022", false},
		{"with dot", "go.bp", false},
		{"with hyphen", "corum-core", false},
		{"with underscore", "kegg_pathway", false},
		{"max length", "a123456789012345678901234567890123456789012345678901234567890123", false},

		// Invalid names - injection attempts
		{"empty", "", true},
		{"flux injection", `corum") |> drop()`, true},
		{"sql injection", "corum'; DROP TABLE--", true},
		{"newline injection", "corum\n|> drop()", true},
		{"path traversal", "../../../etc/passwd", true},
		{"slash", "corum/core", true},
		{"too long", "a1234567890123456789012345678901234567890123456789012345678901234", true},
		{"special chars", "corum@#$", true},
		{"spaces", "go bp", true},
		{"starts with dot", ".corum", true},
		{"starts with hyphen", "-corum", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStandardName(tt.standard)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStandardName(%q) error = %v, wantErr %v", tt.standard, err, tt.wantErr)
			}
		})
	}
}

func TestValidateStandardNames(t *testing.T) {
	tests := []struct {
		name      string
		standards []string
		wantErr   bool
	}{
		{"all valid", []string{"corum", "go.bp", "kegg"}, false},
		{"one invalid", []string{"corum", "bad!", "kegg"}, true},
		{"all invalid", []string{"../x", "a b"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStandardNames(tt.standards)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStandardNames(%v) error = %v, wantErr %v", tt.standards, err, tt.wantErr)
			}
		})
	}
}

func TestValidateGeneSymbol(t *testing.T) {
	tests := []struct {
		name    string
		symbol  string
		wantErr bool
	}{
		// Valid symbols
		{"hgnc", "BRCA1", false},
		{"single char", "A", false},
		{"orf name", "YAL002W", false},
		{"mitochondrial", "MT-CO1", false},
		{"with dot", "RNU6.1", false},
		{"entrez id", "7157", false},

		// Invalid symbols
		{"empty", "", true},
		{"lowercase", "brca1", true},
		{"injection", `BRCA1") |> drop()`, true},
		{"spaces", "BR CA1", true},
		{"starts with hyphen", "-CO1", true},
		{"too long", "A12345678901234567890123456789012", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeneSymbol(tt.symbol)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGeneSymbol(%q) error = %v, wantErr %v", tt.symbol, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeGeneSymbol(t *testing.T) {
	tests := []struct {
		name    string
		symbol  string
		want    string
		wantErr bool
	}{
		{"uppercase passthrough", "BRCA1", "BRCA1", false},
		{"lowercase normalized", "brca1", "BRCA1", false},
		{"mixed case", "BrCa1", "BRCA1", false},
		{"with spaces trimmed", "  BRCA1  ", "BRCA1", false},
		{"invalid rejected", "bad gene!", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeGeneSymbol(tt.symbol)
			if (err != nil) != tt.wantErr {
				t.Errorf("SanitizeGeneSymbol(%q) error = %v, wantErr %v", tt.symbol, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("SanitizeGeneSymbol(%q) = %q, want %q", tt.symbol, got, tt.want)
			}
		})
	}
}
