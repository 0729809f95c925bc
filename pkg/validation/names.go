// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation for user-supplied identifiers.
//
// Standard names and gene symbols arrive from URL paths, CLI flags, and
// uploaded files, and end up in storage keys, archive object paths, and
// Flux queries. Validating them at the boundary prevents path traversal
// and query injection.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// standardNamePattern matches valid gold-standard names.
// Allows: letters, digits, then dots (go.bp), hyphens (corum-2022),
// underscores (kegg_pathway). Max length: 64 characters.
var standardNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,63}$`)

// geneSymbolPattern matches valid gene identifiers.
// Covers HGNC symbols (BRCA1, MT-CO1), systematic ORF names (YAL002W),
// and numeric Entrez IDs. Max length: 32 characters.
var geneSymbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._\-]{0,31}$`)

// ValidateStandardName validates a gold-standard name.
//
// Standard names are used as BadgerDB key components, archive object
// names, and Flux measurement tags, so the character set is restricted:
//
//   - 1-64 characters
//   - Letters and digits
//   - Dots (.), underscores (_), hyphens (-) after the first character
//
// Returns an error if the name is invalid.
//
// Example:
//
//	if err := validation.ValidateStandardName(name); err != nil {
//	    return nil, fmt.Errorf("invalid standard name: %w", err)
//	}
//	// Safe to use in storage keys and object paths
func ValidateStandardName(name string) error {
	if name == "" {
		return fmt.Errorf("standard name cannot be empty")
	}

	if !standardNamePattern.MatchString(name) {
		return fmt.Errorf("invalid standard name: %q (must be 1-64 alphanumeric chars, dots, underscores, or hyphens)", name)
	}

	return nil
}

// ValidateStandardNames validates multiple standard names.
// Returns an error listing all invalid names if any fail validation.
func ValidateStandardNames(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateStandardName(n); err != nil {
			invalid = append(invalid, n)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid standard names: %v", invalid)
	}
	return nil
}

// ValidateGeneSymbol validates a gene identifier.
//
// Valid symbols:
//   - 1-32 characters
//   - Uppercase letters A-Z
//   - Digits 0-9
//   - Dots (.), underscores (_), hyphens (-) after the first character
//
// Returns an error if the symbol is invalid.
func ValidateGeneSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("gene symbol cannot be empty")
	}

	if !geneSymbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid gene symbol: %q (must be 1-32 uppercase alphanumeric chars, dots, underscores, or hyphens)", symbol)
	}

	return nil
}

// SanitizeGeneSymbol normalizes and validates a gene identifier.
// Returns the uppercase symbol if valid, or an error if invalid.
//
// Use this when you need both validation and normalization:
//
//	safe, err := validation.SanitizeGeneSymbol(userInput)
//	if err != nil {
//	    return err
//	}
//	// safe is uppercase and validated
func SanitizeGeneSymbol(symbol string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if err := ValidateGeneSymbol(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
