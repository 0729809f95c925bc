// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// Mode defines the richness of CLI output
type Mode string

const (
	// ModeRich enables colors, spinners, and box formatting
	ModeRich Mode = "rich"

	// ModePlain uses icons and basic formatting without color styling
	ModePlain Mode = "plain"

	// ModeMachine outputs plain text suitable for scripting and parsing
	ModeMachine Mode = "machine"
)

var (
	currentMode = ModeRich
	modeMu      sync.RWMutex
)

// GetMode returns the current output mode
func GetMode() Mode {
	modeMu.RLock()
	defer modeMu.RUnlock()
	return currentMode
}

// SetMode updates the current output mode
func SetMode(m Mode) {
	modeMu.Lock()
	defer modeMu.Unlock()
	currentMode = m
}

// ParseMode converts a string to Mode
func ParseMode(s string) Mode {
	switch strings.ToLower(s) {
	case "rich", "full", "r":
		return ModeRich
	case "plain", "p":
		return ModePlain
	case "machine", "quiet", "m", "q":
		return ModeMachine
	default:
		return ModePlain
	}
}

// InitMode initializes the output mode from environment and terminal state.
//
// Resolution order:
//  1. FLEX_OUTPUT environment variable, if set
//  2. machine mode when stdout is not a terminal (pipes, CI)
//  3. plain mode when NO_COLOR is set (https://no-color.org)
//  4. rich mode otherwise
func InitMode() {
	SetMode(resolveMode(os.Getenv("FLEX_OUTPUT"), os.Getenv("NO_COLOR") != "", isTerminal()))
}

// resolveMode applies the InitMode resolution order to explicit inputs.
func resolveMode(explicit string, noColor, tty bool) Mode {
	if explicit != "" {
		return ParseMode(explicit)
	}
	if !tty {
		return ModeMachine
	}
	if noColor {
		return ModePlain
	}
	return ModeRich
}

// isTerminal checks if stdout is a terminal
func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// IsInteractive returns true if we should show interactive prompts
func IsInteractive() bool {
	return GetMode() != ModeMachine && isTerminal()
}

// ShouldShowProgress returns true if we should show progress indicators
func ShouldShowProgress() bool {
	return GetMode() != ModeMachine
}

// ShouldColor returns true if we should use color styling
func ShouldColor() bool {
	return GetMode() == ModeRich
}
