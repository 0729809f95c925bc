// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package badger

import "errors"

var (
	// ErrNotFound indicates no standard is stored under the requested
	// name.
	ErrNotFound = errors.New("standard not found")

	// ErrInvalidInput indicates a bad store argument, such as an empty
	// standard name.
	ErrInvalidInput = errors.New("invalid input")
)
