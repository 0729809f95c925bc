// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package perf

import "errors"

var (
	// ErrInvalidInput indicates malformed evaluation parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyResult indicates a scored table with no annotated rows,
	// for which precision-recall is undefined.
	ErrEmptyResult = errors.New("empty result")
)
