// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package holdout

import "errors"

// Sentinel errors for the holdout package.
var (
	// ErrInvalidInput indicates a bad policy, a malformed scored table,
	// or a row index out of range against the gold standard.
	ErrInvalidInput = errors.New("invalid input")
)
