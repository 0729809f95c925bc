// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package network

import "errors"

// Sentinel errors for the network package.
var (
	// ErrInvalidInput indicates a malformed network file or parameter.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyResult indicates the network contained no usable edges.
	ErrEmptyResult = errors.New("empty result")

	// ErrFetchFailed indicates the network download failed after retries.
	ErrFetchFailed = errors.New("fetch failed")
)
