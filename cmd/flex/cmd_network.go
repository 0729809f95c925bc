// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/csbio/flex-go/pkg/ux"
	"github.com/csbio/flex-go/services/flex/coanno"
	"github.com/csbio/flex-go/services/flex/network"
)

func runNetworkImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	topK := netTopK
	if topK == 0 {
		topK = cfg.Network.TopK
	}
	if topK < 1 {
		return fmt.Errorf("a top-k cutoff is required; pass --top-k or set network.top_k in the config")
	}

	imp, err := buildImporter()
	if err != nil {
		return err
	}

	var std *coanno.Standard
	err = ux.WithSpinner(fmt.Sprintf("Importing network from %s", imp.Source()), func() error {
		var impErr error
		std, impErr = network.ImportStandard(ctx, imp, topK)
		return impErr
	})
	if err != nil {
		return err
	}

	if err := writeStandardFile(netOut, std); err != nil {
		return err
	}
	ux.Summary(std.NumGenes(), std.NumPairs(), std.NumPositives())
	ux.Success(fmt.Sprintf("Imported top %d edges to %s", topK, netOut))
	return nil
}

// buildImporter picks the network source: a local file when --file is
// given, the flag or configured URL otherwise.
func buildImporter() (network.Importer, error) {
	if netFile != "" {
		return network.FileImporter{Path: netFile}, nil
	}

	source := netURL
	if source == "" {
		source = cfg.Network.URL
	}
	if source == "" {
		return nil, fmt.Errorf("a network source is required; pass --file or --url, or set network.url in the config")
	}

	fetcher := network.NewFetcher(
		network.WithRetries(cfg.Network.Retries),
		network.WithRateLimit(rate.Limit(cfg.Network.RateLimit), 1),
		network.WithFetchLogger(slog.Default()),
	)
	return network.HTTPImporter{
		URL:       source,
		CachePath: downloadCachePath(source),
		Fetcher:   fetcher,
	}, nil
}

// downloadCachePath maps a URL to a file under the network cache
// directory, or empty when caching is off.
func downloadCachePath(source string) string {
	if cfg.Network.CacheDir == "" {
		return ""
	}
	u, err := url.Parse(source)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		base = "network"
	}
	return filepath.Join(cfg.Network.CacheDir, base)
}
