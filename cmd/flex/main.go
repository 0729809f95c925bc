// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command flex is the CLI for building and evaluating gene
// co-annotation gold standards.
//
// Usage:
//
//	flex standard build   --entities corum.csv --out std.csv
//	flex standard holdout --scored scored.csv --targets genes.txt --policy remove --out filtered.csv
//	flex network import   --file net.tsv --top-k 10000 --out std.csv
//	flex score profiles   --profiles dep.csv --standard std.csv --out scored.csv
//	flex eval pr          --scored scored.csv --out curve.csv
//	flex eval contrib     --scored scored.csv --out contrib.csv
//	flex archive          --standard std.csv --bucket my-bucket --project my-proj --key sa.json
//	flex serve
//
// Configuration is read from the YAML file given by --config
// (default flex.yaml, skipped when absent), then overridden by FLEX_*
// environment variables.
package main

import (
	"log"
)

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
