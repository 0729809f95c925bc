// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"

	"github.com/csbio/flex-go/pkg/ux"
	"github.com/csbio/flex-go/services/flex/config"
)

// cfg holds the effective configuration, loaded before every command.
var cfg config.Config

// --- Global Command Variables ---
var (
	cfgPath    string
	outputMode string // UX output mode (rich/plain/machine)

	// standard build
	buildEntities   string
	buildOut        string
	buildName       string
	buildMinOverlap int
	buildWorkers    int
	buildFilters    []string
	buildMatrix     bool
	buildNoCache    bool

	// standard holdout
	holdoutScored   string
	holdoutStandard string
	holdoutTargets  string
	holdoutPolicy   string
	holdoutOut      string

	// network import
	netURL  string
	netFile string
	netOut  string
	netTopK int

	// score profiles
	scoreProfilesPath string
	scoreStandard     string
	scoreOut          string
	scoreWorkers      int

	// eval
	evalScored       string
	evalOut          string
	evalStandardName string
	evalInfluxURL    string
	evalInfluxToken  string
	evalInfluxOrg    string
	evalInfluxBucket string
	contribScored    string
	contribOut       string
	contribFloor     float64

	// archive
	archiveStandard string
	archiveBucket   string
	archiveProject  string
	archiveKey      string
	archiveObject   string

	// serve
	serveAddr  string
	serveDebug bool

	rootCmd = &cobra.Command{
		Use:   "flex",
		Short: "Build and evaluate gene co-annotation gold standards",
		Long: `flex builds co-annotation gold standards from entity tables
				(complexes, pathways, GO terms), filters them with holdout
				policies, scores profile similarity networks against them,
				and computes precision-recall performance.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize UX output from flag or environment
			if outputMode != "" {
				ux.SetMode(ux.ParseMode(outputMode))
			} else {
				ux.InitMode()
			}

			loaded, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	// --- Standards ---
	standardCmd = &cobra.Command{
		Use:   "standard",
		Short: "Build and filter co-annotation gold standards",
	}
	standardBuildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build a gold standard from an entity membership table",
		RunE:  runStandardBuild, // Defined in cmd_standard.go
	}
	standardHoldoutCmd = &cobra.Command{
		Use:   "holdout",
		Short: "Remove or relabel scored pairs that touch target genes",
		RunE:  runStandardHoldout, // Defined in cmd_standard.go
	}

	// --- Networks ---
	networkCmd = &cobra.Command{
		Use:   "network",
		Short: "Import external networks as standards",
	}
	networkImportCmd = &cobra.Command{
		Use:   "import",
		Short: "Import an edge list and binarize it at a top-k cutoff",
		RunE:  runNetworkImport, // Defined in cmd_network.go
	}

	// --- Scoring ---
	scoreCmd = &cobra.Command{
		Use:   "score",
		Short: "Score gene profiles against a standard",
	}
	scoreProfilesCmd = &cobra.Command{
		Use:   "profiles",
		Short: "Correlate profile rows over the pairs of a standard",
		RunE:  runScoreProfiles, // Defined in cmd_score.go
	}

	// --- Evaluation ---
	evalCmd = &cobra.Command{
		Use:   "eval",
		Short: "Evaluate scored pair tables",
	}
	evalPRCmd = &cobra.Command{
		Use:   "pr",
		Short: "Compute the precision-recall curve and AUPRC",
		RunE:  runEvalPR, // Defined in cmd_eval.go
	}
	evalContribCmd = &cobra.Command{
		Use:   "contrib",
		Short: "Attribute AUPRC mass to annotation source entities",
		RunE:  runEvalContrib, // Defined in cmd_eval.go
	}

	// --- Archive ---
	archiveCmd = &cobra.Command{
		Use:   "archive",
		Short: "Upload a standard or result file to Google Cloud Storage",
		RunE:  runArchive, // Defined in cmd_archive.go
	}

	// --- Serve ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the FLEX HTTP API server",
		RunE:  runServe, // Defined in cmd_serve.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "flex.yaml",
		"Path to the YAML configuration file (skipped when absent)")
	rootCmd.PersistentFlags().StringVar(&outputMode, "output", "",
		"Output style: rich (default on a terminal), plain, or machine (scripting)")

	rootCmd.AddCommand(standardCmd)
	standardCmd.AddCommand(standardBuildCmd)
	standardBuildCmd.Flags().StringVar(&buildEntities, "entities", "", "Entity membership CSV (ID,Name,Genes)")
	standardBuildCmd.Flags().StringVar(&buildOut, "out", "", "Output CSV path")
	standardBuildCmd.Flags().StringVar(&buildName, "name", "", "Cache name (default: entities file base name)")
	standardBuildCmd.Flags().IntVar(&buildMinOverlap, "min-overlap", 0, "Shared entities required to annotate a pair (default from config)")
	standardBuildCmd.Flags().IntVar(&buildWorkers, "workers", 0, "Worker goroutines for pair enumeration (0 = auto)")
	standardBuildCmd.Flags().StringArrayVar(&buildFilters, "filter", nil, "Keep only entities whose name contains this substring (repeatable)")
	standardBuildCmd.Flags().BoolVar(&buildMatrix, "matrix", false, "Write the co-annotation matrix instead of the pair list")
	standardBuildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "Skip the standard file cache")
	_ = standardBuildCmd.MarkFlagRequired("entities")
	_ = standardBuildCmd.MarkFlagRequired("out")

	standardCmd.AddCommand(standardHoldoutCmd)
	standardHoldoutCmd.Flags().StringVar(&holdoutScored, "scored", "", "Scored pair CSV to filter")
	standardHoldoutCmd.Flags().StringVar(&holdoutStandard, "standard", "", "Gold standard CSV; its row count bounds holdout indexes (default: all scored rows)")
	standardHoldoutCmd.Flags().StringVar(&holdoutTargets, "targets", "", "Target gene list, one symbol per line")
	standardHoldoutCmd.Flags().StringVar(&holdoutPolicy, "policy", "remove", "Holdout policy: remove or relabel")
	standardHoldoutCmd.Flags().StringVar(&holdoutOut, "out", "", "Output CSV path")
	_ = standardHoldoutCmd.MarkFlagRequired("scored")
	_ = standardHoldoutCmd.MarkFlagRequired("targets")
	_ = standardHoldoutCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(networkCmd)
	networkCmd.AddCommand(networkImportCmd)
	networkImportCmd.Flags().StringVar(&netURL, "url", "", "Network edge list URL (default from config)")
	networkImportCmd.Flags().StringVar(&netFile, "file", "", "Local network edge list (overrides --url)")
	networkImportCmd.Flags().IntVar(&netTopK, "top-k", 0, "Edges to annotate after ranking by score (default from config)")
	networkImportCmd.Flags().StringVar(&netOut, "out", "", "Output CSV path")
	_ = networkImportCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(scoreCmd)
	scoreCmd.AddCommand(scoreProfilesCmd)
	scoreProfilesCmd.Flags().StringVar(&scoreProfilesPath, "profiles", "", "Profile matrix CSV (gene,<condition...>)")
	scoreProfilesCmd.Flags().StringVar(&scoreStandard, "standard", "", "Gold standard CSV whose pairs are scored")
	scoreProfilesCmd.Flags().StringVar(&scoreOut, "out", "", "Output scored CSV path")
	scoreProfilesCmd.Flags().IntVar(&scoreWorkers, "workers", 0, "Worker goroutines for correlation (0 = auto)")
	_ = scoreProfilesCmd.MarkFlagRequired("profiles")
	_ = scoreProfilesCmd.MarkFlagRequired("standard")
	_ = scoreProfilesCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(evalCmd)
	evalCmd.AddCommand(evalPRCmd)
	evalPRCmd.Flags().StringVar(&evalScored, "scored", "", "Scored pair CSV to evaluate")
	evalPRCmd.Flags().StringVar(&evalOut, "out", "", "Output PR curve CSV path")
	evalPRCmd.Flags().StringVar(&evalStandardName, "standard-name", "", "Standard name tag for exported points (default: scored file base name)")
	evalPRCmd.Flags().StringVar(&evalInfluxURL, "influx-url", "", "InfluxDB URL; enables result export when set")
	evalPRCmd.Flags().StringVar(&evalInfluxToken, "influx-token", "", "InfluxDB API token (default: INFLUXDB_TOKEN)")
	evalPRCmd.Flags().StringVar(&evalInfluxOrg, "influx-org", "flex", "InfluxDB organization")
	evalPRCmd.Flags().StringVar(&evalInfluxBucket, "influx-bucket", "benchmarks", "InfluxDB bucket")
	_ = evalPRCmd.MarkFlagRequired("scored")
	_ = evalPRCmd.MarkFlagRequired("out")

	evalCmd.AddCommand(evalContribCmd)
	evalContribCmd.Flags().StringVar(&contribScored, "scored", "", "Scored pair CSV to attribute")
	evalContribCmd.Flags().StringVar(&contribOut, "out", "", "Output contribution CSV path")
	evalContribCmd.Flags().Float64Var(&contribFloor, "min-fraction", 0, "Drop entities below this AUPRC fraction [0,1)")
	_ = evalContribCmd.MarkFlagRequired("scored")
	_ = evalContribCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().StringVar(&archiveStandard, "standard", "", "Local file to archive")
	archiveCmd.Flags().StringVar(&archiveBucket, "bucket", "", "GCS bucket name")
	archiveCmd.Flags().StringVar(&archiveProject, "project", "", "GCS project ID")
	archiveCmd.Flags().StringVar(&archiveKey, "key", "", "Service account key file")
	archiveCmd.Flags().StringVar(&archiveObject, "object", "", "Object key override (default: dated standards/ key)")
	_ = archiveCmd.MarkFlagRequired("standard")
	_ = archiveCmd.MarkFlagRequired("bucket")
	_ = archiveCmd.MarkFlagRequired("project")
	_ = archiveCmd.MarkFlagRequired("key")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address override, e.g. :9090")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug mode")
}
