// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/csbio/flex-go/pkg/ux"
	"github.com/csbio/flex-go/services/flex/holdout"
	"github.com/csbio/flex-go/services/flex/profile"
)

func runScoreProfiles(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	f, err := os.Open(scoreProfilesPath)
	if err != nil {
		return fmt.Errorf("open profile matrix %s: %w", scoreProfilesPath, err)
	}
	m, err := profile.LoadMatrix(f)
	f.Close()
	if err != nil {
		return err
	}

	std, err := readStandardFile(scoreStandard)
	if err != nil {
		return err
	}
	ux.Info(fmt.Sprintf("Scoring %d standard pairs against %d profiles", std.NumPairs(), m.NumGenes()))

	var opts []profile.ScoreOption
	if scoreWorkers > 0 {
		opts = append(opts, profile.WithWorkers(scoreWorkers))
	} else if cfg.Build.Workers > 0 {
		opts = append(opts, profile.WithWorkers(cfg.Build.Workers))
	}

	var scored []holdout.ScoredPair
	err = ux.WithSpinner("Correlating profiles", func() error {
		var scoreErr error
		scored, scoreErr = profile.Score(ctx, m, std, opts...)
		return scoreErr
	})
	if err != nil {
		return err
	}

	if err := writeScoredFile(scoreOut, scored); err != nil {
		return err
	}
	ux.Success(fmt.Sprintf("Wrote %d scored pairs to %s", len(scored), scoreOut))
	return nil
}
