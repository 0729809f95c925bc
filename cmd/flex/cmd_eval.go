// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/spf13/cobra"

	"github.com/csbio/flex-go/pkg/ux"
	"github.com/csbio/flex-go/services/flex/perf"
)

func runEvalPR(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	scored, err := readScoredFile(evalScored)
	if err != nil {
		return err
	}

	var curve *perf.Curve
	err = ux.WithSpinner(fmt.Sprintf("Evaluating %d scored pairs", len(scored)), func() error {
		var evalErr error
		curve, evalErr = perf.PRCurve(ctx, scored)
		return evalErr
	})
	if err != nil {
		return err
	}

	f, err := os.Create(evalOut)
	if err != nil {
		return fmt.Errorf("create output file %s: %w", evalOut, err)
	}
	defer f.Close()
	if err := perf.WriteCurveCSV(f, curve); err != nil {
		return err
	}

	ux.Success(fmt.Sprintf("AUPRC %.4f over %d rows (%d positives); curve written to %s",
		curve.AUPRC, curve.Rows, curve.Positives, evalOut))

	if evalInfluxURL != "" {
		name := evalStandardName
		if name == "" {
			name = artifactName(evalScored)
		}
		if err := exportCurve(ctx, name, curve); err != nil {
			return err
		}
		ux.Info(fmt.Sprintf("Exported result point for %q to %s", name, evalInfluxURL))
	}
	return nil
}

// exportCurve writes the evaluation summary as a single point tagged
// by standard name, so runs over time line up in one series.
func exportCurve(ctx context.Context, name string, curve *perf.Curve) error {
	token := evalInfluxToken
	if token == "" {
		token = os.Getenv("INFLUXDB_TOKEN")
	}
	if token == "" {
		return fmt.Errorf("an InfluxDB token is required; pass --influx-token or set INFLUXDB_TOKEN")
	}

	client := influxdb2.NewClient(evalInfluxURL, token)
	defer client.Close()
	writeAPI := client.WriteAPIBlocking(evalInfluxOrg, evalInfluxBucket)

	p := influxdb2.NewPointWithMeasurement("pr_evaluations").
		AddTag("standard", name).
		AddField("auprc", curve.AUPRC).
		AddField("rows", curve.Rows).
		AddField("positives", curve.Positives).
		SetTime(time.Now())

	if err := writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("write evaluation point: %w", err)
	}
	return nil
}

func runEvalContrib(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	scored, err := readScoredFile(contribScored)
	if err != nil {
		return err
	}

	contribs, err := perf.ContributionByEntity(ctx, scored, contribFloor)
	if err != nil {
		return err
	}

	f, err := os.Create(contribOut)
	if err != nil {
		return fmt.Errorf("create output file %s: %w", contribOut, err)
	}
	defer f.Close()
	if err := perf.WriteContributionsCSV(f, contribs); err != nil {
		return err
	}

	ux.Success(fmt.Sprintf("Attributed AUPRC across %d entities; written to %s", len(contribs), contribOut))
	return nil
}
