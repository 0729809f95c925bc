// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/csbio/flex-go/cmd/flex/gcs"
	"github.com/csbio/flex-go/pkg/ux"
)

func runArchive(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	client, err := gcs.NewClient(ctx, archiveProject, archiveBucket, archiveKey)
	if err != nil {
		return err
	}
	defer client.Close()

	object := archiveObject
	if object == "" {
		object = gcs.ArchiveKey(archiveStandard, time.Now())
	}

	err = ux.WithSpinner(fmt.Sprintf("Uploading %s", archiveStandard), func() error {
		return client.UploadFile(ctx, archiveStandard, object)
	})
	if err != nil {
		return err
	}

	ux.Success(fmt.Sprintf("Archived %s to gs://%s/%s", archiveStandard, archiveBucket, object))
	return nil
}
