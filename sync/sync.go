// Package sync implements the three top-level actions (C8) that bind
// config, ring, manifest, hints and journal together: backup mirrors a
// node's owned partitions to S3, restore stages them back to disk, and
// retrieve extracts a single object from an S3-resident backup without
// restoring it.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package sync

import (
	"context"
	"fmt"

	"github.com/yorkshiresteve/hotbackup-sync/store"
)

// newStore builds the local+S3 router every action dispatches storage
// operations through.
func newStore(ctx context.Context, endpoint string) (*store.Router, error) {
	s3Store, err := store.NewS3Store(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return store.NewRouter(store.NewLocalStore(), s3Store), nil
}

// manifestRelPath is {partition}/journal/journal_manifest/{tag}.man,
// relative to whatever root (s3_path) it is joined under (spec §6).
func manifestRelPath(partition int64, tag string) string {
	return fmt.Sprintf("%d/journal/journal_manifest/%s.man", partition, tag)
}
