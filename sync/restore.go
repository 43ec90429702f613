package sync

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/yorkshiresteve/hotbackup-sync/cmn"
	"github.com/yorkshiresteve/hotbackup-sync/cmn/nlog"
	"github.com/yorkshiresteve/hotbackup-sync/manifest"
	"github.com/yorkshiresteve/hotbackup-sync/ring"
	"github.com/yorkshiresteve/hotbackup-sync/store"
)

// Restore stages every partition this node owns back to cfg.LeveledPath,
// reading the S3-resident manifest for tag and downloading any journal not
// already present locally (an existing local file is never overwritten).
func Restore(ctx context.Context, cfg *cmn.Config, tag string) error {
	if err := cmn.ValidateTag(tag); err != nil {
		return err
	}
	if err := cfg.ValidateForRestore(); err != nil {
		return err
	}

	ringPath, err := ring.FindLatestRing(cfg.RingPath)
	if err != nil {
		return err
	}
	partitions, err := ring.GetOwnedPartitions(ringPath)
	if err != nil {
		return err
	}

	st, err := newStore(ctx, cfg.S3Endpoint)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, p := range partitions {
		partition := p.Int64()
		g.Go(func() error {
			return restorePartition(gctx, st, cfg, tag, partition)
		})
	}
	return g.Wait()
}

func restorePartition(ctx context.Context, st store.Store, cfg *cmn.Config, tag string, partition int64) error {
	s3ManifestURL := manifest.JoinPath(cfg.S3Path, manifestRelPath(partition, tag))
	exists, err := st.Exists(ctx, s3ManifestURL)
	if err != nil {
		return err
	}
	if !exists {
		return cmn.NewNotFoundError("Could not open journal manifest. Check provided TAG or s3_path.")
	}

	m, err := manifest.ReadManifest(ctx, st, s3ManifestURL, "")
	if err != nil {
		return err
	}

	rewritten := make(manifest.Manifest, len(m))
	for i, entry := range m {
		re, err := manifest.MaybeDownloadJournal(ctx, st, entry, cfg.S3Path, cfg.LeveledPath)
		if err != nil {
			return err
		}
		rewritten[i] = re
	}

	localManifestPath := manifest.LocalManifestPath(cfg.LeveledPath, partition, "0")
	if err := manifest.SaveLocalManifest(rewritten, localManifestPath); err != nil {
		return err
	}
	nlog.Infof("partition %d: restored %d journals from tag %s", partition, len(rewritten), tag)
	return nil
}
