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

// Backup mirrors every partition this node owns, per the ring file under
// cfg.RingPath, from cfg.HotbackupPath to cfg.S3Path under tag.
//
// For each owned partition P: read {hotbackup_path}/{P}/journal/journal_manifest/0.man,
// upload each entry's journal (and hints CDB, if cfg.HintsFiles) that isn't
// already present in S3, rewrite the manifest's paths, then upload the
// rewritten manifest as {tag}.man. Upload order (hints CDB, then journal,
// then manifest last) means a crash mid-partition leaves no
// {tag}.man entry for that partition, preserving crash-atomicity at
// partition granularity (spec §5).
func Backup(ctx context.Context, cfg *cmn.Config, tag string) error {
	if err := cmn.ValidateTag(tag); err != nil {
		return err
	}
	if err := cfg.ValidateForBackup(); err != nil {
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
			return backupPartition(gctx, st, cfg, tag, partition)
		})
	}
	return g.Wait()
}

func backupPartition(ctx context.Context, st store.Store, cfg *cmn.Config, tag string, partition int64) error {
	localManifestPath := manifest.LocalManifestPath(cfg.HotbackupPath, partition, "0")
	m, err := manifest.ReadManifest(ctx, st, localManifestPath, "")
	if err != nil {
		return err
	}

	rewritten := make(manifest.Manifest, len(m))
	for i, entry := range m {
		re, err := manifest.MaybeUploadJournal(ctx, st, entry, cfg.HotbackupPath, cfg.S3Path, cfg.HintsFiles)
		if err != nil {
			return err
		}
		rewritten[i] = re
	}

	url, err := manifest.UploadNewManifest(ctx, st, rewritten, partition, cfg.S3Path, tag)
	if err != nil {
		return err
	}
	nlog.Infof("partition %d: uploaded manifest %s (%d journals)", partition, url, len(rewritten))
	return nil
}
