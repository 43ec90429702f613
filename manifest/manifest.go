// Package manifest reads, rewrites and syncs per-partition journal
// manifests (C7): ordered, newest-first lists of journal descriptors.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yorkshiresteve/hotbackup-sync/cmn"
	"github.com/yorkshiresteve/hotbackup-sync/etf"
	"github.com/yorkshiresteve/hotbackup-sync/journal"
	"github.com/yorkshiresteve/hotbackup-sync/store"
)

// Entry is one journal manifest entry: the 4-tuple
// (start_sqn, base_path, owner_pid, last_key) from spec §3.
type Entry struct {
	StartSQN int64
	BasePath string
	Owner    etf.Pid
	LastKey  journal.Key
}

// Manifest is the ordered, newest-first list of a partition's journal
// descriptors.
type Manifest []Entry

// JournalFile is the CDB holding this entry's records.
func (e Entry) JournalFile() string { return e.BasePath + ".cdb" }

// HintsFile is the optional companion hints CDB for this entry.
func (e Entry) HintsFile() string { return e.BasePath + ".hints.cdb" }

func entryTerm(e Entry) etf.Term {
	return etf.Tuple{
		etf.NewInt(e.StartSQN),
		etf.NewBinary([]byte(e.BasePath)),
		e.Owner,
		e.LastKey.Term(),
	}
}

func entryFromTerm(t etf.Term) (Entry, error) {
	tup, ok := t.(etf.Tuple)
	if !ok || len(tup) != 4 {
		return Entry{}, cmn.NewParseErrorf("manifest entry", "expected a 4-tuple, got %T", t)
	}
	sqn, ok := tup[0].(etf.Integer)
	if !ok {
		return Entry{}, cmn.NewParseErrorf("manifest entry", "start_sqn is %T", tup[0])
	}
	basePath, ok := tup[1].(etf.Binary)
	if !ok {
		return Entry{}, cmn.NewParseErrorf("manifest entry", "base_path is %T", tup[1])
	}
	owner, ok := tup[2].(etf.Pid)
	if !ok {
		return Entry{}, cmn.NewParseErrorf("manifest entry", "owner_pid is %T", tup[2])
	}
	lastKey, err := journal.KeyFromTerm(tup[3])
	if err != nil {
		return Entry{}, cmn.NewParseError("manifest entry last_key", err)
	}
	return Entry{
		StartSQN: sqn.V.Int64(),
		BasePath: string(basePath.Data),
		Owner:    owner,
		LastKey:  lastKey,
	}, nil
}

func encode(m Manifest) ([]byte, error) {
	elems := make([]etf.Term, len(m))
	for i, e := range m {
		elems[i] = entryTerm(e)
	}
	return etf.Encode(etf.List{Elems: elems}, 6)
}

func decode(raw []byte) (Manifest, error) {
	term, err := etf.Decode(raw)
	if err != nil {
		return nil, cmn.NewParseError("manifest", err)
	}
	list, ok := term.(etf.List)
	if !ok {
		return nil, cmn.NewParseErrorf("manifest", "expected a list, got %T", term)
	}
	m := make(Manifest, len(list.Elems))
	for i, t := range list.Elems {
		e, err := entryFromTerm(t)
		if err != nil {
			return nil, err
		}
		m[i] = e
	}
	return m, nil
}

// ReadManifest decodes a manifest from a local file or S3, per spec
// §4.7's read_manifest: version is an optional S3 VersionId, ignored for
// local paths.
func ReadManifest(ctx context.Context, st store.Store, url, version string) (Manifest, error) {
	data, err := st.DownloadBytes(ctx, url, version)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// SaveLocalManifest ETF-encodes m with the compressed wrapper and writes it
// to path, creating parent directories as needed.
func SaveLocalManifest(m Manifest, path string) error {
	data, err := encode(m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cmn.NewIOError("mkdir "+filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cmn.NewIOError("write "+path, err)
	}
	return nil
}

// manifestURL builds {destination}/{partition}/journal/journal_manifest/{tag}.man.
func manifestURL(destination string, partition int64, tag string) string {
	return JoinPath(destination, fmt.Sprintf("%d/journal/journal_manifest/%s.man", partition, tag))
}

// LocalManifestPath builds {root}/{partition}/journal/journal_manifest/{tag}.man
// for on-disk manifests (tag is "0" for the live local manifest, per §6).
func LocalManifestPath(root string, partition int64, tag string) string {
	return filepath.Join(root, fmt.Sprintf("%d", partition), "journal", "journal_manifest", tag+".man")
}

// JoinPath concatenates a root (local dir or s3:// URL) with a relative
// path, using '/' regardless of platform since S3 keys and the on-disk
// layout both use forward slashes (spec §6).
func JoinPath(root, rel string) string {
	return strings.TrimRight(root, "/") + "/" + strings.TrimLeft(rel, "/")
}

// UploadNewManifest writes m to its S3 destination under tag and returns
// the resulting URL.
func UploadNewManifest(ctx context.Context, st store.Store, m Manifest, partition int64, destination, tag string) (string, error) {
	data, err := encode(m)
	if err != nil {
		return "", err
	}
	url := manifestURL(destination, partition, tag)
	if err := st.UploadBytes(ctx, url, data); err != nil {
		return "", err
	}
	return url, nil
}

// UploadNewManifestVersioned is the versioned variant of UploadNewManifest,
// additionally returning the object-store version id of the written
// manifest.
func UploadNewManifestVersioned(ctx context.Context, st store.Store, m Manifest, partition int64, destination, tag string) (url, versionID string, err error) {
	url, err = UploadNewManifest(ctx, st, m, partition, destination, tag)
	if err != nil {
		return "", "", err
	}
	versions, err := st.ListVersions(ctx, url)
	if err != nil {
		return "", "", err
	}
	if len(versions) == 0 {
		return url, "", nil
	}
	return url, versions[0], nil
}

// RewritePath rewrites a base_path rooted at source to the equivalent path
// rooted at dest, preserving the path relative to source bit-identically
// (spec §3.1's "Bucket-type-aware path building", generalized: the same
// helper rewrites hotbackup_path/leveled_path/s3_path roots alike).
func RewritePath(original, source, dest string) (string, error) {
	rel := strings.TrimPrefix(original, strings.TrimRight(source, "/")+"/")
	if rel == original && original != source {
		return "", cmn.NewParseErrorf("path rewrite", "%q is not rooted at %q", original, source)
	}
	return JoinPath(dest, rel), nil
}

// UpdateJournalFilename rewrites field 1 (base_path) of entry from a
// source-relative path to a dest-relative path, preserving the other three
// fields bit-identically.
func UpdateJournalFilename(entry Entry, source, dest string) (Entry, error) {
	rewritten, err := RewritePath(entry.BasePath, source, dest)
	if err != nil {
		return Entry{}, err
	}
	entry.BasePath = rewritten
	return entry, nil
}
