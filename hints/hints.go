// Package hints builds and queries the companion CDB index (C5) that lets
// retrieve skip journals that provably do not contain a given key.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package hints

import (
	"context"
	"encoding/binary"

	"github.com/colinmarc/cdb"

	"github.com/yorkshiresteve/hotbackup-sync/cmn"
	"github.com/yorkshiresteve/hotbackup-sync/journal"
	"github.com/yorkshiresteve/hotbackup-sync/store"
)

// Open opens a hints CDB over a random-access source: a local file or an
// S3 range-GET reader (spec §9's abstract byte-source).
func Open(ctx context.Context, src store.RandomAccessSource) (*cdb.CDB, error) {
	db, err := cdb.New(store.ReaderAt{Ctx: ctx, Src: src})
	if err != nil {
		return nil, cmn.NewIOError("open hints cdb", err)
	}
	return db, nil
}

// Lookup probes a hints CDB for (bucket, key[, buckettype]) and returns the
// SQN it maps to. found is false on a miss, meaning the journal this hints
// file indexes does not contain that key at any SQN.
func Lookup(db *cdb.CDB, bucket, key, buckettype []byte) (sqn int64, found bool, err error) {
	hintsKey, err := journal.EncodeHintsKey(bucket, key, buckettype)
	if err != nil {
		return 0, false, err
	}
	val, err := db.Get(hintsKey)
	if err != nil {
		return 0, false, cmn.NewIOError("hints lookup", err)
	}
	if val == nil {
		return 0, false, nil
	}
	if len(val) != 4 {
		return 0, false, cmn.NewParseErrorf("hints value", "expected a 4-byte SQN, got %d bytes", len(val))
	}
	return int64(binary.LittleEndian.Uint32(val)), true, nil
}

// Build writes a hints CDB to destPath from a journal CDB's keys: each
// journal key decodes to (sqn, bucket_ref, objKey); the hints entry maps
// the ETF-encoded (bucket_ref, objKey) pair to sqn as a little-endian u32,
// the CDB putint/getint convention spec §3 specifies for hints values.
func Build(journalCDBPath, destPath string) error {
	src, err := cdb.Open(journalCDBPath)
	if err != nil {
		return cmn.NewIOError("open journal cdb "+journalCDBPath, err)
	}
	defer src.Close()

	w, err := cdb.Create(destPath)
	if err != nil {
		return cmn.NewIOError("create hints cdb "+destPath, err)
	}

	iter, err := src.Iter()
	if err != nil {
		w.Close()
		return cmn.NewIOError("iterate journal cdb "+journalCDBPath, err)
	}
	for iter.Next() {
		key, err := journal.DecodeKey(iter.Key())
		if err != nil {
			w.Close()
			return err
		}
		hintsKey, err := journal.EncodeHintsKey(key.Bucket, key.ObjKey, key.BucketType)
		if err != nil {
			w.Close()
			return err
		}
		var sqnBytes [4]byte
		binary.LittleEndian.PutUint32(sqnBytes[:], uint32(key.SQN))
		if err := w.Put(hintsKey, sqnBytes[:]); err != nil {
			w.Close()
			return cmn.NewIOError("write hints entry", err)
		}
	}
	if err := iter.Err(); err != nil {
		w.Close()
		return cmn.NewIOError("iterate journal cdb "+journalCDBPath, err)
	}
	if err := w.Close(); err != nil {
		return cmn.NewIOError("close hints cdb "+destPath, err)
	}
	return nil
}
