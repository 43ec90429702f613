package sync

import (
	"context"
	"runtime"

	"github.com/colinmarc/cdb"
	"golang.org/x/sync/errgroup"

	"github.com/yorkshiresteve/hotbackup-sync/cmn"
	"github.com/yorkshiresteve/hotbackup-sync/hints"
	"github.com/yorkshiresteve/hotbackup-sync/journal"
	"github.com/yorkshiresteve/hotbackup-sync/manifest"
	"github.com/yorkshiresteve/hotbackup-sync/partition"
	"github.com/yorkshiresteve/hotbackup-sync/ring"
	"github.com/yorkshiresteve/hotbackup-sync/store"
)

// RetrieveResult is what Retrieve prints or writes: the decoded siblings
// of the object found at (bucket, key[, buckettype]).
type RetrieveResult struct {
	JournalFile string
	SQN         int64
	Object      *journal.RiakObject
}

// scanState is the retrieve state machine's outcome per manifest entry:
// {SCAN, HIT, MISS} (spec §4.8). DECODE_OK/DECODE_ERR are folded into the
// error return of Retrieve itself, since a CRC mismatch is fatal and
// propagates regardless of which journal it came from.
type scanState struct {
	hit bool
	sqn int64
	err error
}

// Retrieve computes the primary partition for (bucket, key[, buckettype])
// from the local ring file, reads the S3 manifest at tag, and scans
// journals newest-first for the key via their hints CDBs. The first hit
// (in manifest order) wins, matching a serial newest-first scan even
// though hints probes run concurrently (spec §5).
func Retrieve(ctx context.Context, cfg *cmn.Config, tag string, bucket, key, buckettype []byte) (*RetrieveResult, error) {
	if err := cmn.ValidateTag(tag); err != nil {
		return nil, err
	}
	if err := cfg.ValidateForRetrieve(); err != nil {
		return nil, err
	}

	ringPath, err := ring.FindLatestRing(cfg.RingPath)
	if err != nil {
		return nil, err
	}
	ringSize, err := ring.GetRingSize(ringPath)
	if err != nil {
		return nil, err
	}
	primary, err := partition.FindPrimaryPartition(ringSize, bucket, key, buckettype)
	if err != nil {
		return nil, err
	}

	st, err := newStore(ctx, cfg.S3Endpoint)
	if err != nil {
		return nil, err
	}

	manifestURL := manifest.JoinPath(cfg.S3Path, manifestRelPath(primary.Int64(), tag))
	exists, err := st.Exists(ctx, manifestURL)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, cmn.NewNotFoundError("Could not open journal manifest. Check provided TAG or s3_path.")
	}
	m, err := manifest.ReadManifest(ctx, st, manifestURL, "")
	if err != nil {
		return nil, err
	}

	states := make([]scanState, len(m))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, entry := range m {
		i, entry := i, entry
		g.Go(func() error {
			sqn, found, err := probeHints(gctx, st, entry, bucket, key, buckettype)
			if err != nil {
				states[i] = scanState{err: err}
				return nil // other probes still run; firstOutcome decides what a serial scan would have seen
			}
			states[i] = scanState{hit: found, sqn: sqn}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	i, hit, err := firstOutcome(states)
	if err != nil {
		return nil, err
	}
	if hit {
		return fetchAndDecode(ctx, st, m[i], bucket, key, buckettype, states[i].sqn)
	}
	return nil, cmn.NewNotFoundError("Could not find key in hotbackup.")
}

// firstOutcome walks states in manifest order and returns whatever a serial
// newest-first scan would have hit first: a miss at index i is skipped, a
// hit at index i is accepted, and an error at index i is fatal and aborts
// immediately — even if a later index (which the serial scan would never
// have reached) also hit — matching spec.md's invariant that the
// concurrent scan return exactly what the serial scan would (spec §5/§7).
func firstOutcome(states []scanState) (idx int, hit bool, err error) {
	for i, s := range states {
		if s.err != nil {
			return 0, false, s.err
		}
		if s.hit {
			return i, true, nil
		}
	}
	return 0, false, nil
}

func probeHints(ctx context.Context, st store.Store, entry manifest.Entry, bucket, key, buckettype []byte) (sqn int64, found bool, err error) {
	src, err := st.Reader(ctx, entry.HintsFile())
	if err != nil {
		return 0, false, err
	}
	defer src.Close()

	db, err := hints.Open(ctx, src)
	if err != nil {
		return 0, false, err
	}
	defer closeCDB(db)

	return hints.Lookup(db, bucket, key, buckettype)
}

func fetchAndDecode(ctx context.Context, st store.Store, entry manifest.Entry, bucket, key, buckettype []byte, sqn int64) (*RetrieveResult, error) {
	k := journal.Key{SQN: sqn, Bucket: bucket, BucketType: buckettype, ObjKey: key}
	keyBytes, err := k.Encode()
	if err != nil {
		return nil, err
	}

	src, err := st.Reader(ctx, entry.JournalFile())
	if err != nil {
		return nil, err
	}
	defer src.Close()

	db, err := cdb.New(store.ReaderAt{Ctx: ctx, Src: src})
	if err != nil {
		return nil, cmn.NewIOError("open journal cdb "+entry.JournalFile(), err)
	}
	defer closeCDB(db)

	record, err := db.Get(keyBytes)
	if err != nil {
		return nil, cmn.NewIOError("journal lookup", err)
	}
	if record == nil {
		return nil, cmn.NewNotFoundError("Could not find key in hotbackup.")
	}

	value, err := journal.DecodeObject(keyBytes, record)
	if err != nil {
		return nil, err
	}
	if !value.IsBytes {
		return nil, cmn.NewParseErrorf("journal record", "expected a binary Riak object, got %T", value.Term)
	}

	obj, err := journal.DecodeRiakObject(value.Bytes)
	if err != nil {
		return nil, err
	}
	return &RetrieveResult{JournalFile: entry.JournalFile(), SQN: sqn, Object: obj}, nil
}

func closeCDB(db *cdb.CDB) {
	if db != nil {
		db.Close()
	}
}
