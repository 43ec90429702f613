// Package journal decodes the framed records Leveled stores in a
// partition's journal CDBs, and the Riak sibling-object payload many of
// those records carry.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package journal

import (
	"github.com/yorkshiresteve/hotbackup-sync/cmn"
	"github.com/yorkshiresteve/hotbackup-sync/etf"
)

// Key is the decoded form of a journal key: the 3-tuple
// (sqn, tag=stnd, (o_rkv, bucket_ref, key, null)).
type Key struct {
	SQN        int64
	Bucket     []byte
	BucketType []byte // empty when untyped
	ObjKey     []byte
}

func bucketRefTerm(bucket, buckettype []byte) etf.Term {
	if len(buckettype) > 0 {
		return etf.Tuple{etf.NewBinary(buckettype), etf.NewBinary(bucket)}
	}
	return etf.NewBinary(bucket)
}

// Term builds the raw ETF tuple for this key, for embedding inline in a
// larger term (e.g. a manifest entry's last_key field).
func (k Key) Term() etf.Term {
	return etf.Tuple{
		etf.NewInt(k.SQN),
		etf.NewAtom("stnd"),
		etf.Tuple{
			etf.NewAtom("o_rkv"),
			bucketRefTerm(k.Bucket, k.BucketType),
			etf.NewBinary(k.ObjKey),
			etf.NewAtom("null"),
		},
	}
}

// Encode builds the ETF-encoded journal key for (sqn, bucket, objKey[,
// bucketType]).
func (k Key) Encode() ([]byte, error) {
	return etf.Encode(k.Term(), 0)
}

// DecodeKey parses an ETF-encoded journal key, as found verbatim as a CDB
// key.
func DecodeKey(raw []byte) (Key, error) {
	term, err := etf.Decode(raw)
	if err != nil {
		return Key{}, cmn.NewParseError("journal key", err)
	}
	return KeyFromTerm(term)
}

// KeyFromTerm parses an already-decoded journal-key term, e.g. one
// embedded inline as a manifest entry's last_key field.
func KeyFromTerm(term etf.Term) (Key, error) {
	outer, ok := term.(etf.Tuple)
	if !ok || len(outer) != 3 {
		return Key{}, cmn.NewParseErrorf("journal key", "expected a 3-tuple, got %T", term)
	}
	sqn, ok := outer[0].(etf.Integer)
	if !ok {
		return Key{}, cmn.NewParseErrorf("journal key", "sqn is %T, not an integer", outer[0])
	}
	inner, ok := outer[2].(etf.Tuple)
	if !ok || len(inner) != 4 {
		return Key{}, cmn.NewParseErrorf("journal key", "inner term is not a 4-tuple: %T", outer[2])
	}
	objKey, ok := inner[2].(etf.Binary)
	if !ok {
		return Key{}, cmn.NewParseErrorf("journal key", "key is %T, not a binary", inner[2])
	}

	k := Key{SQN: sqn.V.Int64(), ObjKey: objKey.Data}
	switch ref := inner[1].(type) {
	case etf.Binary:
		k.Bucket = ref.Data
	case etf.Tuple:
		if len(ref) != 2 {
			return Key{}, cmn.NewParseErrorf("journal key", "typed bucket ref has arity %d", len(ref))
		}
		bt, ok := ref[0].(etf.Binary)
		if !ok {
			return Key{}, cmn.NewParseErrorf("journal key", "bucket type is %T, not a binary", ref[0])
		}
		b, ok := ref[1].(etf.Binary)
		if !ok {
			return Key{}, cmn.NewParseErrorf("journal key", "bucket is %T, not a binary", ref[1])
		}
		k.BucketType, k.Bucket = bt.Data, b.Data
	default:
		return Key{}, cmn.NewParseErrorf("journal key", "bucket ref is %T", inner[1])
	}
	return k, nil
}

// HintsKeyTerm is the (bucket_ref, key) pair that hints CDBs key on,
// sharing the same bucket_ref shape as the journal key.
func HintsKeyTerm(bucket, key, buckettype []byte) etf.Term {
	return etf.Tuple{bucketRefTerm(bucket, buckettype), etf.NewBinary(key)}
}

// EncodeHintsKey ETF-encodes the (bucket_ref, key) pair used as a hints
// CDB key.
func EncodeHintsKey(bucket, key, buckettype []byte) ([]byte, error) {
	return etf.Encode(HintsKeyTerm(bucket, key, buckettype), 0)
}
