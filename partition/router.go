// Package partition implements Riak's SHA-1 consistent-hash ring routing:
// given a bucket/key (and optional bucket type), which ring partition owns
// it.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package partition

import (
	"crypto/sha1" //nolint:gosec // Riak's ring hash is SHA-1 by protocol, not a security boundary
	"math/big"

	"github.com/yorkshiresteve/hotbackup-sync/cmn"
	"github.com/yorkshiresteve/hotbackup-sync/etf"
)

// MaxSHA is 2^160 - 1, the largest value a 20-byte SHA-1 digest can hold,
// per Riak's ring-hashing convention.
var MaxSHA = mustBigFromString("1461501637330902918203684832716283019655932542975")

func mustBigFromString(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("partition: bad MaxSHA literal")
	}
	return v
}

// Increment returns MAX_SHA / ringSize (integer division).
func Increment(ringSize int) *big.Int {
	return new(big.Int).Div(MaxSHA, big.NewInt(int64(ringSize)))
}

// RingIndexes returns the ringSize partition indexes: inc*n + n for
// n in [0, ringSize).
func RingIndexes(ringSize int) []*big.Int {
	inc := Increment(ringSize)
	out := make([]*big.Int, ringSize)
	for n := 0; n < ringSize; n++ {
		bn := big.NewInt(int64(n))
		v := new(big.Int).Mul(inc, bn)
		v.Add(v, bn)
		out[n] = v
	}
	return out
}

// bucketKeyTerm builds the ETF tuple hashed to route a bucket/key:
// ((buckettype, bucket), key) when typed, else (bucket, key).
func bucketKeyTerm(bucket, key, buckettype []byte) etf.Term {
	bucketRef := etf.Term(etf.NewBinary(bucket))
	if len(buckettype) > 0 {
		bucketRef = etf.Tuple{etf.NewBinary(buckettype), etf.NewBinary(bucket)}
	}
	return etf.Tuple{bucketRef, etf.NewBinary(key)}
}

// HashBucketKey SHA-1-hashes the ETF encoding of the (bucket, key[,
// buckettype]) tuple and interprets the digest as a big-endian unsigned
// integer.
func HashBucketKey(bucket, key, buckettype []byte) (*big.Int, error) {
	term := bucketKeyTerm(bucket, key, buckettype)
	enc, err := etf.Encode(term, 0)
	if err != nil {
		return nil, cmn.NewParseError("hashing bucket/key", err)
	}
	sum := sha1.Sum(enc)
	return new(big.Int).SetBytes(sum[:]), nil
}

// FindPrimaryPartition returns ring[(hash/inc + 1) mod ringSize], the
// well-known Riak primary-partition rule.
func FindPrimaryPartition(ringSize int, bucket, key, buckettype []byte) (*big.Int, error) {
	hash, err := HashBucketKey(bucket, key, buckettype)
	if err != nil {
		return nil, err
	}
	inc := Increment(ringSize)
	q := new(big.Int).Div(hash, inc)
	q.Add(q, big.NewInt(1))
	q.Mod(q, big.NewInt(int64(ringSize)))

	indexes := RingIndexes(ringSize)
	return indexes[q.Int64()], nil
}
