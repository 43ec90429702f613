// Package ring reads a Riak `riak_core_ring` dump (itself an ETF term)
// to discover the partitions a node owns and the ring's size.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package ring

import (
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yorkshiresteve/hotbackup-sync/cmn"
	"github.com/yorkshiresteve/hotbackup-sync/etf"
)

const ringFilePrefix = "riak_core_ring."

// FindLatestRing scans dir for entries named `riak_core_ring.*` and
// returns the lexicographically greatest, joined to dir. Riak names ring
// files with a trailing version/timestamp, so "greatest" is "latest".
func FindLatestRing(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", cmn.NewIOError("reading ring directory", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), ringFilePrefix) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", cmn.NewNotFoundError("no riak_core_ring.* file found under %s", dir)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

// decodeRingTerm loads and ETF-decodes the ring dump at path.
func decodeRingTerm(path string) (etf.Term, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, cmn.NewIOError("reading ring file", err)
	}
	term, err := etf.Decode(raw)
	if err != nil {
		return nil, cmn.NewParseError("ring file "+path, err)
	}
	return term, nil
}

// ringTuple extracts the top-level ring tuple, erroring if the term isn't
// shaped as one.
func ringTuple(term etf.Term) (etf.Tuple, error) {
	tp, ok := term.(etf.Tuple)
	if !ok {
		return nil, cmn.NewParseErrorf("ring term", "expected a tuple, got %T", term)
	}
	if len(tp) < 4 {
		return nil, cmn.NewParseErrorf("ring term", "expected arity >= 4, got %d", len(tp))
	}
	return tp, nil
}

// nodeIdentity is term[1]: the ring owner's own node atom.
func nodeIdentity(tp etf.Tuple) (etf.Atom, error) {
	a, ok := tp[1].(etf.Atom)
	if !ok {
		return etf.Atom{}, cmn.NewParseErrorf("ring term", "term[1] (node identity) is %T, not an atom", tp[1])
	}
	return a, nil
}

// sizeAndOwners extracts term[3] == (ring_size, owners).
func sizeAndOwners(tp etf.Tuple) (size etf.Tuple, owners etf.List, err error) {
	pair, ok := tp[3].(etf.Tuple)
	if !ok || len(pair) < 2 {
		return nil, etf.List{}, cmn.NewParseErrorf("ring term", "term[3] is not a 2+-tuple: %T", tp[3])
	}
	owners, ok = pair[1].(etf.List)
	if !ok {
		return nil, etf.List{}, cmn.NewParseErrorf("ring term", "term[3][1] (owners) is %T, not a list", pair[1])
	}
	return pair, owners, nil
}

// GetRingSize decodes path and returns term[3][0] (ring_size).
func GetRingSize(path string) (int, error) {
	term, err := decodeRingTerm(path)
	if err != nil {
		return 0, err
	}
	tp, err := ringTuple(term)
	if err != nil {
		return 0, err
	}
	pair, _, err := sizeAndOwners(tp)
	if err != nil {
		return 0, err
	}
	n, ok := pair[0].(etf.Integer)
	if !ok {
		return 0, cmn.NewParseErrorf("ring term", "term[3][0] (ring_size) is %T, not an integer", pair[0])
	}
	if !n.V.IsInt64() {
		return 0, cmn.NewParseErrorf("ring term", "ring_size too large: %s", n.V.String())
	}
	return int(n.V.Int64()), nil
}

// GetOwnedPartitions decodes path and returns the sorted partition indices
// whose owner atom equals the ring's own node identity (term[1]).
func GetOwnedPartitions(path string) ([]*big.Int, error) {
	term, err := decodeRingTerm(path)
	if err != nil {
		return nil, err
	}
	tp, err := ringTuple(term)
	if err != nil {
		return nil, err
	}
	self, err := nodeIdentity(tp)
	if err != nil {
		return nil, err
	}
	_, owners, err := sizeAndOwners(tp)
	if err != nil {
		return nil, err
	}

	var mine []*big.Int
	for i, o := range owners.Elems {
		entry, ok := o.(etf.Tuple)
		if !ok || len(entry) != 2 {
			return nil, cmn.NewParseErrorf("ring term", "owners[%d] is not a 2-tuple: %T", i, o)
		}
		idx, ok := entry[0].(etf.Integer)
		if !ok {
			return nil, cmn.NewParseErrorf("ring term", "owners[%d][0] (partition index) is %T", i, entry[0])
		}
		owner, ok := entry[1].(etf.Atom)
		if !ok {
			return nil, cmn.NewParseErrorf("ring term", "owners[%d][1] (owner node) is %T", i, entry[1])
		}
		if owner.Equal(self) {
			mine = append(mine, new(big.Int).Set(idx.V))
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].Cmp(mine[j]) < 0 })
	return mine, nil
}
