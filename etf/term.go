// Package etf implements the Erlang External Term Format (tag 131 / 0x83):
// binary round-trippable encoding and decoding of the term model Riak's
// storage engine (and the rest of the BEAM ecosystem) exchanges on disk
// and over the wire.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package etf

import (
	"bytes"
	"math/big"
)

// Term is the sum type every decoded/encodable ETF value satisfies. It is
// implemented by Atom, Integer, Float, Binary, Str, List, Tuple, Map, Pid,
// Port, and Reference below.
type Term interface {
	isTerm()
}

// AtomEncoding distinguishes the two wire encodings an atom's name can
// carry; it is part of atom identity (spec.md §3: "Equality of atoms is by
// value+encoding").
type AtomEncoding uint8

const (
	Latin1 AtomEncoding = iota
	UTF8
)

// Atom is an Erlang atom: a name plus the encoding it was spelled with on
// the wire.
type Atom struct {
	Name     []byte
	Encoding AtomEncoding
}

func (Atom) isTerm() {}

// NewAtom builds a Latin1 atom unless name contains a byte >127, in which
// case it is UTF8 — matching the encode-time dispatch rule in §4.1.
func NewAtom(name string) Atom {
	enc := Latin1
	for i := 0; i < len(name); i++ {
		if name[i] > 127 {
			enc = UTF8
			break
		}
	}
	return Atom{Name: []byte(name), Encoding: enc}
}

func (a Atom) String() string { return string(a.Name) }

func (a Atom) Equal(o Atom) bool {
	return a.Encoding == o.Encoding && bytes.Equal(a.Name, o.Name)
}

// Predefined atom names that decode to host-level sentinels under
// DecodeIdiomatic, and that always encode via the old latin1 atom tag
// regardless of caller-supplied form (§4.1 "canonical encode choices").
const (
	AtomTrue      = "true"
	AtomFalse     = "false"
	AtomUndefined = "undefined"
)

func isPredefinedAtomName(name []byte) bool {
	s := string(name)
	return s == AtomTrue || s == AtomFalse || s == AtomUndefined
}

// Bool and Undefined are the host-level sentinels DecodeIdiomatic maps the
// three predefined atoms onto; see the "Cyclic constants" design note.
type Bool bool

func (Bool) isTerm() {}

type undefinedT struct{}

func (undefinedT) isTerm() {}

// Undefined is the null-sentinel DecodeIdiomatic produces for the atom
// `undefined`.
var Undefined Term = undefinedT{}

// Integer unifies SmallInt/Int/BigInt from the data model into a single
// arbitrary-precision representation: encode always picks the smallest
// wire form by magnitude (§4.1), so which Go constructor the caller used
// is not preserved across a round trip — only the numeric value is.
type Integer struct {
	V *big.Int
}

func (Integer) isTerm() {}

func NewInt(v int64) Integer { return Integer{V: big.NewInt(v)} }

func (i Integer) Equal(o Integer) bool { return i.V.Cmp(o.V) == 0 }

// Float is an IEEE-754 double, tag 0x46.
type Float float64

func (Float) isTerm() {}

// Binary is a byte string with a bit-width on its last byte; Bits==8 (or
// 0, treated as the same) is the plain-binary tag 0x6D, Bits in 1..7 is
// the bit-binary tag 0x4D.
type Binary struct {
	Data []byte
	Bits uint8
}

func (Binary) isTerm() {}

// NewBinary builds a full-width (8-bit) binary, the common case.
func NewBinary(b []byte) Binary { return Binary{Data: b, Bits: 8} }

func (b Binary) effectiveBits() uint8 {
	if b.Bits == 0 {
		return 8
	}
	return b.Bits
}

func (b Binary) Equal(o Binary) bool {
	return b.effectiveBits() == o.effectiveBits() && bytes.Equal(b.Data, o.Data)
}

// Str is the short byte-string form, tag 0x6B: a list of bytes the
// encoder can represent compactly because every element is <= 255 and the
// sequence is no longer than 65535 bytes.
type Str []byte

func (Str) isTerm() {}

// List is an Erlang list. Tail is nil for a proper list (one that
// terminates in the empty list, `[]`); a non-nil Tail marks an improper
// list.
type List struct {
	Elems []Term
	Tail  Term
}

func (List) isTerm() {}

func (l List) Proper() bool { return l.Tail == nil }

// Tuple is an ordered, fixed-arity collection.
type Tuple []Term

func (Tuple) isTerm() {}

// Pair is one association-list entry of a Map.
type Pair struct {
	Key   Term
	Value Term
}

// Map is represented as an association list rather than a Go map because
// keys are not required to be hashable (e.g. a tuple containing a list).
type Map []Pair

func (Map) isTerm() {}

// Pid identifies an Erlang process. Old (tag 0x67) carries a 1-byte
// creation; new (tag 0x58) carries a 4-byte creation — preserved via the
// Old flag so re-encoding reproduces the original bytes.
type Pid struct {
	Node     Atom
	ID       uint32
	Serial   uint32
	Creation uint32
	Old      bool
}

func (Pid) isTerm() {}

// Port identifies an Erlang port; same old/new creation-width split as Pid.
type Port struct {
	Node     Atom
	ID       uint32
	Creation uint32
	Old      bool
}

func (Port) isTerm() {}

// Reference identifies an Erlang reference. New (tag 0x72) carries a
// 1-byte creation; newer (tag 0x5A) carries a 4-byte creation.
type Reference struct {
	Node     Atom
	Creation uint32
	ID       []uint32
	Newer    bool
}

func (Reference) isTerm() {}
