package etf

import (
	"bytes"
	"compress/zlib"
	"io"
	"math/big"
	"testing"
)

func roundTrip(t *testing.T, term Term) {
	t.Helper()
	enc, err := Encode(term, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec, err := Decode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !Equal(dec, term) {
		t.Fatalf("round trip mismatch:\n  in:  %#v\n  out: %#v", term, dec)
	}
}

func TestRoundTripAtoms(t *testing.T) {
	roundTrip(t, NewAtom("ok"))
	roundTrip(t, NewAtom("o_rkv"))
	roundTrip(t, Atom{Name: []byte("héllo"), Encoding: UTF8})
	longLatin1 := make([]byte, 255)
	for i := range longLatin1 {
		longLatin1[i] = 'x'
	}
	roundTrip(t, Atom{Name: longLatin1, Encoding: Latin1})
}

func TestRoundTripIntegers(t *testing.T) {
	roundTrip(t, NewInt(0))
	roundTrip(t, NewInt(255))
	roundTrip(t, NewInt(256))
	roundTrip(t, NewInt(-1))
	roundTrip(t, NewInt(1<<31-1))
	roundTrip(t, NewInt(-(1 << 31)))

	big1 := new(big.Int)
	big1.SetString("123456789012345678901234567890", 10)
	roundTrip(t, Integer{V: big1})

	neg := new(big.Int).Neg(big1)
	roundTrip(t, Integer{V: neg})
}

func TestRoundTripFloat(t *testing.T) {
	roundTrip(t, Float(1.5))
	roundTrip(t, Float(-0.25))
}

func TestRoundTripBinaryAndStr(t *testing.T) {
	roundTrip(t, NewBinary([]byte("hello world")))
	roundTrip(t, NewBinary(nil))
	roundTrip(t, Binary{Data: []byte{0xff, 0x0f}, Bits: 3})
	roundTrip(t, Str("short string"))
	roundTrip(t, Str(nil))
}

func TestRoundTripListsAndTuples(t *testing.T) {
	roundTrip(t, List{})
	roundTrip(t, List{Elems: []Term{NewInt(1), NewInt(2), NewAtom("x")}})
	roundTrip(t, List{Elems: []Term{NewInt(1)}, Tail: NewInt(2)}) // improper list
	roundTrip(t, Tuple{NewAtom("o_rkv"), NewBinary([]byte("b")), NewBinary([]byte("k")), NewAtom("null")})

	bigTuple := make(Tuple, 300)
	for i := range bigTuple {
		bigTuple[i] = NewInt(int64(i))
	}
	roundTrip(t, bigTuple)
}

func TestRoundTripMap(t *testing.T) {
	m := Map{
		{Key: NewAtom("a"), Value: NewInt(1)},
		{Key: Tuple{NewInt(1), List{Elems: []Term{NewInt(2)}}}, Value: NewAtom("tuple-with-list-key")},
	}
	roundTrip(t, m)
}

func TestRoundTripIdentifiers(t *testing.T) {
	node := NewAtom("riak@127.0.0.1")
	roundTrip(t, Pid{Node: node, ID: 1, Serial: 2, Creation: 3, Old: true})
	roundTrip(t, Pid{Node: node, ID: 1, Serial: 2, Creation: 300, Old: false})
	roundTrip(t, Port{Node: node, ID: 7, Creation: 1, Old: true})
	roundTrip(t, Port{Node: node, ID: 7, Creation: 99999, Old: false})
	roundTrip(t, Reference{Node: node, Creation: 1, ID: []uint32{1, 2, 3}, Newer: false})
	roundTrip(t, Reference{Node: node, Creation: 123456, ID: []uint32{9}, Newer: true})
}

func TestLongStrFallsBackToList(t *testing.T) {
	data := bytes.Repeat([]byte{'z'}, 70000)
	enc, err := Encode(Str(data), 0)
	if err != nil {
		t.Fatal(err)
	}
	if enc[1] != tagList {
		t.Fatalf("expected list tag for long string, got 0x%02x", enc[1])
	}
	dec, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	l, ok := dec.(List)
	if !ok || len(l.Elems) != len(data) {
		t.Fatalf("expected list of %d elements, got %#v", len(data), dec)
	}
}

func TestEncodeConcreteScenario2(t *testing.T) {
	lst := List{Elems: make([]Term, 15)}
	for i := range lst.Elems {
		lst.Elems[i] = List{}
	}
	enc, err := Encode(lst, 6)
	if err != nil {
		t.Fatal(err)
	}
	prefix := []byte{0x83, 0x50, 0x00, 0x00, 0x00, 0x15}
	if !bytes.Equal(enc[:6], prefix) {
		t.Fatalf("unexpected prefix % x", enc[:6])
	}
	zr, err := zlib.NewReader(bytes.NewReader(enc[6:]))
	if err != nil {
		t.Fatal(err)
	}
	inflated, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	want := append([]byte{'l', 0, 0, 0, 0x0f}, bytes.Repeat([]byte{'j'}, 15)...)
	want = append(want, 'j')
	if !bytes.Equal(inflated, want) {
		t.Fatalf("inflated mismatch:\n got  % x\n want % x", inflated, want)
	}
}

func TestEncodeBooleanAndUndefinedCanonical(t *testing.T) {
	cases := []struct {
		term Term
		want []byte
	}{
		{Bool(true), append([]byte{'d', 0, 4}, []byte("true")...)},
		{Bool(false), append([]byte{'d', 0, 5}, []byte("false")...)},
		{Undefined, append([]byte{'d', 0, 9}, []byte("undefined")...)},
		{NewAtom("true"), append([]byte{'d', 0, 4}, []byte("true")...)},
	}
	for _, c := range cases {
		enc, err := Encode(c.term, 0)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(enc[1:], c.want) {
			t.Fatalf("term %#v: got % x want % x", c.term, enc[1:], c.want)
		}
	}
}

func TestAtomLengthLimits(t *testing.T) {
	tooLong := make([]byte, 256)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	if _, err := Encode(Atom{Name: tooLong, Encoding: Latin1}, 0); err == nil {
		t.Fatal("expected OutputError for over-long latin1 atom")
	}
}
