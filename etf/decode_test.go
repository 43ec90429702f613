package etf

import "testing"

func TestDecodeConcreteScenarios(t *testing.T) {
	t.Run("small int 255", func(t *testing.T) {
		term, err := Decode([]byte{0x83, 0x61, 0xff})
		if err != nil {
			t.Fatal(err)
		}
		i, ok := term.(Integer)
		if !ok || i.V.Int64() != 255 {
			t.Fatalf("got %#v", term)
		}
	})

	t.Run("signed int -1", func(t *testing.T) {
		term, err := Decode([]byte{0x83, 0x62, 0xff, 0xff, 0xff, 0xff})
		if err != nil {
			t.Fatal(err)
		}
		i, ok := term.(Integer)
		if !ok || i.V.Int64() != -1 {
			t.Fatalf("got %#v", term)
		}
	})

	t.Run("float 1.5", func(t *testing.T) {
		term, err := Decode([]byte{0x83, 0x46, 0x3f, 0xf8, 0, 0, 0, 0, 0, 0})
		if err != nil {
			t.Fatal(err)
		}
		f, ok := term.(Float)
		if !ok || float64(f) != 1.5 {
			t.Fatalf("got %#v", term)
		}
	})
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x82, 0x61, 1},             // wrong version
		{0x83, 0xff},                // unknown tag
		{0x83, 0x61},                // truncated small int
		{0x83, 0x61, 1, 2},          // trailing bytes
		{0x83, 0x6b, 0, 2, 'a'},     // string declares len 2, has 1
	}
	for i, c := range cases {
		if _, err := Decode(c); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestDecodeIdiomaticPredefinedAtoms(t *testing.T) {
	enc, err := Encode(Bool(true), 0)
	if err != nil {
		t.Fatal(err)
	}
	term, err := DecodeIdiomatic(enc)
	if err != nil {
		t.Fatal(err)
	}
	if b, ok := term.(Bool); !ok || !bool(b) {
		t.Fatalf("got %#v", term)
	}

	// Without idiomatic mode, the same bytes decode to a raw Atom.
	raw, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	a, ok := raw.(Atom)
	if !ok || string(a.Name) != AtomTrue {
		t.Fatalf("got %#v", raw)
	}
}

func TestDecodeCompressedWrapper(t *testing.T) {
	lst := List{Elems: make([]Term, 15)}
	for i := range lst.Elems {
		lst.Elems[i] = List{}
	}
	enc, err := Encode(lst, 6)
	if err != nil {
		t.Fatal(err)
	}
	if enc[0] != tagVersion || enc[1] != tagCompressed {
		t.Fatalf("expected compressed wrapper prefix, got % x", enc[:2])
	}
	term, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(term, lst) {
		t.Fatalf("round trip mismatch: %#v", term)
	}
}
