package etf

import "math/big"

func (d *decoder) atomTerm(name []byte, enc AtomEncoding) Term {
	if d.idiomatic {
		switch string(name) {
		case AtomTrue:
			return Bool(true)
		case AtomFalse:
			return Bool(false)
		case AtomUndefined:
			return Undefined
		}
	}
	return Atom{Name: name, Encoding: enc}
}

// atom decodes a nested atom value (e.g. a Pid/Port/Reference node name),
// always as a raw Atom regardless of idiomatic mode — the predefined-atom
// mapping only applies to freestanding atom terms.
func (d *decoder) atom() (Atom, error) {
	tag, err := d.u8()
	if err != nil {
		return Atom{}, err
	}
	switch tag {
	case tagAtomOld, tagAtomUTF8Old:
		n, err := d.u16()
		if err != nil {
			return Atom{}, err
		}
		name, err := d.bytes(int(n))
		if err != nil {
			return Atom{}, err
		}
		enc := Latin1
		if tag == tagAtomUTF8Old {
			enc = UTF8
		}
		return Atom{Name: append([]byte(nil), name...), Encoding: enc}, nil
	case tagAtomSmall, tagAtomUTF8Small:
		n, err := d.u8()
		if err != nil {
			return Atom{}, err
		}
		name, err := d.bytes(int(n))
		if err != nil {
			return Atom{}, err
		}
		enc := Latin1
		if tag == tagAtomUTF8Small {
			enc = UTF8
		}
		return Atom{Name: append([]byte(nil), name...), Encoding: enc}, nil
	default:
		return Atom{}, newParseError("expected atom tag, got 0x%02x", tag)
	}
}

func (d *decoder) bigInt(n int) (Term, error) {
	sign, err := d.u8()
	if err != nil {
		return nil, err
	}
	le, err := d.bytes(n)
	if err != nil {
		return nil, err
	}
	be := make([]byte, len(le))
	for i, b := range le {
		be[len(le)-1-i] = b
	}
	v := new(big.Int).SetBytes(be)
	if sign != 0 {
		v.Neg(v)
	}
	return Integer{V: v}, nil
}

func (d *decoder) tuple(n int) (Term, error) {
	elems := make(Tuple, 0, n)
	for i := 0; i < n; i++ {
		e, err := d.value()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	return elems, nil
}
