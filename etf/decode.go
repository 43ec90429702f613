package etf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"math"
	"math/big"
)

// Decode rejects input that does not start with 0x83, carries an unknown
// tag, or is truncated/over-consumed. Predefined atoms (true/false/
// undefined) decode as plain Atom values here — use DecodeIdiomatic for
// the host-sentinel mapping.
func Decode(b []byte) (Term, error) {
	return decodeTop(b, false)
}

// DecodeIdiomatic is Decode, except the three predefined atoms decode to
// Bool(true), Bool(false), and Undefined respectively.
func DecodeIdiomatic(b []byte) (Term, error) {
	return decodeTop(b, true)
}

func decodeTop(b []byte, idiomatic bool) (Term, error) {
	if len(b) == 0 || b[0] != tagVersion {
		return nil, newParseError("missing version marker 0x83")
	}
	d := &decoder{buf: b[1:], idiomatic: idiomatic}
	t, err := d.value()
	if err != nil {
		return nil, err
	}
	if len(d.buf) != 0 {
		return nil, newParseError("%d trailing byte(s) after top-level term", len(d.buf))
	}
	return t, nil
}

type decoder struct {
	buf       []byte
	idiomatic bool
}

func (d *decoder) need(n int) error {
	if len(d.buf) < n {
		return newParseError("need %d byte(s), have %d", n, len(d.buf))
	}
	return nil
}

func (d *decoder) take(n int) []byte {
	out := d.buf[:n]
	d.buf = d.buf[n:]
	return out
}

func (d *decoder) u8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	return d.take(1)[0], nil
}

func (d *decoder) u16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(d.take(2)), nil
}

func (d *decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(d.take(4)), nil
}

func (d *decoder) bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, newParseError("negative length %d", n)
	}
	if err := d.need(n); err != nil {
		return nil, err
	}
	return d.take(n), nil
}

func (d *decoder) value() (Term, error) {
	tag, err := d.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagAtomOld, tagAtomUTF8Old:
		n, err := d.u16()
		if err != nil {
			return nil, err
		}
		name, err := d.bytes(int(n))
		if err != nil {
			return nil, err
		}
		enc := Latin1
		if tag == tagAtomUTF8Old {
			enc = UTF8
		}
		return d.atomTerm(append([]byte(nil), name...), enc), nil
	case tagAtomSmall, tagAtomUTF8Small:
		n, err := d.u8()
		if err != nil {
			return nil, err
		}
		name, err := d.bytes(int(n))
		if err != nil {
			return nil, err
		}
		enc := Latin1
		if tag == tagAtomUTF8Small {
			enc = UTF8
		}
		return d.atomTerm(append([]byte(nil), name...), enc), nil
	case tagSmallInt:
		v, err := d.u8()
		if err != nil {
			return nil, err
		}
		return Integer{V: big.NewInt(int64(v))}, nil
	case tagInt:
		v, err := d.u32()
		if err != nil {
			return nil, err
		}
		return Integer{V: big.NewInt(int64(int32(v)))}, nil
	case tagSmallBig:
		n, err := d.u8()
		if err != nil {
			return nil, err
		}
		return d.bigInt(int(n))
	case tagLargeBig:
		n, err := d.u32()
		if err != nil {
			return nil, err
		}
		return d.bigInt(int(n))
	case tagFloat:
		raw, err := d.bytes(8)
		if err != nil {
			return nil, err
		}
		bits := binary.BigEndian.Uint64(raw)
		return Float(math.Float64frombits(bits)), nil
	case tagNil:
		return List{}, nil
	case tagStr:
		n, err := d.u16()
		if err != nil {
			return nil, err
		}
		data, err := d.bytes(int(n))
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		copy(out, data)
		return Str(out), nil
	case tagList:
		n, err := d.u32()
		if err != nil {
			return nil, err
		}
		elems := make([]Term, 0, n)
		for i := uint32(0); i < n; i++ {
			e, err := d.value()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		tail, err := d.value()
		if err != nil {
			return nil, err
		}
		if l, ok := tail.(List); ok && len(l.Elems) == 0 && l.Tail == nil {
			return List{Elems: elems}, nil
		}
		return List{Elems: elems, Tail: tail}, nil
	case tagBinary:
		n, err := d.u32()
		if err != nil {
			return nil, err
		}
		data, err := d.bytes(int(n))
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		copy(out, data)
		return Binary{Data: out, Bits: 8}, nil
	case tagBitBinary:
		n, err := d.u32()
		if err != nil {
			return nil, err
		}
		bits, err := d.u8()
		if err != nil {
			return nil, err
		}
		data, err := d.bytes(int(n))
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		copy(out, data)
		return Binary{Data: out, Bits: bits}, nil
	case tagSmallTuple:
		n, err := d.u8()
		if err != nil {
			return nil, err
		}
		return d.tuple(int(n))
	case tagLargeTuple:
		n, err := d.u32()
		if err != nil {
			return nil, err
		}
		return d.tuple(int(n))
	case tagMap:
		n, err := d.u32()
		if err != nil {
			return nil, err
		}
		m := make(Map, 0, n)
		for i := uint32(0); i < n; i++ {
			k, err := d.value()
			if err != nil {
				return nil, err
			}
			v, err := d.value()
			if err != nil {
				return nil, err
			}
			m = append(m, Pair{Key: k, Value: v})
		}
		return m, nil
	case tagPid, tagNewPid:
		node, err := d.atom()
		if err != nil {
			return nil, err
		}
		id, err := d.u32()
		if err != nil {
			return nil, err
		}
		serial, err := d.u32()
		if err != nil {
			return nil, err
		}
		old := tag == tagPid
		var creation uint32
		if old {
			c, err := d.u8()
			if err != nil {
				return nil, err
			}
			creation = uint32(c)
		} else {
			creation, err = d.u32()
			if err != nil {
				return nil, err
			}
		}
		return Pid{Node: node, ID: id, Serial: serial, Creation: creation, Old: old}, nil
	case tagPort, tagNewPort:
		node, err := d.atom()
		if err != nil {
			return nil, err
		}
		id, err := d.u32()
		if err != nil {
			return nil, err
		}
		old := tag == tagPort
		var creation uint32
		if old {
			c, err := d.u8()
			if err != nil {
				return nil, err
			}
			creation = uint32(c)
		} else {
			creation, err = d.u32()
			if err != nil {
				return nil, err
			}
		}
		return Port{Node: node, ID: id, Creation: creation, Old: old}, nil
	case tagReference, tagNewerRef:
		n, err := d.u16()
		if err != nil {
			return nil, err
		}
		node, err := d.atom()
		if err != nil {
			return nil, err
		}
		newer := tag == tagNewerRef
		var creation uint32
		if newer {
			creation, err = d.u32()
			if err != nil {
				return nil, err
			}
		} else {
			c, err := d.u8()
			if err != nil {
				return nil, err
			}
			creation = uint32(c)
		}
		ids := make([]uint32, n)
		for i := range ids {
			ids[i], err = d.u32()
			if err != nil {
				return nil, err
			}
		}
		return Reference{Node: node, Creation: creation, ID: ids, Newer: newer}, nil
	case tagCompressed:
		// Only ever appears immediately after the version byte (real
		// Erlang term_to_binary compression wraps the whole term), so it
		// is taken to own the entire remainder of the buffer.
		declaredLen, err := d.u32()
		if err != nil {
			return nil, err
		}
		zr, err := zlib.NewReader(bytes.NewReader(d.buf))
		if err != nil {
			return nil, newParseError("bad compressed wrapper: %v", err)
		}
		inflated, err := io.ReadAll(zr)
		if err != nil {
			return nil, newParseError("bad compressed wrapper: %v", err)
		}
		if uint32(len(inflated)) != declaredLen {
			return nil, newParseError("compressed wrapper declared length %d, got %d", declaredLen, len(inflated))
		}
		inner := &decoder{buf: inflated, idiomatic: d.idiomatic}
		t, err := inner.value()
		if err != nil {
			return nil, err
		}
		if len(inner.buf) != 0 {
			return nil, newParseError("%d trailing byte(s) inside compressed wrapper", len(inner.buf))
		}
		d.buf = nil
		return t, nil
	default:
		return nil, newParseError("unknown tag 0x%02x", tag)
	}
}
