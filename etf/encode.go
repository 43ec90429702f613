package etf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"math/big"
)

// compressThreshold is the body size above which Encode's compressed mode
// actually wraps the output. At 0 every encoded body (always at least one
// byte long) is wrapped when compression is requested.
const compressThreshold = 0

// Encode produces a stream starting with the version marker 0x83. When
// compressed is non-zero and the encoded body exceeds compressThreshold,
// the body is zlib-deflated at that level and wrapped under tag 0x50.
// compressed is a zlib level 1..9, or 0 for "no compression requested".
func Encode(t Term, compressed int) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, t); err != nil {
		return nil, err
	}
	body := buf.Bytes()

	out := make([]byte, 0, len(body)+6)
	out = append(out, tagVersion)

	if compressed <= 0 || len(body) <= compressThreshold {
		return append(out, body...), nil
	}

	level := compressed
	if level > 9 {
		level = 9
	}
	var zbuf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&zbuf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	out = append(out, tagCompressed)
	out = appendU32(out, uint32(len(body)))
	out = append(out, zbuf.Bytes()...)
	return out, nil
}

func appendU16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func encodeValue(buf *bytes.Buffer, t Term) error {
	switch v := t.(type) {
	case Atom:
		return encodeAtomBytes(buf, v.Name, v.Encoding)
	case Bool:
		name := AtomFalse
		if bool(v) {
			name = AtomTrue
		}
		return encodeAtomBytes(buf, []byte(name), Latin1)
	case undefinedT:
		return encodeAtomBytes(buf, []byte(AtomUndefined), Latin1)
	case Integer:
		return encodeInteger(buf, v.V)
	case Float:
		buf.WriteByte(tagFloat)
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], math.Float64bits(float64(v)))
		buf.Write(tmp[:])
		return nil
	case Binary:
		return encodeBinary(buf, v)
	case Str:
		return encodeStr(buf, v)
	case List:
		return encodeList(buf, v)
	case Tuple:
		return encodeTuple(buf, v)
	case Map:
		return encodeMap(buf, v)
	case Pid:
		return encodePid(buf, v)
	case Port:
		return encodePort(buf, v)
	case Reference:
		return encodeReference(buf, v)
	case nil:
		return newOutputError("cannot encode a nil term")
	default:
		return newOutputError("unsupported term type %T", t)
	}
}

func encodeAtomBytes(buf *bytes.Buffer, name []byte, enc AtomEncoding) error {
	if isPredefinedAtomName(name) {
		// canonical: booleans and `undefined` always use the old latin1 form
		buf.WriteByte(tagAtomOld)
		tmp := appendU16(nil, uint16(len(name)))
		buf.Write(tmp)
		buf.Write(name)
		return nil
	}
	if enc == UTF8 {
		if len(name) <= 255 {
			buf.WriteByte(tagAtomUTF8Small)
			buf.WriteByte(byte(len(name)))
			buf.Write(name)
			return nil
		}
		if len(name) > 65535 {
			return newOutputError("utf8 atom longer than 65535 bytes")
		}
		buf.WriteByte(tagAtomUTF8Old)
		tmp := appendU16(nil, uint16(len(name)))
		buf.Write(tmp)
		buf.Write(name)
		return nil
	}
	// latin1
	if len(name) > 255 {
		return newOutputError("latin1 atom longer than 255 characters")
	}
	buf.WriteByte(tagAtomSmall)
	buf.WriteByte(byte(len(name)))
	buf.Write(name)
	return nil
}

func encodeInteger(buf *bytes.Buffer, v *big.Int) error {
	if v.IsInt64() {
		n := v.Int64()
		if n >= 0 && n <= 255 {
			buf.WriteByte(tagSmallInt)
			buf.WriteByte(byte(n))
			return nil
		}
		if n >= -(1<<31) && n <= (1<<31)-1 {
			buf.WriteByte(tagInt)
			tmp := appendU32(nil, uint32(int32(n)))
			buf.Write(tmp)
			return nil
		}
	}
	sign := byte(0)
	mag := new(big.Int).Set(v)
	if v.Sign() < 0 {
		sign = 1
		mag.Neg(v)
	}
	// big.Int.Bytes() is big-endian; the wire wants little-endian magnitude.
	be := mag.Bytes()
	le := make([]byte, len(be))
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	if len(le) == 0 {
		le = []byte{0}
	}
	if len(le) <= 255 {
		buf.WriteByte(tagSmallBig)
		buf.WriteByte(byte(len(le)))
		buf.WriteByte(sign)
		buf.Write(le)
		return nil
	}
	buf.WriteByte(tagLargeBig)
	tmp := appendU32(nil, uint32(len(le)))
	buf.Write(tmp)
	buf.WriteByte(sign)
	buf.Write(le)
	return nil
}

func encodeBinary(buf *bytes.Buffer, b Binary) error {
	bits := b.effectiveBits()
	if bits == 8 {
		buf.WriteByte(tagBinary)
		tmp := appendU32(nil, uint32(len(b.Data)))
		buf.Write(tmp)
		buf.Write(b.Data)
		return nil
	}
	buf.WriteByte(tagBitBinary)
	tmp := appendU32(nil, uint32(len(b.Data)))
	buf.Write(tmp)
	buf.WriteByte(bits)
	buf.Write(b.Data)
	return nil
}

func encodeStr(buf *bytes.Buffer, s Str) error {
	if len(s) == 0 {
		buf.WriteByte(tagNil)
		return nil
	}
	if len(s) <= 65535 {
		buf.WriteByte(tagStr)
		tmp := appendU16(nil, uint16(len(s)))
		buf.Write(tmp)
		buf.Write(s)
		return nil
	}
	// falls back to an explicit list of small integers (§4.1)
	buf.WriteByte(tagList)
	tmp := appendU32(nil, uint32(len(s)))
	buf.Write(tmp)
	for _, b := range s {
		buf.WriteByte(tagSmallInt)
		buf.WriteByte(b)
	}
	buf.WriteByte(tagNil)
	return nil
}

func encodeList(buf *bytes.Buffer, l List) error {
	if len(l.Elems) == 0 && l.Tail == nil {
		buf.WriteByte(tagNil)
		return nil
	}
	buf.WriteByte(tagList)
	tmp := appendU32(nil, uint32(len(l.Elems)))
	buf.Write(tmp)
	for _, e := range l.Elems {
		if err := encodeValue(buf, e); err != nil {
			return err
		}
	}
	if l.Tail == nil {
		buf.WriteByte(tagNil)
		return nil
	}
	return encodeValue(buf, l.Tail)
}

func encodeTuple(buf *bytes.Buffer, tp Tuple) error {
	if len(tp) <= 255 {
		buf.WriteByte(tagSmallTuple)
		buf.WriteByte(byte(len(tp)))
	} else {
		buf.WriteByte(tagLargeTuple)
		tmp := appendU32(nil, uint32(len(tp)))
		buf.Write(tmp)
	}
	for _, e := range tp {
		if err := encodeValue(buf, e); err != nil {
			return err
		}
	}
	return nil
}

func encodeMap(buf *bytes.Buffer, m Map) error {
	buf.WriteByte(tagMap)
	tmp := appendU32(nil, uint32(len(m)))
	buf.Write(tmp)
	for _, p := range m {
		if err := encodeValue(buf, p.Key); err != nil {
			return err
		}
		if err := encodeValue(buf, p.Value); err != nil {
			return err
		}
	}
	return nil
}

func encodePid(buf *bytes.Buffer, p Pid) error {
	tag := byte(tagNewPid)
	if p.Old {
		tag = tagPid
	}
	buf.WriteByte(tag)
	if err := encodeAtomBytes(buf, p.Node.Name, p.Node.Encoding); err != nil {
		return err
	}
	buf.Write(appendU32(nil, p.ID))
	buf.Write(appendU32(nil, p.Serial))
	if p.Old {
		buf.WriteByte(byte(p.Creation))
	} else {
		buf.Write(appendU32(nil, p.Creation))
	}
	return nil
}

func encodePort(buf *bytes.Buffer, p Port) error {
	tag := byte(tagNewPort)
	if p.Old {
		tag = tagPort
	}
	buf.WriteByte(tag)
	if err := encodeAtomBytes(buf, p.Node.Name, p.Node.Encoding); err != nil {
		return err
	}
	buf.Write(appendU32(nil, p.ID))
	if p.Old {
		buf.WriteByte(byte(p.Creation))
	} else {
		buf.Write(appendU32(nil, p.Creation))
	}
	return nil
}

func encodeReference(buf *bytes.Buffer, r Reference) error {
	tag := byte(tagReference)
	if r.Newer {
		tag = tagNewerRef
	}
	buf.WriteByte(tag)
	buf.Write(appendU16(nil, uint16(len(r.ID))))
	if err := encodeAtomBytes(buf, r.Node.Name, r.Node.Encoding); err != nil {
		return err
	}
	if r.Newer {
		buf.Write(appendU32(nil, r.Creation))
	} else {
		buf.WriteByte(byte(r.Creation))
	}
	for _, w := range r.ID {
		buf.Write(appendU32(nil, w))
	}
	return nil
}
