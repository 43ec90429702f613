package journal

import (
	"encoding/binary"
	"fmt"

	"github.com/yorkshiresteve/hotbackup-sync/cmn"
	"github.com/yorkshiresteve/hotbackup-sync/etf"
)

const (
	riakObjectMagic   = 0x35
	riakObjectVersion = 1
)

// Metadata is one sibling's metadata block: last-modified timestamp,
// version tag, deletion flag and any extra key/value pairs the object
// carried.
type Metadata struct {
	LastModified string // "mega" + zero-padded secs + "." + zero-padded micro
	VTag         string
	Deleted      bool
	Extra        map[string][]byte
}

// Sibling is one value/metadata pair out of a Riak multi-value object.
type Sibling struct {
	Value    []byte
	IsBinary bool
	Term     etf.Term // set when !IsBinary
	Metadata Metadata
}

// RiakObject is the decoded form of a Riak KV object's stored bytes: a
// vclock plus its siblings, per the wire layout in spec §3.
type RiakObject struct {
	VClock   etf.Term
	Siblings []Sibling
}

type objReader struct {
	buf []byte
	off int
}

func (r *objReader) need(n int) error {
	if r.off+n > len(r.buf) {
		return cmn.NewParseErrorf("riak object", "need %d bytes at offset %d, have %d", n, r.off, len(r.buf))
	}
	return nil
}

func (r *objReader) u8() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *objReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *objReader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v, nil
}

// readFlagged reads `len u32 BE | is_binary_flag u8 | payload`, returning
// the raw payload bytes, whether it was binary, and (when not binary) the
// decoded ETF term.
func (r *objReader) readFlagged() ([]byte, bool, etf.Term, error) {
	n, err := r.u32()
	if err != nil {
		return nil, false, nil, err
	}
	if n == 0 {
		return nil, true, nil, nil
	}
	flag, err := r.u8()
	if err != nil {
		return nil, false, nil, err
	}
	payload, err := r.bytes(int(n) - 1)
	if err != nil {
		return nil, false, nil, err
	}
	if flag != 0 {
		return payload, true, nil, nil
	}
	term, err := etf.Decode(payload)
	if err != nil {
		return nil, false, nil, cmn.NewParseError("riak object value term", err)
	}
	return payload, false, term, nil
}

// DecodeRiakObject parses a Riak KV object's on-disk bytes per the layout
// in spec §3: magic, version, vclock, then a sequence of
// (value, metadata) siblings. Strict about magic, version, and full-buffer
// consumption.
func DecodeRiakObject(raw []byte) (*RiakObject, error) {
	r := &objReader{buf: raw}

	magic, err := r.u8()
	if err != nil {
		return nil, err
	}
	if magic != riakObjectMagic {
		return nil, &cmn.IntegrityError{Msg: fmt.Sprintf("riak object: bad magic byte 0x%02x", magic)}
	}
	version, err := r.u8()
	if err != nil {
		return nil, err
	}
	if version != riakObjectVersion {
		return nil, &cmn.IntegrityError{Msg: fmt.Sprintf("riak object: unsupported version %d", version)}
	}

	vclockLen, err := r.u32()
	if err != nil {
		return nil, err
	}
	vclockBytes, err := r.bytes(int(vclockLen))
	if err != nil {
		return nil, err
	}
	vclock, err := etf.Decode(vclockBytes)
	if err != nil {
		return nil, cmn.NewParseError("riak object vclock", err)
	}

	count, err := r.u32()
	if err != nil {
		return nil, err
	}

	obj := &RiakObject{VClock: vclock, Siblings: make([]Sibling, 0, count)}
	for i := uint32(0); i < count; i++ {
		valueLen, err := r.u32()
		if err != nil {
			return nil, err
		}
		valueBuf, err := r.bytes(int(valueLen))
		if err != nil {
			return nil, err
		}
		metaLen, err := r.u32()
		if err != nil {
			return nil, err
		}
		metaBuf, err := r.bytes(int(metaLen))
		if err != nil {
			return nil, err
		}

		value, isBinary, term, err := (&objReader{buf: valueBuf}).readFlagged()
		if err != nil {
			return nil, err
		}
		meta, err := decodeMetadata(metaBuf)
		if err != nil {
			return nil, err
		}

		obj.Siblings = append(obj.Siblings, Sibling{
			Value:    value,
			IsBinary: isBinary,
			Term:     term,
			Metadata: meta,
		})
	}

	if r.off != len(r.buf) {
		return nil, &cmn.IntegrityError{Msg: fmt.Sprintf("riak object: %d trailing bytes", len(r.buf)-r.off)}
	}
	return obj, nil
}

func decodeMetadata(buf []byte) (Metadata, error) {
	r := &objReader{buf: buf}

	mega, err := r.u32()
	if err != nil {
		return Metadata{}, err
	}
	secs, err := r.u32()
	if err != nil {
		return Metadata{}, err
	}
	micro, err := r.u32()
	if err != nil {
		return Metadata{}, err
	}

	vtagLen, err := r.u8()
	if err != nil {
		return Metadata{}, err
	}
	vtagBytes, err := r.bytes(int(vtagLen))
	if err != nil {
		return Metadata{}, err
	}

	deletedFlag, err := r.u8()
	if err != nil {
		return Metadata{}, err
	}

	meta := Metadata{
		LastModified: fmt.Sprintf("%d%06d.%06d", mega, secs, micro),
		VTag:         string(vtagBytes),
		Deleted:      deletedFlag != 0,
	}

	for r.off < len(r.buf) {
		keyBuf, _, _, err := r.readFlaggedField()
		if err != nil {
			return Metadata{}, err
		}
		valBuf, _, _, err := r.readFlaggedField()
		if err != nil {
			return Metadata{}, err
		}
		if meta.Extra == nil {
			meta.Extra = make(map[string][]byte)
		}
		meta.Extra[string(keyBuf)] = valBuf
	}
	return meta, nil
}

// readFlaggedField reads one `len u32 BE | is_binary_flag u8 | payload`
// entry inline (metadata extras are always flagged byte payloads in
// practice, but we preserve the flag/term for completeness).
func (r *objReader) readFlaggedField() ([]byte, bool, etf.Term, error) {
	return r.readFlagged()
}
