package journal

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pierrec/lz4/v3"
	"github.com/yorkshiresteve/hotbackup-sync/cmn"
	"github.com/yorkshiresteve/hotbackup-sync/etf"
)

const (
	vtCompressed = 1 << 0
	vtBinary     = 1 << 1
	vtLZ4        = 1 << 2
)

// Value is the decoded body of a journal record: either raw bytes
// (is_binary) or an ETF term.
type Value struct {
	Bytes   []byte
	Term    etf.Term
	IsBytes bool
}

// DecodeObject decodes the framed journal payload stored under
// journalKeyBytes (the verbatim ETF-encoded journal key, used as CRC
// input) per the wire layout in spec §3:
//
//	[0..4)        CRC-32 of (journal_key || payload_after_crc), big-endian
//	[4..N-4-T-1)  value bytes (possibly compressed)
//	[N-4-T-1..N-1) key_change_bytes, length T
//	[N-4-1..N-1)  key_change_length T, big-endian
//	[N-1..N)      value_type byte
//
// The key-change trailer is validated for length but its contents are
// discarded; only replay tooling (out of scope here) interprets it.
func DecodeObject(journalKeyBytes, record []byte) (Value, error) {
	n := len(record)
	if n < 9 {
		return Value{}, cmn.NewParseErrorf("journal record", "record too short: %d bytes", n)
	}
	vt := record[n-1]
	keyChangeLen := binary.BigEndian.Uint32(record[n-5 : n-1])
	if int(keyChangeLen) > n-9 {
		return Value{}, cmn.NewParseErrorf("journal record", "key-change length %d exceeds record", keyChangeLen)
	}

	storedCRC := binary.BigEndian.Uint32(record[0:4])
	calc := crc32.ChecksumIEEE(append(append([]byte(nil), journalKeyBytes...), record[4:]...))
	if calc != storedCRC {
		return Value{}, &cmn.IntegrityError{Msg: "CRC error retrieving object"}
	}

	payloadEnd := n - 5 - int(keyChangeLen)
	if payloadEnd < 4 {
		return Value{}, cmn.NewParseErrorf("journal record", "invalid payload bounds")
	}
	payload := record[4:payloadEnd]

	isCompressed := vt&vtCompressed != 0
	isBinary := vt&vtBinary != 0
	isLZ4 := vt&vtLZ4 != 0

	if isCompressed {
		decompressed, err := decompress(payload, isLZ4)
		if err != nil {
			return Value{}, err
		}
		payload = decompressed
	}

	if isBinary {
		return Value{Bytes: payload, IsBytes: true}, nil
	}
	term, err := etf.Decode(payload)
	if err != nil {
		return Value{}, cmn.NewParseError("journal record value", err)
	}
	return Value{Term: term, IsBytes: false}, nil
}

func decompress(payload []byte, isLZ4 bool) ([]byte, error) {
	if isLZ4 {
		return decompressLZ4Block(payload)
	}
	zr, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, cmn.NewParseError("zlib decompression", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, cmn.NewParseError("zlib decompression", err)
	}
	return out, nil
}

// decompressLZ4Block inflates Leveled's lz4-compressed values: a 4-byte
// little-endian uncompressed-length prefix (the convention the Erlang lz4
// NIF writes) followed by a raw LZ4 block (no frame header/magic).
func decompressLZ4Block(payload []byte) ([]byte, error) {
	if len(payload) < 4 {
		return nil, cmn.NewParseErrorf("lz4 block decompression", "payload too short: %d bytes", len(payload))
	}
	uncompressedLen := binary.LittleEndian.Uint32(payload[0:4])
	dst := make([]byte, uncompressedLen)
	n, err := lz4.UncompressBlock(payload[4:], dst)
	if err != nil {
		return nil, cmn.NewParseError("lz4 block decompression", err)
	}
	return dst[:n], nil
}
