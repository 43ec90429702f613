package journal

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"testing"
)

// assembleFrame builds crc(4) | value | key_change_len(4)=0 | vt(1), the
// inverse of DecodeObject, for use as test fixtures.
func assembleFrame(t *testing.T, journalKey, value []byte, vt byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(make([]byte, 4)) // crc placeholder
	buf.Write(value)
	var keyChangeLen [4]byte
	buf.Write(keyChangeLen[:])
	buf.WriteByte(vt)

	out := buf.Bytes()
	crc := crc32.ChecksumIEEE(append(append([]byte(nil), journalKey...), out[4:]...))
	binary.BigEndian.PutUint32(out[0:4], crc)
	return out
}

func zlibCompress(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
