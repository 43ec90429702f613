package journal

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/yorkshiresteve/hotbackup-sync/etf"
)

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func flaggedBinary(buf *bytes.Buffer, payload []byte) {
	putU32(buf, uint32(len(payload)+1))
	buf.WriteByte(1)
	buf.Write(payload)
}

func buildMetadata(vtag string, deleted bool, extra map[string]string) []byte {
	var buf bytes.Buffer
	putU32(&buf, 1) // mega
	putU32(&buf, 2) // secs
	putU32(&buf, 3) // micro
	buf.WriteByte(byte(len(vtag)))
	buf.WriteString(vtag)
	if deleted {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	for k, v := range extra {
		flaggedBinary(&buf, []byte(k))
		flaggedBinary(&buf, []byte(v))
	}
	return buf.Bytes()
}

func buildRiakObject(t *testing.T, siblingValues [][]byte, vtags []string) []byte {
	t.Helper()
	vclock, err := etf.Encode(etf.Tuple{etf.NewInt(1), etf.NewInt(2)}, 0)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	buf.WriteByte(riakObjectMagic)
	buf.WriteByte(riakObjectVersion)
	putU32(&buf, uint32(len(vclock)))
	buf.Write(vclock)
	putU32(&buf, uint32(len(siblingValues)))

	for i, v := range siblingValues {
		var valBuf bytes.Buffer
		flaggedBinary(&valBuf, v)
		meta := buildMetadata(vtags[i], false, nil)

		putU32(&buf, uint32(valBuf.Len()))
		buf.Write(valBuf.Bytes())
		putU32(&buf, uint32(len(meta)))
		buf.Write(meta)
	}
	return buf.Bytes()
}

func TestDecodeRiakObjectSingleSibling(t *testing.T) {
	raw := buildRiakObject(t, [][]byte{[]byte(`{"test":"secondUpdate1"}`)}, []string{"v1"})
	obj, err := DecodeRiakObject(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(obj.Siblings) != 1 {
		t.Fatalf("expected 1 sibling, got %d", len(obj.Siblings))
	}
	sib := obj.Siblings[0]
	if !sib.IsBinary || !bytes.Equal(sib.Value, []byte(`{"test":"secondUpdate1"}`)) {
		t.Fatalf("unexpected sibling value: %+v", sib)
	}
	if sib.Metadata.VTag != "v1" || sib.Metadata.Deleted {
		t.Fatalf("unexpected metadata: %+v", sib.Metadata)
	}
	if sib.Metadata.LastModified != "1000002.000003" {
		t.Fatalf("unexpected last_modified: %s", sib.Metadata.LastModified)
	}
}

func TestDecodeRiakObjectMultipleSiblings(t *testing.T) {
	raw := buildRiakObject(t, [][]byte{[]byte("a"), []byte("b")}, []string{"va", "vb"})
	obj, err := DecodeRiakObject(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(obj.Siblings) != 2 {
		t.Fatalf("expected 2 siblings, got %d", len(obj.Siblings))
	}
}

func TestDecodeRiakObjectRejectsBadMagic(t *testing.T) {
	raw := buildRiakObject(t, [][]byte{[]byte("a")}, []string{"va"})
	raw[0] = 0x99
	if _, err := DecodeRiakObject(raw); err == nil {
		t.Fatal("expected error on bad magic")
	}
}

func TestDecodeRiakObjectRejectsTrailingBytes(t *testing.T) {
	raw := buildRiakObject(t, [][]byte{[]byte("a")}, []string{"va"})
	raw = append(raw, 0x00)
	if _, err := DecodeRiakObject(raw); err == nil {
		t.Fatal("expected error on trailing bytes")
	}
}
