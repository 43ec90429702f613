package journal

import (
	"bytes"
	"testing"
)

func TestKeyRoundTripUntyped(t *testing.T) {
	k := Key{SQN: 42, Bucket: []byte("testBucket"), ObjKey: []byte("testKey1")}
	enc, err := k.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeKey(enc)
	if err != nil {
		t.Fatal(err)
	}
	if got.SQN != k.SQN || !bytes.Equal(got.Bucket, k.Bucket) || !bytes.Equal(got.ObjKey, k.ObjKey) || len(got.BucketType) != 0 {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, k)
	}
}

func TestKeyRoundTripTyped(t *testing.T) {
	k := Key{SQN: 7, Bucket: []byte("b"), BucketType: []byte("t"), ObjKey: []byte("k")}
	enc, err := k.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeKey(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.BucketType, k.BucketType) || !bytes.Equal(got.Bucket, k.Bucket) {
		t.Fatalf("typed round trip mismatch: got %+v", got)
	}
}

func TestDecodeKeyRejectsMalformed(t *testing.T) {
	if _, err := DecodeKey([]byte{0x83, 0x6a}); err == nil {
		t.Fatal("expected error decoding a nil term as a journal key")
	}
}

func TestHintsKeyEncodeIsDeterministic(t *testing.T) {
	a, err := EncodeHintsKey([]byte("b"), []byte("k"), nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncodeHintsKey([]byte("b"), []byte("k"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("hints key encoding must be deterministic")
	}
}
