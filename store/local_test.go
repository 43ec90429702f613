package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
)

func TestLocalStoreUploadBytesAndExists(t *testing.T) {
	ctx := context.Background()
	l := NewLocalStore()
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "0.man")

	ok, err := l.Exists(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected not to exist yet")
	}

	if err := l.UploadBytes(ctx, path, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	ok, err = l.Exists(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected to exist after upload")
	}

	got, err := l.DownloadBytes(ctx, path, "")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("got %q", got)
	}
}

func TestLocalStoreListVersions(t *testing.T) {
	ctx := context.Background()
	l := NewLocalStore()
	dir := t.TempDir()
	path := filepath.Join(dir, "0.man")

	vs, err := l.ListVersions(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 0 {
		t.Fatalf("expected no versions for a missing file, got %v", vs)
	}

	if err := l.UploadBytes(ctx, path, []byte("x")); err != nil {
		t.Fatal(err)
	}
	vs, err = l.ListVersions(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 {
		t.Fatalf("expected one pseudo-version, got %v", vs)
	}
}

func TestLocalStoreReader(t *testing.T) {
	ctx := context.Background()
	l := NewLocalStore()
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.cdb")
	if err := l.UploadBytes(ctx, path, []byte("0123456789")); err != nil {
		t.Fatal(err)
	}

	r, err := l.Reader(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	size, err := r.Len()
	if err != nil {
		t.Fatal(err)
	}
	if size != 10 {
		t.Fatalf("got size %d", size)
	}

	got, err := r.ReadRange(ctx, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("3456")) {
		t.Fatalf("got %q", got)
	}
}
