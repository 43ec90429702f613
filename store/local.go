package store

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/yorkshiresteve/hotbackup-sync/cmn"
)

// LocalStore implements Store over absolute filesystem paths.
type LocalStore struct{}

func NewLocalStore() *LocalStore { return &LocalStore{} }

func (l *LocalStore) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, cmn.NewIOError("stat "+path, err)
}

// writeAtomic writes data to a uuid-suffixed temp file in the same
// directory as path, then renames it into place, so a crash mid-write
// never leaves a truncated artefact visible under path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cmn.NewIOError("mkdir "+dir, err)
	}
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return cmn.NewIOError("write "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return cmn.NewIOError("rename "+tmp+" -> "+path, err)
	}
	return nil
}

func (l *LocalStore) UploadBytes(_ context.Context, path string, data []byte) error {
	return writeAtomic(path, data)
}

func (l *LocalStore) UploadFile(_ context.Context, path, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return cmn.NewIOError("read "+localPath, err)
	}
	return writeAtomic(path, data)
}

func (l *LocalStore) DownloadBytes(_ context.Context, path, _ string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cmn.NewIOError("read "+path, err)
	}
	return data, nil
}

func (l *LocalStore) DownloadFile(_ context.Context, path, localPath string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return cmn.NewIOError("read "+path, err)
	}
	return writeAtomic(localPath, data)
}

// ListVersions reports a single pseudo-version for an existing local path,
// and none for a missing one: the filesystem has no versioning concept.
func (l *LocalStore) ListVersions(_ context.Context, path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cmn.NewIOError("stat "+path, err)
	}
	return []string{""}, nil
}

// localReader is a RandomAccessSource backed by an *os.File, which already
// implements io.ReaderAt.
type localReader struct {
	f    *os.File
	size int64
}

func (l *localReader) Len() (int64, error) { return l.size, nil }

func (l *localReader) ReadRange(_ context.Context, offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, cmn.NewParseErrorf("local reader", "negative range offset=%d length=%d", offset, length)
	}
	buf := make([]byte, length)
	n, err := l.f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, cmn.NewIOError("read range", err)
	}
	return buf[:n], nil
}

func (l *localReader) Close() error { return l.f.Close() }

func (l *LocalStore) Reader(_ context.Context, path string) (RandomAccessSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cmn.NewIOError("open "+path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, cmn.NewIOError("stat "+path, err)
	}
	return &localReader{f: f, size: info.Size()}, nil
}
