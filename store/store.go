package store

import (
	"context"
	"io"
)

// RandomAccessSource is the abstract byte-source C1/C5 build CDB readers
// over (§9 "Random-access file interface for CDB"): a length and a
// byte-range read, satisfied by both a local file and an S3 object.
type RandomAccessSource interface {
	// Len returns the total size of the underlying object.
	Len() (int64, error)
	// ReadRange returns length bytes starting at offset. offset and length
	// must both be non-negative.
	ReadRange(ctx context.Context, offset, length int64) ([]byte, error)
	// Close releases any held resources (an S3 client handle or file
	// descriptor).
	Close() error
}

// Store is the uniform adapter surface over a local filesystem root or an
// S3 bucket: exists/upload/download/list-versions, plus a random-access
// reader factory for CDB consumption.
type Store interface {
	Exists(ctx context.Context, url string) (bool, error)
	UploadBytes(ctx context.Context, url string, data []byte) error
	UploadFile(ctx context.Context, url string, localPath string) error
	// DownloadBytes fetches the object at url. version is optional (S3
	// VersionId); local adapters ignore it.
	DownloadBytes(ctx context.Context, url string, version string) ([]byte, error)
	DownloadFile(ctx context.Context, url string, localPath string) error
	// ListVersions returns object-store version ids, newest first. Local
	// adapters return a single empty-string pseudo-version for an existing
	// path and no versions for a missing one.
	ListVersions(ctx context.Context, url string) ([]string, error)
	// Reader opens a random-access source over url for CDB consumption.
	Reader(ctx context.Context, url string) (RandomAccessSource, error)
}

// Router dispatches to a LocalStore or S3Store by URL scheme, giving
// callers one Store implementation regardless of whether a given path
// happens to live on disk or in S3.
type Router struct {
	Local *LocalStore
	S3    *S3Store
}

func NewRouter(local *LocalStore, s3 *S3Store) *Router {
	return &Router{Local: local, S3: s3}
}

func (r *Router) pick(url string) Store {
	if IsS3(url) {
		return r.S3
	}
	return r.Local
}

func (r *Router) Exists(ctx context.Context, url string) (bool, error) {
	return r.pick(url).Exists(ctx, url)
}

func (r *Router) UploadBytes(ctx context.Context, url string, data []byte) error {
	return r.pick(url).UploadBytes(ctx, url, data)
}

func (r *Router) UploadFile(ctx context.Context, url, localPath string) error {
	return r.pick(url).UploadFile(ctx, url, localPath)
}

func (r *Router) DownloadBytes(ctx context.Context, url, version string) ([]byte, error) {
	return r.pick(url).DownloadBytes(ctx, url, version)
}

func (r *Router) DownloadFile(ctx context.Context, url, localPath string) error {
	return r.pick(url).DownloadFile(ctx, url, localPath)
}

func (r *Router) ListVersions(ctx context.Context, url string) ([]string, error) {
	return r.pick(url).ListVersions(ctx, url)
}

func (r *Router) Reader(ctx context.Context, url string) (RandomAccessSource, error) {
	return r.pick(url).Reader(ctx, url)
}

// ReaderAt adapts a context-taking, range-based RandomAccessSource to the
// plain, context-less io.ReaderAt interface CDB consumers (C5) expect,
// binding a fixed context for the lifetime of the adapter.
type ReaderAt struct {
	Ctx context.Context
	Src RandomAccessSource
}

func (a ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	data, err := a.Src.ReadRange(a.Ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
