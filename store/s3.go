package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/yorkshiresteve/hotbackup-sync/cmn"
)

// S3Store implements Store over s3://bucket/key URLs, optionally against a
// non-AWS S3-compatible endpoint (spec §6 `s3_endpoint`).
type S3Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
}

// NewS3Store builds an S3Store. endpoint, when non-empty, overrides the
// service endpoint (MinIO, Ceph RGW and similar S3-compatible stores);
// path-style addressing is used in that case since most self-hosted S3
// implementations don't support virtual-hosted-style buckets.
func NewS3Store(ctx context.Context, endpoint string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, cmn.NewIOError("loading AWS config", err)
	}

	var opts []func(*s3.Options)
	if endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(cfg, opts...)

	return &S3Store{
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
	}, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 404
	}
	return false
}

func (s *S3Store) Exists(ctx context.Context, url string) (bool, error) {
	bucket, key, err := SplitS3(url)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, cmn.NewIOError("head "+url, err)
	}
	return true, nil
}

func (s *S3Store) UploadBytes(ctx context.Context, url string, data []byte) error {
	bucket, key, err := SplitS3(url)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytesReader(data),
	})
	if err != nil {
		return cmn.NewIOError("put "+url, err)
	}
	return nil
}

func (s *S3Store) UploadFile(ctx context.Context, url, localPath string) error {
	bucket, key, err := SplitS3(url)
	if err != nil {
		return err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return cmn.NewIOError("open "+localPath, err)
	}
	defer f.Close()
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{Bucket: &bucket, Key: &key, Body: f})
	if err != nil {
		return cmn.NewIOError("upload "+localPath+" -> "+url, err)
	}
	return nil
}

func (s *S3Store) DownloadBytes(ctx context.Context, url, version string) ([]byte, error) {
	bucket, key, err := SplitS3(url)
	if err != nil {
		return nil, err
	}
	input := &s3.GetObjectInput{Bucket: &bucket, Key: &key}
	if version != "" {
		input.VersionId = &version
	}
	out, err := s.client.GetObject(ctx, input)
	if err != nil {
		return nil, cmn.NewIOError("get "+url, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, cmn.NewIOError("read body of "+url, err)
	}
	return data, nil
}

func (s *S3Store) DownloadFile(ctx context.Context, url, localPath string) error {
	if err := os.MkdirAll(parentDir(localPath), 0o755); err != nil {
		return cmn.NewIOError("mkdir for "+localPath, err)
	}
	bucket, key, err := SplitS3(url)
	if err != nil {
		return err
	}
	f, err := os.Create(localPath)
	if err != nil {
		return cmn.NewIOError("create "+localPath, err)
	}
	defer f.Close()
	if _, err := s.downloader.Download(ctx, f, &s3.GetObjectInput{Bucket: &bucket, Key: &key}); err != nil {
		return cmn.NewIOError("download "+url+" -> "+localPath, err)
	}
	return nil
}

// ListVersions returns the object's version ids newest-first, per spec
// §4.7's "versioned at the object-store level" manifest lifecycle.
func (s *S3Store) ListVersions(ctx context.Context, url string) ([]string, error) {
	bucket, key, err := SplitS3(url)
	if err != nil {
		return nil, err
	}
	out, err := s.client.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
		Bucket: &bucket,
		Prefix: &key,
	})
	if err != nil {
		return nil, cmn.NewIOError("list versions "+url, err)
	}
	type versioned struct {
		id       string
		modified int64
	}
	var vs []versioned
	for _, v := range out.Versions {
		if v.Key == nil || *v.Key != key || v.VersionId == nil {
			continue
		}
		var mod int64
		if v.LastModified != nil {
			mod = v.LastModified.UnixNano()
		}
		vs = append(vs, versioned{id: *v.VersionId, modified: mod})
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].modified > vs[j].modified })
	ids := make([]string, len(vs))
	for i, v := range vs {
		ids[i] = v.id
	}
	return ids, nil
}

// s3Reader is a RandomAccessSource backed by byte-range GETs, with no
// local cache, per spec §9's abstract byte-source design note.
type s3Reader struct {
	client *s3.Client
	bucket string
	key    string
	size   int64
}

func (s *S3Store) Reader(ctx context.Context, url string) (RandomAccessSource, error) {
	bucket, key, err := SplitS3(url)
	if err != nil {
		return nil, err
	}
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, cmn.NewIOError("head "+url, err)
	}
	var size int64
	if head.ContentLength != nil {
		size = *head.ContentLength
	}
	return &s3Reader{client: s.client, bucket: bucket, key: key, size: size}, nil
}

func (r *s3Reader) Len() (int64, error) { return r.size, nil }

func (r *s3Reader) ReadRange(ctx context.Context, offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, cmn.NewParseErrorf("s3 reader", "negative range offset=%d length=%d", offset, length)
	}
	byteRange := fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &r.bucket,
		Key:    &r.key,
		Range:  &byteRange,
	})
	if err != nil {
		return nil, cmn.NewIOError("range-get "+r.bucket+"/"+r.key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (r *s3Reader) Close() error { return nil }

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

func parentDir(path string) string { return filepath.Dir(path) }
