// Package store implements the uniform storage-adapter surface spec §4.4
// describes over a single URL set: either a local absolute path or an
// `s3://bucket/key` URL.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package store

import (
	"strings"

	"github.com/yorkshiresteve/hotbackup-sync/cmn"
)

const s3Scheme = "s3://"

// IsS3 reports whether url names an S3 object rather than a local path.
func IsS3(url string) bool { return strings.HasPrefix(url, s3Scheme) }

// SplitS3 parses `s3://bucket/key...` into its bucket and key.
func SplitS3(url string) (bucket, key string, err error) {
	if !IsS3(url) {
		return "", "", cmn.NewParseErrorf("store url", "not an s3 url: %s", url)
	}
	rest := strings.TrimPrefix(url, s3Scheme)
	idx := strings.IndexByte(rest, '/')
	if idx < 0 || idx == 0 {
		return "", "", cmn.NewParseErrorf("store url", "missing bucket/key in %s", url)
	}
	return rest[:idx], rest[idx+1:], nil
}

// JoinS3 builds an s3:// URL from a bucket and key.
func JoinS3(bucket, key string) string {
	return s3Scheme + bucket + "/" + strings.TrimPrefix(key, "/")
}
