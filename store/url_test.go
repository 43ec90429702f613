package store

import "testing"

func TestIsS3(t *testing.T) {
	if !IsS3("s3://bucket/key") {
		t.Fatal("expected s3:// prefix to be recognized")
	}
	if IsS3("/var/lib/hotbackup") {
		t.Fatal("local path must not be treated as s3")
	}
}

func TestSplitS3(t *testing.T) {
	bucket, key, err := SplitS3("s3://mybucket/some/nested/key.man")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "mybucket" || key != "some/nested/key.man" {
		t.Fatalf("got bucket=%q key=%q", bucket, key)
	}
}

func TestSplitS3RejectsMalformed(t *testing.T) {
	for _, bad := range []string{"s3://", "s3://bucketonly", "/local/path"} {
		if _, _, err := SplitS3(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestJoinS3(t *testing.T) {
	got := JoinS3("b", "k/1")
	if got != "s3://b/k/1" {
		t.Fatalf("got %q", got)
	}
}
