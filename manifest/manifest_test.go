package manifest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/yorkshiresteve/hotbackup-sync/etf"
	"github.com/yorkshiresteve/hotbackup-sync/journal"
	"github.com/yorkshiresteve/hotbackup-sync/store"
)

func sampleManifest() Manifest {
	return Manifest{
		{
			StartSQN: 200,
			BasePath: "0/journal/journal_files/200_uuid2",
			Owner:    etf.Pid{Node: etf.NewAtom("riak@self"), ID: 1, Serial: 2, Creation: 3, Old: true},
			LastKey:  journal.Key{SQN: 250, Bucket: []byte("b"), ObjKey: []byte("k2")},
		},
		{
			StartSQN: 100,
			BasePath: "0/journal/journal_files/100_uuid1",
			Owner:    etf.Pid{Node: etf.NewAtom("riak@self"), ID: 1, Serial: 2, Creation: 3, Old: true},
			LastKey:  journal.Key{SQN: 150, Bucket: []byte("b"), ObjKey: []byte("k1")},
		},
	}
}

func TestManifestEncodeDecodeRoundTrip(t *testing.T) {
	m := sampleManifest()
	data, err := encode(m)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(m) {
		t.Fatalf("got %d entries, want %d", len(got), len(m))
	}
	for i := range m {
		if got[i].StartSQN != m[i].StartSQN || got[i].BasePath != m[i].BasePath {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, got[i], m[i])
		}
		if got[i].LastKey.SQN != m[i].LastKey.SQN {
			t.Fatalf("entry %d last_key mismatch: got %+v want %+v", i, got[i].LastKey, m[i].LastKey)
		}
	}
}

func TestSaveAndReadLocalManifest(t *testing.T) {
	ctx := context.Background()
	m := sampleManifest()
	path := filepath.Join(t.TempDir(), "0", "journal", "journal_manifest", "0.man")
	if err := SaveLocalManifest(m, path); err != nil {
		t.Fatal(err)
	}

	got, err := ReadManifest(ctx, store.NewLocalStore(), path, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(m) {
		t.Fatalf("got %d entries, want %d", len(got), len(m))
	}
}

func TestRewritePath(t *testing.T) {
	got, err := RewritePath("/hotbackup/0/journal/journal_files/100_u.cdb", "/hotbackup", "s3://bucket/prefix")
	if err != nil {
		t.Fatal(err)
	}
	want := "s3://bucket/prefix/0/journal/journal_files/100_u.cdb"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRewritePathRejectsUnrootedPath(t *testing.T) {
	if _, err := RewritePath("/elsewhere/file", "/hotbackup", "s3://bucket/prefix"); err == nil {
		t.Fatal("expected an error for a path outside the source root")
	}
}

func TestUpdateJournalFilenamePreservesOtherFields(t *testing.T) {
	m := sampleManifest()
	entry := m[0]
	rewritten, err := UpdateJournalFilename(entry, "0", "s3://bucket/prefix")
	if err != nil {
		t.Fatal(err)
	}
	if rewritten.StartSQN != entry.StartSQN {
		t.Fatal("start_sqn must be preserved")
	}
	if rewritten.Owner.ID != entry.Owner.ID || rewritten.Owner.Serial != entry.Owner.Serial {
		t.Fatal("owner_pid must be preserved")
	}
	if rewritten.LastKey.SQN != entry.LastKey.SQN {
		t.Fatal("last_key must be preserved")
	}
	if rewritten.BasePath == entry.BasePath {
		t.Fatal("base_path must be rewritten")
	}
}
