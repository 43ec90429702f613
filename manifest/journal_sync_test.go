package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yorkshiresteve/hotbackup-sync/etf"
	"github.com/yorkshiresteve/hotbackup-sync/journal"
	"github.com/yorkshiresteve/hotbackup-sync/store"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMaybeUploadJournalCopiesOnceThenSkips(t *testing.T) {
	ctx := context.Background()
	st := store.NewLocalStore()
	source := t.TempDir()
	dest := t.TempDir()

	entry := Entry{
		StartSQN: 1,
		BasePath: filepath.Join(source, "0", "journal", "journal_files", "1_uuid"),
		Owner:    etf.Pid{Node: etf.NewAtom("riak@self")},
		LastKey:  journal.Key{SQN: 1, Bucket: []byte("b"), ObjKey: []byte("k")},
	}
	writeFile(t, entry.JournalFile(), []byte("journal-bytes"))

	rewritten, err := MaybeUploadJournal(ctx, st, entry, source, dest, false)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(rewritten.JournalFile())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "journal-bytes" {
		t.Fatalf("got %q", data)
	}

	// overwrite the local source to prove a second call is a no-op.
	writeFile(t, entry.JournalFile(), []byte("changed"))
	again, err := MaybeUploadJournal(ctx, st, entry, source, dest, false)
	if err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(again.JournalFile())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "journal-bytes" {
		t.Fatalf("destination was overwritten on a re-run: got %q", data)
	}
}

func TestMaybeDownloadJournalSkipsExistingLocal(t *testing.T) {
	ctx := context.Background()
	st := store.NewLocalStore()
	source := t.TempDir()
	dest := t.TempDir()

	entry := Entry{
		StartSQN: 1,
		BasePath: filepath.Join(source, "0", "journal", "journal_files", "1_uuid"),
		Owner:    etf.Pid{Node: etf.NewAtom("riak@self")},
		LastKey:  journal.Key{SQN: 1, Bucket: []byte("b"), ObjKey: []byte("k")},
	}
	writeFile(t, entry.JournalFile(), []byte("remote-bytes"))

	rewritten, err := MaybeDownloadJournal(ctx, st, entry, source, dest)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(rewritten.JournalFile())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "remote-bytes" {
		t.Fatalf("got %q", data)
	}

	writeFile(t, rewritten.JournalFile(), []byte("local-override"))
	again, err := MaybeDownloadJournal(ctx, st, entry, source, dest)
	if err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(again.JournalFile())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "local-override" {
		t.Fatalf("existing local journal was overwritten: got %q", data)
	}
}
