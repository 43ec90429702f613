package manifest

import (
	"context"
	"os"

	"github.com/yorkshiresteve/hotbackup-sync/cmn"
	"github.com/yorkshiresteve/hotbackup-sync/cmn/nlog"
	"github.com/yorkshiresteve/hotbackup-sync/hints"
	"github.com/yorkshiresteve/hotbackup-sync/store"
)

// MaybeUploadJournal uploads entry's journal (and, optionally, a freshly
// built hints CDB) from source to dest, unless the destination journal
// already exists (idempotent re-run). Returns the rewritten entry.
func MaybeUploadJournal(ctx context.Context, st store.Store, entry Entry, source, dest string, buildHints bool) (Entry, error) {
	rewritten, err := UpdateJournalFilename(entry, source, dest)
	if err != nil {
		return Entry{}, err
	}

	exists, err := st.Exists(ctx, rewritten.JournalFile())
	if err != nil {
		return Entry{}, err
	}
	if exists {
		nlog.Infof("journal already present, skipping upload: %s", rewritten.JournalFile())
		return rewritten, nil
	}

	localJournal := entry.JournalFile()
	if buildHints {
		localHints := entry.HintsFile()
		if err := hints.Build(localJournal, localHints); err != nil {
			return Entry{}, err
		}
		if err := st.UploadFile(ctx, rewritten.HintsFile(), localHints); err != nil {
			return Entry{}, err
		}
		if err := os.Remove(localHints); err != nil {
			return Entry{}, cmn.NewIOError("remove local hints file "+localHints, err)
		}
	}

	if err := st.UploadFile(ctx, rewritten.JournalFile(), localJournal); err != nil {
		return Entry{}, err
	}
	nlog.Infof("uploaded journal %s -> %s", localJournal, rewritten.JournalFile())
	return rewritten, nil
}

// MaybeDownloadJournal rewrites entry's path from source to dest and
// downloads the journal to its local destination, unless a local copy
// already exists — an existing local file is never overwritten.
func MaybeDownloadJournal(ctx context.Context, st store.Store, entry Entry, source, dest string) (Entry, error) {
	rewritten, err := UpdateJournalFilename(entry, source, dest)
	if err != nil {
		return Entry{}, err
	}

	localJournal := rewritten.JournalFile()
	exists, err := st.Exists(ctx, localJournal)
	if err != nil {
		return Entry{}, err
	}
	if exists {
		nlog.Infof("journal already present locally, skipping download: %s", localJournal)
		return rewritten, nil
	}

	if err := st.DownloadFile(ctx, entry.JournalFile(), localJournal); err != nil {
		return Entry{}, err
	}
	nlog.Infof("downloaded journal %s -> %s", entry.JournalFile(), localJournal)
	return rewritten, nil
}
