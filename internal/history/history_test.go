package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "history.json")
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	payload := []Entry{
		{Query: "hello", Translation: "你好", Provider: "Ollama (m)", CreatedAt: at},
		{Query: "world", Translation: "世界", Pinned: true, CreatedAt: at.Add(-time.Minute)},
	}
	if err := Save(path, payload); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Translation != "你好" || !got[1].Pinned || !got[0].CreatedAt.Equal(at) {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(path)
	if err != nil || got != nil {
		t.Fatalf("expected empty history, got %v, %v", got, err)
	}
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store, err := Open(filepath.Join(t.TempDir(), "none.json"), 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(store.Entries()) != 0 {
		t.Fatalf("expected empty store")
	}
	if _, ok := store.Latest(); ok {
		t.Fatal("expected no latest entry")
	}
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path, 0); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestAddDedupesKeepingNewestAndPin(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")
	store, err := Open(path, 10)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mustAdd(t, store, Entry{Query: "Apple", Translation: "old", Pinned: true, CreatedAt: base})
	mustAdd(t, store, Entry{Query: "pear", Translation: "梨", CreatedAt: base.Add(time.Minute)})
	mustAdd(t, store, Entry{Query: "  apple ", Translation: "苹果", CreatedAt: base.Add(2 * time.Minute)})

	entries := store.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].Query != "apple" || entries[0].Translation != "苹果" || !entries[0].Pinned {
		t.Fatalf("expected newest apple keeping pin first, got %+v", entries[0])
	}

	reopened, err := Open(path, 10)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Entries(); len(got) != 2 || got[0].Translation != "苹果" {
		t.Fatalf("expected persisted history, got %+v", got)
	}
}

func TestAddCapsUnpinnedEntries(t *testing.T) {
	t.Parallel()

	store, err := Open("", 2)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	mustAdd(t, store, Entry{Query: "keep", Pinned: true})
	mustAdd(t, store, Entry{Query: "a"})
	mustAdd(t, store, Entry{Query: "b"})
	mustAdd(t, store, Entry{Query: "c"})

	entries := store.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected cap of 2, got %+v", entries)
	}
	if entries[0].Query != "c" || entries[1].Query != "keep" {
		t.Fatalf("expected newest and pinned entries kept, got %+v", entries)
	}
}

func TestAddIgnoresBlankQuery(t *testing.T) {
	t.Parallel()

	store, _ := Open("", 0)
	mustAdd(t, store, Entry{Query: "   "})
	if len(store.Entries()) != 0 {
		t.Fatal("blank query should not be recorded")
	}
}

func TestSetPinnedAndRemove(t *testing.T) {
	t.Parallel()

	store, _ := Open(filepath.Join(t.TempDir(), "h.json"), 0)
	mustAdd(t, store, Entry{Query: "word"})
	if err := store.SetPinned("WORD", true); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if latest, _ := store.Latest(); !latest.Pinned {
		t.Fatal("expected pinned entry")
	}
	if err := store.Remove("word"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(store.Entries()) != 0 {
		t.Fatal("expected entry removed")
	}
	if err := store.SetPinned("missing", true); err != nil {
		t.Fatalf("pin missing: %v", err)
	}
}

func TestOpenDedupesLegacyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := Save(path, []Entry{
		{Query: "dup", Translation: "first", Pinned: true, CreatedAt: base},
		{Query: "other", CreatedAt: base.Add(time.Hour)},
		{Query: "Dup", Translation: "second", CreatedAt: base.Add(2 * time.Hour)},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	store, err := Open(path, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	entries := store.Entries()
	if len(entries) != 2 || entries[0].Translation != "second" || !entries[0].Pinned {
		t.Fatalf("unexpected deduped entries: %+v", entries)
	}
}

func mustAdd(t *testing.T, s *Store, e Entry) {
	t.Helper()
	if err := s.Add(e); err != nil {
		t.Fatalf("add %q: %v", e.Query, err)
	}
}
