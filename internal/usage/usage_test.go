package usage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRecordAndStats(t *testing.T) {
	tr := NewTracker(t.TempDir())
	defer tr.Close()

	tr.RecordRequest("overpass", 1024)
	tr.RecordRequest("overpass", 2048)
	tr.RecordFailure("wikipedia")

	stats := tr.Stats()
	if stats["overpass"].Requests != 2 {
		t.Errorf("overpass requests = %d, want 2", stats["overpass"].Requests)
	}
	if stats["overpass"].BytesReceived != 3072 {
		t.Errorf("overpass bytes = %d, want 3072", stats["overpass"].BytesReceived)
	}
	if stats["wikipedia"].Failures != 1 || stats["wikipedia"].Requests != 1 {
		t.Errorf("wikipedia counters: %+v", stats["wikipedia"])
	}
	if stats["overpass"].LastRequest.IsZero() {
		t.Error("last request timestamp should be set")
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()

	tr := NewTracker(dir)
	tr.RecordRequest("donations", 512)
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, ".votewallet", "usage.json")); err != nil {
		t.Fatalf("usage file not written: %v", err)
	}

	reloaded := NewTracker(dir)
	defer reloaded.Close()
	stats := reloaded.Stats()
	if stats["donations"].Requests != 1 || stats["donations"].BytesReceived != 512 {
		t.Errorf("reloaded counters: %+v", stats["donations"])
	}
}

func TestCorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, ".votewallet")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "usage.json"), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTracker(dir)
	defer tr.Close()
	if len(tr.Stats()) != 0 {
		t.Error("corrupt file should yield empty counters")
	}
}

func TestSaveIsNoopWhenClean(t *testing.T) {
	dir := t.TempDir()
	tr := NewTracker(dir)

	if err := tr.Save(); err != nil {
		t.Fatalf("save on clean tracker: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".votewallet", "usage.json")); !os.IsNotExist(err) {
		t.Error("clean tracker should not write a file")
	}
}
