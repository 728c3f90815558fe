package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"rfs"
)

func TestSaveThenLoadRoundTrips(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	stat := rfs.FileStat{Name: "a.txt", Size: 42, ETag: "abc"}

	if err := m.Save("snap1", stat); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := m.Load("snap1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != stat.Name || got.Size != stat.Size || got.ETag != stat.ETag {
		t.Errorf("Load() = %+v, want %+v", got, stat)
	}
}

func TestSaveBacksUpPriorVersion(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := m.Save("snap1", rfs.FileStat{Name: "v1"}); err != nil {
		t.Fatalf("Save v1: %v", err)
	}
	if err := m.Save("snap1", rfs.FileStat{Name: "v2"}); err != nil {
		t.Fatalf("Save v2: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, ".rfs-snapshot-backups"))
	if err != nil {
		t.Fatalf("ReadDir backups: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one backup after the second save, got %d", len(entries))
	}

	got, err := m.Load("snap1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "v2" {
		t.Errorf("Load().Name = %q, want v2", got.Name)
	}
}

func TestCleanupOldBackupsKeepsNewestFive(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	for i := 0; i < 7; i++ {
		if err := m.Save("snap1", rfs.FileStat{Size: int64(i)}); err != nil {
			t.Fatalf("Save #%d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(dir, ".rfs-snapshot-backups"))
	if err != nil {
		t.Fatalf("ReadDir backups: %v", err)
	}
	if len(entries) > m.backupCount {
		t.Errorf("backup count = %d, want at most %d", len(entries), m.backupCount)
	}
}

func TestLoadMissingSnapshotErrors(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m.Load("nope"); err == nil {
		t.Fatal("expected an error loading a snapshot that was never saved")
	}
}
