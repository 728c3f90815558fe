// Package snapshot persists a resolved stat tree to disk, so a caller can
// diff two points in time for the same resource. The backup rotation and
// write-then-verify mechanics (the file is overwritten in place, not
// through a temporary file and rename) are adapted from the teacher's
// internal/state.Manager, generalized from one hard-coded virtual-path
// state document to an arbitrary named snapshot of any rfs.FileStat tree.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"rfs"
	"rfs/internal/logging"
)

var logger = logging.GetLogger().WithPrefix("snapshot")

// Manager saves and loads FileStat snapshots under a root directory,
// keeping a rotating set of timestamped backups of whatever it last
// overwrote.
type Manager struct {
	dir         string
	backupDir   string
	backupCount int
	mu          sync.Mutex
}

// NewManager creates a Manager rooted at dir, creating dir and its
// backup subdirectory if they don't already exist.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("rfs: creating snapshot directory %s: %w", dir, err)
	}
	backupDir := filepath.Join(dir, ".rfs-snapshot-backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("rfs: creating snapshot backup directory %s: %w", backupDir, err)
	}
	return &Manager{dir: dir, backupDir: backupDir, backupCount: 5}, nil
}

func (m *Manager) pathFor(name string) string {
	return filepath.Join(m.dir, name+".json")
}

// Save writes stat as name's snapshot, backing up whatever name held
// before the overwrite.
func (m *Manager) Save(name string, stat rfs.FileStat) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.pathFor(name)
	if err := m.createBackup(name, path); err != nil {
		logger.Warn("Failed to back up snapshot %q: %v", name, err)
	}

	data, err := json.MarshalIndent(stat, "", "  ")
	if err != nil {
		return fmt.Errorf("rfs: marshaling snapshot %q: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("rfs: writing snapshot %q: %w", name, err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("rfs: verifying snapshot %q: %w", name, err)
	}
	if len(written) == 0 {
		return fmt.Errorf("rfs: snapshot %q is empty after write", name)
	}
	logger.Debug("Saved snapshot %q (%d bytes)", name, len(written))
	return nil
}

// Load reads name's most recently saved snapshot.
func (m *Manager) Load(name string) (rfs.FileStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.pathFor(name))
	if err != nil {
		return rfs.FileStat{}, fmt.Errorf("rfs: reading snapshot %q: %w", name, err)
	}
	var stat rfs.FileStat
	if err := json.Unmarshal(data, &stat); err != nil {
		return rfs.FileStat{}, fmt.Errorf("rfs: parsing snapshot %q: %w", name, err)
	}
	return stat, nil
}

func (m *Manager) createBackup(name, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	timestamp := time.Now().Format("20060102-150405")
	backupPath := filepath.Join(m.backupDir, fmt.Sprintf("%s-%s.json", name, timestamp))
	if err := os.WriteFile(backupPath, data, 0o600); err != nil {
		return fmt.Errorf("rfs: writing snapshot backup: %w", err)
	}
	return m.cleanupOldBackups(name)
}

func (m *Manager) cleanupOldBackups(name string) error {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		return err
	}

	type backup struct {
		path    string
		modTime time.Time
	}

	prefix := name + "-"
	var backups []backup
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if len(entry.Name()) < len(prefix) || entry.Name()[:len(prefix)] != prefix {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backup{path: filepath.Join(m.backupDir, entry.Name()), modTime: info.ModTime()})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].modTime.After(backups[j].modTime) })

	for i := m.backupCount; i < len(backups); i++ {
		if err := os.Remove(backups[i].path); err != nil {
			return fmt.Errorf("rfs: removing old snapshot backup %s: %w", backups[i].path, err)
		}
	}
	return nil
}
