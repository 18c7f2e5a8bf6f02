// Package infra implements infrastructure concerns (storage, bridge, process).
package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
)

const policyFileName = "policy.json"

// policyRecord is the persisted key/value layout. blockedApps is a
// comma-joined string and appGroups a JSON array, matching the preference
// layout the mobile settings surface writes.
type policyRecord struct {
	Version             int               `json:"version"`
	BlockingActive      bool              `json:"blockingActive"`
	FocusModeActive     bool              `json:"focusModeActive"`
	BlockedApps         string            `json:"blockedApps"`
	FocusModeApps       string            `json:"focusModeApps"`
	AppGroups           []domain.AppGroup `json:"appGroups"`
	ContentBlockEnabled bool              `json:"contentBlockEnabled"`
}

// FilePolicyStore implements domain.PolicyStore on a JSON preference file.
// Writes go through a file lock and an atomic rename, so a concurrent
// reader observes either the old or the new value, never a torn one.
//
// The parsed snapshot is cached in memory and re-parsed only when the file
// changes, never per decision. Settings writes come from a separate CLI
// process, so Snapshot probes the file's mtime/size to spot them.
type FilePolicyStore struct {
	path string

	mu       sync.RWMutex
	cached   domain.PolicyState
	fileMod  time.Time
	fileSize int64
}

// NewFilePolicyStore opens (or initializes) the policy store in dataDir.
// A missing or unreadable file yields the documented defaults.
func NewFilePolicyStore(dataDir string) (*FilePolicyStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FilePolicyStore{path: filepath.Join(dataDir, policyFileName)}
	s.mu.Lock()
	s.reload()
	s.mu.Unlock()
	return s, nil
}

// Snapshot returns the current policy state. Never fails. The cached parse
// is reused until the policy file changes on disk.
func (s *FilePolicyStore) Snapshot() domain.PolicyState {
	s.mu.RLock()
	if !s.fileChanged() {
		defer s.mu.RUnlock()
		return s.cached
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fileChanged() {
		s.reload()
	}
	return s.cached
}

// fileChanged reports whether the policy file on disk differs from the
// cached parse. Caller holds at least the read lock.
func (s *FilePolicyStore) fileChanged() bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return !s.fileMod.IsZero() || s.fileSize != 0
	}
	return !info.ModTime().Equal(s.fileMod) || info.Size() != s.fileSize
}

// reload re-reads and re-parses the policy file. The stat is taken before
// the read: a write landing in between re-triggers a reload on the next
// Snapshot instead of being missed. Caller holds the write lock.
func (s *FilePolicyStore) reload() {
	info, err := os.Stat(s.path)
	if err != nil {
		s.fileMod, s.fileSize = time.Time{}, 0
	} else {
		s.fileMod, s.fileSize = info.ModTime(), info.Size()
	}
	s.cached = parseRecord(s.readRecord())
}

// SetBlockedPackages persists the deny-list.
func (s *FilePolicyStore) SetBlockedPackages(pkgs []string) error {
	return s.update(func(rec *policyRecord) {
		rec.BlockedApps = strings.Join(pkgs, ",")
	})
}

// SetBlockingActive persists the deny-list master switch.
func (s *FilePolicyStore) SetBlockingActive(active bool) error {
	return s.update(func(rec *policyRecord) {
		rec.BlockingActive = active
	})
}

// SetFocusModeActive persists the focus-mode switch.
func (s *FilePolicyStore) SetFocusModeActive(active bool) error {
	return s.update(func(rec *policyRecord) {
		rec.FocusModeActive = active
	})
}

// SetFocusModeApps persists the focus-mode app set.
func (s *FilePolicyStore) SetFocusModeApps(pkgs []string) error {
	return s.update(func(rec *policyRecord) {
		rec.FocusModeApps = strings.Join(pkgs, ",")
	})
}

// SetAppGroups persists the ordered group list.
func (s *FilePolicyStore) SetAppGroups(groups []domain.AppGroup) error {
	return s.update(func(rec *policyRecord) {
		rec.AppGroups = groups
	})
}

// SetContentBlockEnabled persists the content-engine switch.
func (s *FilePolicyStore) SetContentBlockEnabled(enabled bool) error {
	return s.update(func(rec *policyRecord) {
		rec.ContentBlockEnabled = enabled
	})
}

// update applies one field mutation under the file lock and refreshes the
// in-memory snapshot. Each mutation touches exactly one field; there are no
// multi-field transactions.
func (s *FilePolicyStore) update(mutate func(*policyRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// File lock guards against a second writer process (settings UI).
	lockPath := s.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN) }()

	rec := s.readRecord()
	mutate(&rec)
	rec.Version = 1

	if err := s.atomicWrite(rec); err != nil {
		return err
	}

	s.reload()
	return nil
}

// readRecord loads the persisted record; absence or corruption yields the
// zero record (reads fail open to defaults).
func (s *FilePolicyStore) readRecord() policyRecord {
	var rec policyRecord
	data, err := os.ReadFile(s.path)
	if err != nil {
		return rec
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return policyRecord{}
	}
	return rec
}

// atomicWrite writes the record to file atomically (write + rename).
func (s *FilePolicyStore) atomicWrite(rec policyRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	// Write to temp file first (unique per process to avoid race)
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// parseRecord converts the persisted layout into the typed in-memory state.
func parseRecord(rec policyRecord) domain.PolicyState {
	return domain.PolicyState{
		BlockedPackages:     splitPackages(rec.BlockedApps),
		BlockingActive:      rec.BlockingActive,
		FocusModeActive:     rec.FocusModeActive,
		FocusModeApps:       splitPackages(rec.FocusModeApps),
		AppGroups:           rec.AppGroups,
		ContentBlockEnabled: rec.ContentBlockEnabled,
	}
}

func splitPackages(joined string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, pkg := range strings.Split(joined, ",") {
		if pkg = strings.TrimSpace(pkg); pkg != "" {
			set[pkg] = struct{}{}
		}
	}
	return set
}

// Ensure FilePolicyStore implements domain.PolicyStore.
var _ domain.PolicyStore = (*FilePolicyStore)(nil)
