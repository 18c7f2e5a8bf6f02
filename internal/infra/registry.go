package infra

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lorenzoconte/exizt/blockd/internal/domain"
)

const registryFileName = "listener.json"

// FileListenerRegistry implements domain.ListenerRegistry using a JSON file.
// The listener writes its PID, heartbeat and display state; the CLI reads
// them for the status command.
type FileListenerRegistry struct {
	path  string
	probe domain.ProcessProbe
}

// NewFileListenerRegistry creates a file-based listener registry in dataDir.
func NewFileListenerRegistry(dataDir string, probe domain.ProcessProbe) *FileListenerRegistry {
	return &FileListenerRegistry{
		path:  filepath.Join(dataDir, registryFileName),
		probe: probe,
	}
}

// Register saves the listener's state, replacing any previous record.
func (r *FileListenerRegistry) Register(state domain.ListenerState) error {
	state.Version = 1
	if state.LastHeartbeat == 0 {
		state.LastHeartbeat = time.Now().Unix()
	}
	return r.atomicWrite(&state)
}

// UpdateHeartbeat refreshes the liveness timestamp.
func (r *FileListenerRegistry) UpdateHeartbeat() error {
	state, err := r.Get()
	if err != nil {
		return err
	}
	if state == nil {
		return errors.New("listener not registered")
	}

	state.LastHeartbeat = time.Now().Unix()
	return r.atomicWrite(state)
}

// UpdateDisplayState stores the periodically recomputed display fields.
// Races with readers are benign: a one-interval-stale value is tolerable.
func (r *FileListenerRegistry) UpdateDisplayState(blockingActive bool, remainingMinutes int) error {
	state, err := r.Get()
	if err != nil {
		return err
	}
	if state == nil {
		return errors.New("listener not registered")
	}

	state.BlockingActive = blockingActive
	state.RemainingMinutes = remainingMinutes
	state.LastHeartbeat = time.Now().Unix()
	return r.atomicWrite(state)
}

// Get returns the persisted state, or nil if never registered.
func (r *FileListenerRegistry) Get() (*domain.ListenerState, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var state domain.ListenerState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// IsListenerAlive reports whether a registered listener process is running.
func (r *FileListenerRegistry) IsListenerAlive() (bool, error) {
	state, err := r.Get()
	if err != nil || state == nil {
		return false, err
	}
	return r.probe.IsRunning(state.PID), nil
}

// Clear removes the registry file.
func (r *FileListenerRegistry) Clear() error {
	err := os.Remove(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// atomicWrite writes the state to file atomically (write + rename).
func (r *FileListenerRegistry) atomicWrite(state *domain.ListenerState) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	// Write to temp file first (unique per process to avoid race)
	tmpPath := fmt.Sprintf("%s.%d.tmp", r.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure FileListenerRegistry implements domain.ListenerRegistry.
var _ domain.ListenerRegistry = (*FileListenerRegistry)(nil)
