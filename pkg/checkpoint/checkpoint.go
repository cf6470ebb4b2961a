package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"time"

	"storereviews/pkg/logger"
	"storereviews/pkg/storage"
)

// FileName is the logical name of the run checkpoint inside the output
// directory
const FileName = ".storereviews-checkpoint"

// Checkpoint records which apps of a run have been fully scraped and written
// to their own file
type Checkpoint struct {
	Store     string    `json:"store"`
	Apps      []string  `json:"apps"`
	Completed []string  `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// Manager handles checkpoint operations
type Manager struct {
	store  *storage.Manager
	logger logger.Logger
}

// NewManager creates a checkpoint manager writing next to the run output
func NewManager(store *storage.Manager, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{store: store, logger: log}
}

// Path returns the checkpoint file path
func (m *Manager) Path() string {
	return m.store.Path(FileName)
}

// Create starts a fresh checkpoint for the given store and app list,
// replacing any previous one
func (m *Manager) Create(store string, apps []string) (*Checkpoint, error) {
	now := time.Now()
	cp := &Checkpoint{
		Store:     store,
		Apps:      append([]string(nil), apps...),
		Completed: []string{},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}

	if err := m.Save(cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"store": store,
		"apps":  len(apps),
		"path":  m.Path(),
	})
	return cp, nil
}

// Load loads an existing checkpoint. It returns nil, nil when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	if !m.store.Exists(FileName) {
		return nil, nil
	}

	var cp Checkpoint
	if err := m.store.ReadJSON(FileName, &cp); err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"store":      cp.Store,
		"completed":  len(cp.Completed),
		"apps":       len(cp.Apps),
		"updated_at": cp.UpdatedAt,
	})
	return &cp, nil
}

// Save writes the checkpoint atomically
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()
	if err := m.store.WriteJSON(FileName, cp); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"completed": len(cp.Completed),
	})
	return nil
}

// MarkCompleted records a finished app and saves the checkpoint
func (m *Manager) MarkCompleted(cp *Checkpoint, app string) error {
	if !cp.IsCompleted(app) {
		cp.Completed = append(cp.Completed, app)
	}
	return m.Save(cp)
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.logger.Debug("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	return m.store.Exists(FileName)
}

// IsCompleted reports whether app was already finished in this run
func (cp *Checkpoint) IsCompleted(app string) bool {
	for _, done := range cp.Completed {
		if done == app {
			return true
		}
	}
	return false
}

// Matches reports whether the checkpoint belongs to a run over the same store
// and the same app list in the same order
func (cp *Checkpoint) Matches(store string, apps []string) bool {
	if cp.Store != store || len(cp.Apps) != len(apps) {
		return false
	}
	for i := range apps {
		if cp.Apps[i] != apps[i] {
			return false
		}
	}
	return true
}
