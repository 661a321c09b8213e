// Package autosave periodically writes a modified project back to disk so a
// crash loses at most one interval of work.
package autosave

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/reza-shahriari/VIAT/internal/utils"
	"github.com/reza-shahriari/VIAT/pkg/project"
)

// DefaultInterval matches the 5 second cadence the config defaults to.
const DefaultInterval = 5000 * time.Millisecond

// RecoverySuffix names autosave files written next to the video when the
// project has never been saved explicitly.
const RecoverySuffix = "_autosave.json"

// Manager saves a project on a timer. All methods are safe for concurrent
// use with a running Run loop.
type Manager struct {
	mu       sync.Mutex
	proj     *project.Project
	path     string
	enabled  bool
	interval time.Duration
	lastSave time.Time
	wake     chan struct{}
}

// New builds a manager for the given project. path is the explicit project
// file; leave it empty to autosave next to the project's video instead.
func New(proj *project.Project, path string) *Manager {
	return &Manager{
		proj:     proj,
		path:     path,
		enabled:  true,
		interval: DefaultInterval,
		wake:     make(chan struct{}, 1),
	}
}

// SetPath updates the explicit project file, normally after a manual save.
func (m *Manager) SetPath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.path = path
}

// SetInterval changes the save cadence. The running loop picks it up on its
// next tick.
func (m *Manager) SetInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < time.Second {
		d = time.Second
	}
	m.interval = d
	m.poke()
}

// SetEnabled turns autosaving on or off without stopping the loop.
func (m *Manager) SetEnabled(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = on
}

// LastSave reports when the manager last wrote the project, zero if never.
func (m *Manager) LastSave() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSave
}

// Target resolves where the next autosave goes: the project file when one is
// set, otherwise an autosave file next to the video.
func (m *Manager) Target() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target()
}

func (m *Manager) target() string {
	if m.path != "" {
		return m.path
	}
	if m.proj.VideoPath == "" {
		return ""
	}
	dir := filepath.Dir(m.proj.VideoPath)
	return filepath.Join(dir, utils.BaseName(m.proj.VideoPath)+RecoverySuffix)
}

// Trigger requests an immediate save from the running loop.
func (m *Manager) Trigger() {
	m.poke()
}

func (m *Manager) poke() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Run saves the project on the configured interval until ctx is cancelled.
// Clean projects and projects with no resolvable target are skipped.
func (m *Manager) Run(ctx context.Context) error {
	for {
		m.mu.Lock()
		interval := m.interval
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		case <-m.wake:
		}

		if err := m.SaveNow(); err != nil {
			log.Printf("autosave failed: %v", err)
		}
	}
}

// SaveNow writes the project immediately if it is dirty and a target exists.
func (m *Manager) SaveNow() error {
	m.mu.Lock()
	enabled := m.enabled
	target := m.target()
	m.mu.Unlock()

	if !enabled || target == "" || !m.proj.Modified() {
		return nil
	}
	if err := m.proj.Save(target); err != nil {
		return fmt.Errorf("failed to autosave to %s: %w", filepath.Base(target), err)
	}

	m.mu.Lock()
	m.lastSave = time.Now()
	m.mu.Unlock()
	return nil
}

// FindRecovery returns the autosave file for a video if one exists, so a
// session can offer to restore unsaved work.
func FindRecovery(videoPath string) (string, bool) {
	if videoPath == "" {
		return "", false
	}
	candidate := filepath.Join(filepath.Dir(videoPath), utils.BaseName(videoPath)+RecoverySuffix)
	return candidate, utils.FileExists(candidate)
}

// IsRecoveryFile reports whether a path looks like an autosave file.
func IsRecoveryFile(path string) bool {
	return strings.HasSuffix(filepath.Base(path), RecoverySuffix)
}
