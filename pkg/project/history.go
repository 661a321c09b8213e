package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MaxRecentProjects caps the recent-projects list.
const MaxRecentProjects = 10

// History tracks recently opened projects and the last application state
// in a config directory.
type History struct {
	Dir string
}

// DefaultHistory stores history under the user config directory, in the
// same folder the desktop tool uses.
func DefaultHistory() (History, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return History{}, fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return History{Dir: filepath.Join(base, "VideoAnnotationTool")}, nil
}

func (h History) recentFile() string { return filepath.Join(h.Dir, "recent_projects.json") }
func (h History) stateFile() string  { return filepath.Join(h.Dir, "last_state.json") }

// Recent returns the recent project paths, most recent first. Paths that no
// longer exist are filtered out.
func (h History) Recent() []string {
	data, err := os.ReadFile(h.recentFile())
	if err != nil {
		return nil
	}
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil
	}
	out := paths[:0]
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Touch moves a project path to the top of the recent list.
func (h History) Touch(projectFile string) error {
	if err := os.MkdirAll(h.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var paths []string
	if data, err := os.ReadFile(h.recentFile()); err == nil {
		_ = json.Unmarshal(data, &paths)
	}

	out := make([]string, 0, len(paths)+1)
	out = append(out, projectFile)
	for _, p := range paths {
		if p != projectFile {
			out = append(out, p)
		}
	}
	if len(out) > MaxRecentProjects {
		out = out[:MaxRecentProjects]
	}

	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(h.recentFile(), data, 0644)
}

// Last returns the most recently opened project, or "" when none exists.
func (h History) Last() string {
	recent := h.Recent()
	if len(recent) == 0 {
		return ""
	}
	return recent[0]
}

// SaveState persists an application state snapshot (open media, frame
// position, window placement) for the next session.
func (h History) SaveState(state map[string]any) error {
	if err := os.MkdirAll(h.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(h.stateFile(), data, 0644)
}

// LoadState returns the saved state snapshot, or nil when none exists.
func (h History) LoadState() map[string]any {
	data, err := os.ReadFile(h.stateFile())
	if err != nil {
		return nil
	}
	var state map[string]any
	if err := json.Unmarshal(data, &state); err != nil {
		return nil
	}
	return state
}
