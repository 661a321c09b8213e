package autosave

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
	"github.com/reza-shahriari/VIAT/pkg/project"
)

func dirtyProject(t *testing.T, videoPath string) *project.Project {
	t.Helper()
	proj := project.New(videoPath)
	if err := proj.AddClass(annotation.ClassDefinition{Name: "car", Color: annotation.Color{R: 255, A: 255}}); err != nil {
		t.Fatal(err)
	}
	err := proj.Add(0, annotation.Annotation{
		Box:   annotation.Box{X: 10, Y: 10, Width: 50, Height: 50},
		Class: "car",
	})
	if err != nil {
		t.Fatal(err)
	}
	return proj
}

func TestTargetPrefersProjectFile(t *testing.T) {
	proj := project.New("/videos/run.mp4")
	m := New(proj, "/projects/run.json")
	if got := m.Target(); got != "/projects/run.json" {
		t.Errorf("Target = %q, want the explicit project file", got)
	}

	m.SetPath("")
	want := filepath.Join("/videos", "run"+RecoverySuffix)
	if got := m.Target(); got != want {
		t.Errorf("Target = %q, want %q", got, want)
	}
}

func TestTargetEmptyWithoutVideoOrPath(t *testing.T) {
	m := New(project.New(""), "")
	if got := m.Target(); got != "" {
		t.Errorf("Target = %q, want empty", got)
	}
}

func TestSaveNowWritesDirtyProject(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "work.json")

	proj := dirtyProject(t, "")
	m := New(proj, target)

	if err := m.SaveNow(); err != nil {
		t.Fatalf("SaveNow failed: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("autosave file not written: %v", err)
	}
	if m.LastSave().IsZero() {
		t.Error("LastSave not recorded")
	}
	if proj.Modified() {
		t.Error("project still dirty after save")
	}
}

func TestSaveNowSkipsCleanProject(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "work.json")

	proj := project.New("")
	m := New(proj, target)

	if err := m.SaveNow(); err != nil {
		t.Fatalf("SaveNow failed: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("clean project was written")
	}
	if !m.LastSave().IsZero() {
		t.Error("LastSave recorded for a skipped save")
	}
}

func TestSaveNowRespectsDisabled(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "work.json")

	proj := dirtyProject(t, "")
	m := New(proj, target)
	m.SetEnabled(false)

	if err := m.SaveNow(); err != nil {
		t.Fatalf("SaveNow failed: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("disabled manager still wrote the project")
	}
}

func TestSetIntervalFloor(t *testing.T) {
	m := New(project.New(""), "")
	m.SetInterval(100 * time.Millisecond)
	m.mu.Lock()
	got := m.interval
	m.mu.Unlock()
	if got != time.Second {
		t.Errorf("interval = %v, want floored to 1s", got)
	}
}

func TestFindRecovery(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "drive.mp4")

	if _, ok := FindRecovery(video); ok {
		t.Error("recovery reported before any autosave exists")
	}
	if _, ok := FindRecovery(""); ok {
		t.Error("recovery reported for empty video path")
	}

	recovery := filepath.Join(dir, "drive"+RecoverySuffix)
	if err := os.WriteFile(recovery, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	got, ok := FindRecovery(video)
	if !ok || got != recovery {
		t.Errorf("FindRecovery = %q, %v; want %q, true", got, ok, recovery)
	}
}

func TestIsRecoveryFile(t *testing.T) {
	if !IsRecoveryFile("/tmp/drive_autosave.json") {
		t.Error("autosave file not recognized")
	}
	if IsRecoveryFile("/tmp/drive.json") {
		t.Error("regular project file misclassified")
	}
}
