// Package viat provides the core of a video and image annotation tool.
//
// It combines a frame-indexed annotation model with project persistence,
// interchange with the standard detection formats, keyframe interpolation,
// single-object tracking, and model-assisted annotation.
//
// Basic usage:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//
//		"github.com/reza-shahriari/VIAT"
//		"github.com/reza-shahriari/VIAT/pkg/annotation"
//	)
//
//	func main() {
//		// Start a session for a video
//		session, err := viat.NewSession("traffic.mp4")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		// Define a class and annotate frame 0
//		session.Project.AddClass(annotation.ClassDefinition{
//			Name:  "car",
//			Color: annotation.Color{R: 255, A: 255},
//		})
//		session.Project.Add(0, annotation.Annotation{
//			Box:   annotation.Box{X: 10, Y: 20, Width: 120, Height: 80},
//			Class: "car",
//		})
//
//		// Save the project
//		if err := session.Save("traffic.json"); err != nil {
//			log.Fatal(err)
//		}
//
//		fmt.Printf("%d annotations saved\n", session.Project.AnnotationCount())
//	}
//
// The package consists of these main components:
//
// 1. Annotation (pkg/annotation): Boxes, classes, attribute schemas
// 2. Project (pkg/project): Persistence, history, recovery
// 3. Export (pkg/export): COCO, YOLO, Pascal VOC and Raya interchange
// 4. Dataset (pkg/dataset): Whole-dataset import and export
// 5. Interpolate (pkg/interpolate): Keyframe interpolation
// 6. Track (pkg/track): Single-object Kalman tracking
// 7. Assist (pkg/assist): Vision model annotation proposals
package viat

import (
	"fmt"
	"time"

	"github.com/reza-shahriari/VIAT/internal/autosave"
	"github.com/reza-shahriari/VIAT/internal/config"
	"github.com/reza-shahriari/VIAT/pkg/export"
	"github.com/reza-shahriari/VIAT/pkg/interpolate"
	"github.com/reza-shahriari/VIAT/pkg/media"
	"github.com/reza-shahriari/VIAT/pkg/project"
)

// Version of the annotation library
const Version = "1.0.0"

// Session ties a project to its autosave and interpolation managers.
type Session struct {
	Project     *Project
	Config      *config.Config
	Autosave    *autosave.Manager
	Interpolate *interpolate.Manager

	path string
}

// Project is re-exported so simple callers only import this package.
type Project = project.Project

// NewSession starts a fresh session for a video or image sequence.
func NewSession(videoPath string) (*Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	proj := project.New(videoPath)
	return newSession(proj, "", cfg), nil
}

// OpenSession loads an existing project file into a session.
func OpenSession(projectFile string) (*Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	proj, err := project.Load(projectFile)
	if err != nil {
		return nil, err
	}
	return newSession(proj, projectFile, cfg), nil
}

func newSession(proj *project.Project, path string, cfg *config.Config) *Session {
	s := &Session{
		Project:     proj,
		Config:      cfg,
		Autosave:    autosave.New(proj, path),
		Interpolate: interpolate.NewManager(cfg.Interpolate.Interval),
		path:        path,
	}
	s.Autosave.SetEnabled(cfg.Autosave.Enabled)
	s.Autosave.SetInterval(time.Duration(cfg.Autosave.IntervalMS) * time.Millisecond)
	if cfg.Interpolate.Enabled {
		s.Interpolate.SetActive(true)
	}
	return s
}

// Path returns the project file this session was opened from or last saved
// to, empty for unsaved sessions.
func (s *Session) Path() string { return s.path }

// Save writes the project and makes filename the autosave target.
func (s *Session) Save(filename string) error {
	if err := s.Project.Save(filename); err != nil {
		return err
	}
	s.path = filename
	s.Autosave.SetPath(filename)
	if hist, err := project.DefaultHistory(); err == nil {
		hist.Touch(filename)
	}
	return nil
}

// Recovery reports the autosave file for this session's video, if one exists
// from an earlier crash.
func (s *Session) Recovery() (string, bool) {
	return autosave.FindRecovery(s.Project.VideoPath)
}

// ExportFrame writes one frame's annotations in the given format, reading the
// image dimensions from imagePath.
func (s *Session) ExportFrame(frame int, imagePath, outFile string, format export.Format) error {
	width, height, err := media.Dimensions(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image dimensions: %w", err)
	}
	return export.Annotations(outFile, s.Project.Frames[frame], width, height, format)
}

// ExportRaya writes every annotated frame in the Raya per-frame text format.
func (s *Session) ExportRaya(outFile string) error {
	return export.ExportRaya(outFile, s.Project.Frames)
}
