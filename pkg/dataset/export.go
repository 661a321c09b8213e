package dataset

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"

	"github.com/reza-shahriari/VIAT/internal/utils"
	"github.com/reza-shahriari/VIAT/pkg/annotation"
	"github.com/reza-shahriari/VIAT/pkg/export"
	"github.com/reza-shahriari/VIAT/pkg/media"
)

// Layout selects the folder structure of an exported dataset.
type Layout string

const (
	// LayoutFlat writes everything under one folder.
	LayoutFlat Layout = "flat"
	// LayoutSplit writes train/val/test subsets.
	LayoutSplit Layout = "split"
	// LayoutParallel writes separate images and labels folders.
	LayoutParallel Layout = "parallel"
)

// splitSeed makes train/val/test assignment reproducible across runs.
const splitSeed = 42

// SplitRatios are train/val/test percentages. They must sum to 100.
type SplitRatios struct {
	Train float64
	Val   float64
	Test  float64
}

// DefaultSplit is the usual 80/10/10 division.
var DefaultSplit = SplitRatios{Train: 80, Val: 10, Test: 10}

func (s SplitRatios) validate() error {
	sum := s.Train + s.Val + s.Test
	if sum < 99.99 || sum > 100.01 {
		return fmt.Errorf("split percentages must sum to 100, got %.1f", sum)
	}
	return nil
}

// ExportOptions configures a dataset export.
type ExportOptions struct {
	Format     export.Format
	Layout     Layout
	OutputDir  string
	CopyImages bool
	// Split is used when Layout is LayoutSplit. The zero value means
	// DefaultSplit.
	Split    SplitRatios
	Progress Progress
}

// Export writes a dataset to disk in the configured format and layout.
func Export(ds *Dataset, opts ExportOptions) error {
	if opts.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if _, ok := export.Formats[opts.Format]; !ok {
		return fmt.Errorf("unsupported export format: %s", opts.Format)
	}

	switch opts.Layout {
	case LayoutFlat, LayoutParallel:
		return exportSubset(ds.Images, ds.Frames, ds.classNames(), "", opts)
	case LayoutSplit:
		return exportSplit(ds, opts)
	}
	return fmt.Errorf("unsupported layout: %s", opts.Layout)
}

func exportSplit(ds *Dataset, opts ExportOptions) error {
	ratios := opts.Split
	if ratios == (SplitRatios{}) {
		ratios = DefaultSplit
	}
	if err := ratios.validate(); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(splitSeed))
	indices := rng.Perm(len(ds.Images))

	trainSize := int(float64(len(indices)) * ratios.Train / 100)
	valSize := int(float64(len(indices)) * ratios.Val / 100)

	splits := []struct {
		name    string
		indices []int
	}{
		{"train", indices[:trainSize]},
		{"val", indices[trainSize : trainSize+valSize]},
		{"test", indices[trainSize+valSize:]},
	}

	classes := ds.classNames()
	for _, split := range splits {
		report(opts.Progress, 0, len(split.indices), fmt.Sprintf("processing %s split", split.name))

		images := make([]string, 0, len(split.indices))
		frames := map[int][]annotation.Annotation{}
		for i, idx := range split.indices {
			images = append(images, ds.Images[idx])
			if anns, ok := ds.Frames[idx]; ok {
				frames[i] = anns
			}
		}
		if err := exportSubset(images, frames, classes, split.name, opts); err != nil {
			return fmt.Errorf("failed to export %s split: %w", split.name, err)
		}
	}
	return nil
}

// exportSubset writes one folder's worth of images and annotations. split is
// empty for flat and parallel layouts.
func exportSubset(images []string, frames map[int][]annotation.Annotation, classes []string, split string, opts ExportOptions) error {
	outDir := opts.OutputDir
	if split != "" {
		outDir = filepath.Join(outDir, split)
	}
	if err := utils.EnsureDir(outDir); err != nil {
		return err
	}

	switch opts.Format {
	case export.FormatCOCO:
		name := "annotations.json"
		if split != "" {
			name = split + "_annotations.json"
		}
		cocoImages := make([]export.COCOImage, len(images))
		for i, path := range images {
			width, height, err := media.Dimensions(path)
			if err != nil {
				// Unreadable image, keep the entry with nominal size.
				width, height = 640, 480
			}
			cocoImages[i] = export.COCOImage{
				ID:       i + 1,
				Width:    width,
				Height:   height,
				FileName: filepath.Base(path),
			}
		}
		if err := export.ExportCOCODataset(filepath.Join(outDir, name), cocoImages, frames); err != nil {
			return err
		}

	case export.FormatYOLO:
		labelsDir := filepath.Join(outDir, "labels")
		if err := utils.EnsureDir(labelsDir); err != nil {
			return err
		}
		if err := export.WriteYOLOClasses(filepath.Join(outDir, "classes.txt"), classes); err != nil {
			return err
		}
		for i, path := range images {
			anns, ok := frames[i]
			if !ok {
				continue
			}
			width, height, err := media.Dimensions(path)
			if err != nil {
				continue
			}
			labelFile := filepath.Join(labelsDir, utils.BaseName(path)+".txt")
			if err := export.WriteYOLOLabels(labelFile, anns, classes, width, height); err != nil {
				return err
			}
		}

	case export.FormatVOC:
		annotationsDir := filepath.Join(outDir, "annotations")
		if err := utils.EnsureDir(annotationsDir); err != nil {
			return err
		}
		for i, path := range images {
			anns, ok := frames[i]
			if !ok {
				continue
			}
			width, height, err := media.Dimensions(path)
			if err != nil {
				continue
			}
			xmlFile := filepath.Join(annotationsDir, utils.BaseName(path)+".xml")
			if err := export.ExportVOC(xmlFile, anns, width, height); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("format %s cannot be exported as a dataset", opts.Format)
	}

	if opts.CopyImages {
		imagesDir := filepath.Join(outDir, "images")
		if err := utils.EnsureDir(imagesDir); err != nil {
			return err
		}
		for i, path := range images {
			report(opts.Progress, i, len(images), "copying "+utils.BaseName(path))
			dest := filepath.Join(imagesDir, filepath.Base(path))
			if err := utils.CopyFile(path, dest); err != nil {
				return fmt.Errorf("failed to copy %s: %w", filepath.Base(path), err)
			}
		}
	}
	return nil
}

// ExportChips crops every annotated box out of its image and writes the
// crops under outDir, one subfolder per class.
func ExportChips(ds *Dataset, outDir string, progress Progress) (int, error) {
	if err := utils.EnsureDir(outDir); err != nil {
		return 0, err
	}

	written := 0
	for i, path := range ds.Images {
		anns, ok := ds.Frames[i]
		if !ok {
			continue
		}
		report(progress, i, len(ds.Images), utils.BaseName(path))

		img, err := media.Load(path)
		if err != nil {
			continue
		}
		for n, ann := range anns {
			chip, err := media.Crop(img, ann.Box)
			if err != nil {
				continue
			}
			classDir := filepath.Join(outDir, utils.SanitizeFilename(ann.Class))
			if err := utils.EnsureDir(classDir); err != nil {
				return written, err
			}
			name := fmt.Sprintf("%s_%d.jpg", utils.BaseName(path), n)
			if err := media.Save(chip, filepath.Join(classDir, name), "jpg", media.DefaultSaveOptions); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

func (d *Dataset) classNames() []string {
	names := make([]string, 0, len(d.Classes))
	for name := range d.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseLayout converts user input to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flat", "simple":
		return LayoutFlat, nil
	case "split":
		return LayoutSplit, nil
	case "parallel":
		return LayoutParallel, nil
	}
	return "", fmt.Errorf("unknown dataset layout: %q", s)
}
