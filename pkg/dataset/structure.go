// Package dataset imports and exports whole image datasets in the common
// detection layouts. It understands flat folders, train/val/test splits and
// parallel images/labels trees, and converts between them and the in-memory
// frame annotation map.
package dataset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/reza-shahriari/VIAT/internal/utils"
)

// FolderType classifies a folder picked by the user.
type FolderType string

const (
	// SimpleFolder is a plain directory of images with no annotations.
	SimpleFolder FolderType = "simple_folder"
	// DatasetFolder carries annotation files or a recognizable dataset layout.
	DatasetFolder FolderType = "dataset"
)

// StructureType identifies how a dataset folder is organized.
type StructureType string

const (
	StructureFlat     StructureType = "flat_folder"
	StructureSplit    StructureType = "split_folders"
	StructureParallel StructureType = "parallel_folders"
)

// Structure describes a dataset folder's layout.
type Structure struct {
	Type            StructureType
	Splits          []string
	AnnotationFiles []string
	ImageFolders    []string
	LabelFolders    []string
	TotalImages     int
}

// DetectFolderType reports whether a folder is a bare image directory or a
// structured dataset. Split subfolders, parallel images/labels trees, a
// classes.txt, or COCO-style annotation files all mark it as a dataset.
func DetectFolderType(dir string) FolderType {
	indicators := []bool{
		utils.DirExists(filepath.Join(dir, "train")),
		utils.DirExists(filepath.Join(dir, "test")),
		utils.DirExists(filepath.Join(dir, "val")),
		utils.DirExists(filepath.Join(dir, "validation")),
		utils.DirExists(filepath.Join(dir, "images")) && utils.DirExists(filepath.Join(dir, "labels")),
		utils.DirExists(filepath.Join(dir, "images")) && utils.DirExists(filepath.Join(dir, "annotations")),
		utils.FileExists(filepath.Join(dir, "classes.txt")),
	}
	for _, hit := range indicators {
		if hit {
			return DatasetFolder
		}
	}
	if len(findAnnotationFiles(dir)) > 0 {
		return DatasetFolder
	}
	return SimpleFolder
}

// DetectStructure analyzes a dataset folder and reports its layout, the
// annotation files it carries, and how many images it holds.
func DetectStructure(dir string) (*Structure, error) {
	if !utils.DirExists(dir) {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	info := &Structure{AnnotationFiles: findAnnotationFiles(dir)}

	for _, split := range []string{"train", "test", "val", "validation"} {
		if utils.DirExists(filepath.Join(dir, split)) {
			info.Splits = append(info.Splits, split)
		}
	}

	imagesDir := filepath.Join(dir, "images")
	labelsDir := filepath.Join(dir, "labels")
	annotationsDir := filepath.Join(dir, "annotations")

	switch {
	case len(info.Splits) > 0:
		info.Type = StructureSplit
		for _, split := range info.Splits {
			splitDir := filepath.Join(dir, split)
			if sub := filepath.Join(splitDir, "images"); utils.DirExists(sub) {
				info.ImageFolders = append(info.ImageFolders, sub)
			} else {
				// The split folder itself may hold the images.
				info.ImageFolders = append(info.ImageFolders, splitDir)
			}
			if sub := filepath.Join(splitDir, "labels"); utils.DirExists(sub) {
				info.LabelFolders = append(info.LabelFolders, sub)
			}
		}
	case utils.DirExists(imagesDir) && (utils.DirExists(labelsDir) || utils.DirExists(annotationsDir)):
		info.Type = StructureParallel
		info.ImageFolders = append(info.ImageFolders, imagesDir)
		if utils.DirExists(labelsDir) {
			info.LabelFolders = append(info.LabelFolders, labelsDir)
		}
		if utils.DirExists(annotationsDir) {
			info.LabelFolders = append(info.LabelFolders, annotationsDir)
		}
	default:
		info.Type = StructureFlat
		info.ImageFolders = append(info.ImageFolders, dir)
	}

	for _, folder := range info.ImageFolders {
		filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if utils.IsImageFile(path) {
				info.TotalImages++
			}
			return nil
		})
	}
	return info, nil
}

// findAnnotationFiles walks the tree for json/xml files whose names suggest
// dataset annotations.
func findAnnotationFiles(dir string) []string {
	var found []string
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if !strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".xml") {
			return nil
		}
		if strings.Contains(name, "coco") || strings.Contains(name, "annotations") || strings.Contains(name, "instances") {
			found = append(found, path)
		}
		return nil
	})
	return found
}

// listDir returns the plain files in dir with the given extension, sorted.
func listDir(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			out = append(out, filepath.Join(dir, entry.Name()))
		}
	}
	return out, nil
}
