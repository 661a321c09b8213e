package dataset

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/reza-shahriari/VIAT/internal/utils"
	"github.com/reza-shahriari/VIAT/pkg/annotation"
	"github.com/reza-shahriari/VIAT/pkg/export"
	"github.com/reza-shahriari/VIAT/pkg/media"
)

// Progress reports incremental work during imports and exports. total may be
// zero when the amount of work is not yet known.
type Progress func(done, total int, message string)

// ClassRule controls how one source class is imported.
type ClassRule struct {
	Mapped  string
	Enabled bool
}

// ImportOptions configures a dataset import.
type ImportOptions struct {
	Format export.Format
	// SkipEmpty drops images that end up with no enabled annotations.
	SkipEmpty bool
	// Classes filters and renames source classes by their original name.
	// A nil map imports every class unchanged.
	Classes  map[string]ClassRule
	Progress Progress
}

// Dataset is an imported image set: an ordered image list plus annotations
// keyed by index into that list.
type Dataset struct {
	Images  []string
	Frames  map[int][]annotation.Annotation
	Classes map[string]annotation.ClassDefinition
}

// AnnotationCount sums annotations across all images.
func (d *Dataset) AnnotationCount() int {
	n := 0
	for _, anns := range d.Frames {
		n += len(anns)
	}
	return n
}

// DiscoverClasses lists the class names a dataset folder declares, so callers
// can build mapping rules before importing.
func DiscoverClasses(dir string, format export.Format) ([]string, error) {
	switch format {
	case export.FormatCOCO:
		ds, _, err := findCOCOFile(dir)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(ds.Categories))
		for _, name := range ds.Categories {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil

	case export.FormatYOLO:
		return readClassFile(dir)

	case export.FormatVOC:
		xmlFiles, err := listDir(dir, ".xml")
		if err != nil {
			return nil, err
		}
		seen := map[string]struct{}{}
		limit := len(xmlFiles)
		if limit > 10 {
			limit = 10 // a sample is enough to enumerate classes
		}
		for _, path := range xmlFiles[:limit] {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			img, err := export.ParseVOC(data)
			if err != nil {
				continue
			}
			for _, ann := range img.Annotations {
				seen[ann.Class] = struct{}{}
			}
		}
		names := make([]string, 0, len(seen))
		for name := range seen {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	}
	return nil, fmt.Errorf("unsupported import format: %s", format)
}

// Load imports a dataset folder in the given format. New classes get random
// colors and annotations without Size or Quality values get the unset marker.
func Load(dir string, opts ImportOptions) (*Dataset, error) {
	switch opts.Format {
	case export.FormatCOCO:
		return loadCOCO(dir, opts)
	case export.FormatYOLO:
		return loadYOLO(dir, opts)
	case export.FormatVOC:
		return loadVOC(dir, opts)
	}
	return nil, fmt.Errorf("unsupported import format: %s", opts.Format)
}

func loadCOCO(dir string, opts ImportOptions) (*Dataset, error) {
	coco, name, err := findCOCOFile(dir)
	if err != nil {
		return nil, err
	}
	report(opts.Progress, 0, len(coco.Images), fmt.Sprintf("loading COCO dataset from %s", name))

	ds := newDataset()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	type entry struct {
		path string
		id   int
	}
	var entries []entry
	for _, img := range coco.Images {
		path := filepath.Join(dir, img.FileName)
		if !utils.FileExists(path) {
			continue
		}
		anns := keepEnabled(coco.ByImage[img.ID], opts.Classes)
		if opts.SkipEmpty && len(anns) == 0 {
			continue
		}
		entries = append(entries, entry{path: path, id: img.ID})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	for i, e := range entries {
		report(opts.Progress, i, len(entries), utils.BaseName(e.path))
		ds.Images = append(ds.Images, e.path)
		anns := keepEnabled(coco.ByImage[e.id], opts.Classes)
		if len(anns) > 0 {
			ds.Frames[i] = finishAnnotations(anns, ds, rng)
		}
	}
	return ds, nil
}

func loadYOLO(dir string, opts ImportOptions) (*Dataset, error) {
	classes, err := readClassFile(dir)
	if err != nil {
		return nil, err
	}

	images, err := utils.ListImageFiles(dir)
	if err != nil {
		return nil, err
	}

	ds := newDataset()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	type entry struct {
		image string
		label string
	}
	var entries []entry
	for _, img := range images {
		label := strings.TrimSuffix(img, filepath.Ext(img)) + ".txt"
		if opts.SkipEmpty && !utils.FileExists(label) {
			continue
		}
		entries = append(entries, entry{image: img, label: label})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].image < entries[j].image })

	for i, e := range entries {
		report(opts.Progress, i, len(entries), utils.BaseName(e.image))
		ds.Images = append(ds.Images, e.image)

		if !utils.FileExists(e.label) {
			continue
		}
		width, height, err := media.Dimensions(e.image)
		if err != nil {
			continue
		}
		f, err := os.Open(e.label)
		if err != nil {
			continue
		}
		anns, err := export.ParseYOLO(f, classes, width, height)
		f.Close()
		if err != nil {
			continue
		}
		anns = keepEnabled(anns, opts.Classes)
		if len(anns) > 0 {
			ds.Frames[i] = finishAnnotations(anns, ds, rng)
		}
	}
	return ds, nil
}

func loadVOC(dir string, opts ImportOptions) (*Dataset, error) {
	xmlFiles, err := listDir(dir, ".xml")
	if err != nil {
		return nil, err
	}
	if len(xmlFiles) == 0 {
		return nil, fmt.Errorf("no Pascal VOC XML files found in %s", dir)
	}

	ds := newDataset()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	type entry struct {
		image string
		anns  []annotation.Annotation
	}
	var entries []entry
	for _, xmlPath := range xmlFiles {
		data, err := os.ReadFile(xmlPath)
		if err != nil {
			continue
		}
		img, err := export.ParseVOC(data)
		if err != nil {
			continue
		}
		imagePath := findImageFile(dir, img.Filename)
		if imagePath == "" {
			continue
		}
		anns := keepEnabled(img.Annotations, opts.Classes)
		if opts.SkipEmpty && len(anns) == 0 {
			continue
		}
		entries = append(entries, entry{image: imagePath, anns: anns})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].image < entries[j].image })

	for i, e := range entries {
		report(opts.Progress, i, len(entries), utils.BaseName(e.image))
		ds.Images = append(ds.Images, e.image)
		if len(e.anns) > 0 {
			ds.Frames[i] = finishAnnotations(e.anns, ds, rng)
		}
	}
	return ds, nil
}

func newDataset() *Dataset {
	return &Dataset{
		Frames:  map[int][]annotation.Annotation{},
		Classes: map[string]annotation.ClassDefinition{},
	}
}

// findCOCOFile scans dir for the first JSON file that parses as COCO.
func findCOCOFile(dir string) (*export.COCODataset, string, error) {
	jsonFiles, err := listDir(dir, ".json")
	if err != nil {
		return nil, "", err
	}
	for _, path := range jsonFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if !export.IsCOCO(data) {
			continue
		}
		ds, err := export.ParseCOCO(data)
		if err != nil {
			continue
		}
		return ds, utils.BaseName(path), nil
	}
	return nil, "", fmt.Errorf("no valid COCO JSON file found in %s", dir)
}

// readClassFile loads classes.txt or obj.names from dir.
func readClassFile(dir string) ([]string, error) {
	for _, name := range []string{"classes.txt", "obj.names"} {
		path := filepath.Join(dir, name)
		if !utils.FileExists(path) {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		classes, err := export.ReadYOLOClasses(f)
		f.Close()
		if err == nil && len(classes) > 0 {
			return classes, nil
		}
	}
	return nil, fmt.Errorf("no class file found in %s", dir)
}

// findImageFile locates the image a VOC file names, trying the usual
// extensions against its base name.
func findImageFile(dir, filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"} {
		path := filepath.Join(dir, base+ext)
		if utils.FileExists(path) {
			return path
		}
	}
	return ""
}

// keepEnabled filters annotations through the class rules and applies any
// renames. A nil rule set keeps everything.
func keepEnabled(anns []annotation.Annotation, rules map[string]ClassRule) []annotation.Annotation {
	if rules == nil {
		return anns
	}
	var out []annotation.Annotation
	for _, ann := range anns {
		rule, ok := rules[ann.Class]
		if !ok || !rule.Enabled {
			continue
		}
		if rule.Mapped != "" {
			ann.Class = rule.Mapped
		}
		out = append(out, ann)
	}
	return out
}

// finishAnnotations registers classes the dataset has not seen yet and fills
// in the standard attributes for boxes that lack them.
func finishAnnotations(anns []annotation.Annotation, ds *Dataset, rng *rand.Rand) []annotation.Annotation {
	for i := range anns {
		if _, ok := ds.Classes[anns[i].Class]; !ok {
			ds.Classes[anns[i].Class] = annotation.ClassDefinition{
				Name:  anns[i].Class,
				Color: annotation.RandomColor(rng),
			}
		}
		if anns[i].Attributes == nil {
			anns[i].Attributes = annotation.Attributes{}
		}
		for _, name := range []string{"Size", "Quality"} {
			if _, ok := anns[i].Attributes[name]; !ok {
				anns[i].Attributes[name] = annotation.UnsetAttr
			}
		}
	}
	return anns
}

func report(p Progress, done, total int, message string) {
	if p != nil {
		p(done, total, message)
	}
}
