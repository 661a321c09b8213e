package dataset

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
	"github.com/reza-shahriari/VIAT/pkg/export"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectFolderType(t *testing.T) {
	plain := t.TempDir()
	writeTestPNG(t, filepath.Join(plain, "a.png"), 8, 8)
	if got := DetectFolderType(plain); got != SimpleFolder {
		t.Errorf("plain image folder detected as %s", got)
	}

	withClasses := t.TempDir()
	writeFile(t, filepath.Join(withClasses, "classes.txt"), "car\n")
	if got := DetectFolderType(withClasses); got != DatasetFolder {
		t.Errorf("folder with classes.txt detected as %s", got)
	}

	withSplits := t.TempDir()
	if err := os.Mkdir(filepath.Join(withSplits, "train"), 0755); err != nil {
		t.Fatal(err)
	}
	if got := DetectFolderType(withSplits); got != DatasetFolder {
		t.Errorf("folder with train split detected as %s", got)
	}

	parallel := t.TempDir()
	for _, sub := range []string{"images", "labels"} {
		if err := os.Mkdir(filepath.Join(parallel, sub), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if got := DetectFolderType(parallel); got != DatasetFolder {
		t.Errorf("parallel images/labels folder detected as %s", got)
	}

	withCOCO := t.TempDir()
	writeFile(t, filepath.Join(withCOCO, "instances_train.json"), "{}")
	if got := DetectFolderType(withCOCO); got != DatasetFolder {
		t.Errorf("folder with instances JSON detected as %s", got)
	}
}

func TestDetectStructure(t *testing.T) {
	flat := t.TempDir()
	writeTestPNG(t, filepath.Join(flat, "a.png"), 8, 8)
	writeTestPNG(t, filepath.Join(flat, "b.png"), 8, 8)
	info, err := DetectStructure(flat)
	if err != nil {
		t.Fatal(err)
	}
	if info.Type != StructureFlat {
		t.Errorf("type = %s, want flat", info.Type)
	}
	if info.TotalImages != 2 {
		t.Errorf("TotalImages = %d, want 2", info.TotalImages)
	}

	split := t.TempDir()
	writeTestPNG(t, filepath.Join(split, "train", "images", "a.png"), 8, 8)
	writeTestPNG(t, filepath.Join(split, "val", "b.png"), 8, 8)
	info, err = DetectStructure(split)
	if err != nil {
		t.Fatal(err)
	}
	if info.Type != StructureSplit {
		t.Errorf("type = %s, want split", info.Type)
	}
	if len(info.Splits) != 2 {
		t.Errorf("splits = %v, want train and val", info.Splits)
	}
	if info.TotalImages != 2 {
		t.Errorf("TotalImages = %d, want 2", info.TotalImages)
	}

	parallel := t.TempDir()
	writeTestPNG(t, filepath.Join(parallel, "images", "a.png"), 8, 8)
	writeFile(t, filepath.Join(parallel, "labels", "a.txt"), "0 0.5 0.5 0.5 0.5\n")
	info, err = DetectStructure(parallel)
	if err != nil {
		t.Fatal(err)
	}
	if info.Type != StructureParallel {
		t.Errorf("type = %s, want parallel", info.Type)
	}
	if len(info.LabelFolders) != 1 {
		t.Errorf("label folders = %v, want one", info.LabelFolders)
	}

	if _, err := DetectStructure(filepath.Join(flat, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestSplitRatiosValidate(t *testing.T) {
	if err := (SplitRatios{Train: 80, Val: 10, Test: 10}).validate(); err != nil {
		t.Errorf("valid ratios rejected: %v", err)
	}
	if err := (SplitRatios{Train: 70, Val: 10, Test: 10}).validate(); err == nil {
		t.Error("ratios summing to 90 accepted")
	}
}

func TestKeepEnabled(t *testing.T) {
	anns := []annotation.Annotation{
		{Box: annotation.Box{X: 0, Y: 0, Width: 10, Height: 10}, Class: "car"},
		{Box: annotation.Box{X: 0, Y: 0, Width: 10, Height: 10}, Class: "truck"},
		{Box: annotation.Box{X: 0, Y: 0, Width: 10, Height: 10}, Class: "person"},
	}

	if got := keepEnabled(anns, nil); len(got) != 3 {
		t.Errorf("nil rules kept %d annotations, want all 3", len(got))
	}

	rules := map[string]ClassRule{
		"car":   {Enabled: true},
		"truck": {Enabled: true, Mapped: "car"},
		// person deliberately absent
	}
	got := keepEnabled(anns, rules)
	if len(got) != 2 {
		t.Fatalf("kept %d annotations, want 2", len(got))
	}
	if got[0].Class != "car" || got[1].Class != "car" {
		t.Errorf("classes = %q, %q; want both mapped to car", got[0].Class, got[1].Class)
	}

	rules["car"] = ClassRule{Enabled: false}
	if got := keepEnabled(anns, rules); len(got) != 1 {
		t.Errorf("kept %d annotations with car disabled, want 1", len(got))
	}
}

func TestLoadYOLO(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "classes.txt"), "car\nperson\n")
	writeTestPNG(t, filepath.Join(dir, "img1.png"), 100, 100)
	writeFile(t, filepath.Join(dir, "img1.txt"), "0 0.5 0.5 0.2 0.2\n1 0.25 0.25 0.1 0.1\n")
	writeTestPNG(t, filepath.Join(dir, "img2.png"), 100, 100)
	// img2 has no label file

	var calls int
	ds, err := Load(dir, ImportOptions{
		Format:   export.FormatYOLO,
		Progress: func(done, total int, message string) { calls++ },
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(ds.Images) != 2 {
		t.Fatalf("imported %d images, want 2", len(ds.Images))
	}
	if calls == 0 {
		t.Error("progress callback never fired")
	}
	if ds.AnnotationCount() != 2 {
		t.Errorf("AnnotationCount = %d, want 2", ds.AnnotationCount())
	}

	anns := ds.Frames[0]
	if len(anns) != 2 {
		t.Fatalf("frame 0 has %d annotations, want 2", len(anns))
	}
	if anns[0].Class != "car" || anns[1].Class != "person" {
		t.Errorf("classes = %q, %q", anns[0].Class, anns[1].Class)
	}
	// Unprovided standard attributes get the unset marker.
	if anns[0].Attributes["Size"] != annotation.UnsetAttr {
		t.Errorf("Size = %v, want unset marker", anns[0].Attributes["Size"])
	}
	// Every seen class is registered with a color.
	if _, ok := ds.Classes["car"]; !ok {
		t.Error("car class not registered")
	}
	if _, ok := ds.Classes["person"]; !ok {
		t.Error("person class not registered")
	}
}

func TestLoadYOLOSkipEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "classes.txt"), "car\n")
	writeTestPNG(t, filepath.Join(dir, "img1.png"), 100, 100)
	writeFile(t, filepath.Join(dir, "img1.txt"), "0 0.5 0.5 0.2 0.2\n")
	writeTestPNG(t, filepath.Join(dir, "img2.png"), 100, 100)

	ds, err := Load(dir, ImportOptions{Format: export.FormatYOLO, SkipEmpty: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(ds.Images) != 1 {
		t.Errorf("imported %d images with SkipEmpty, want 1", len(ds.Images))
	}
}

func TestLoadCOCO(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "img1.png"), 100, 100)
	coco := `{
		"images": [
			{"id": 1, "width": 100, "height": 100, "file_name": "img1.png"},
			{"id": 2, "width": 100, "height": 100, "file_name": "missing.png"}
		],
		"annotations": [
			{"id": 1, "image_id": 1, "category_id": 1, "bbox": [10, 10, 30, 30], "area": 900, "segmentation": [], "iscrowd": 0}
		],
		"categories": [{"id": 1, "name": "car", "supercategory": "none"}]
	}`
	writeFile(t, filepath.Join(dir, "annotations.json"), coco)

	ds, err := Load(dir, ImportOptions{Format: export.FormatCOCO})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// The image that does not exist on disk is dropped.
	if len(ds.Images) != 1 {
		t.Fatalf("imported %d images, want 1", len(ds.Images))
	}
	if ds.AnnotationCount() != 1 {
		t.Errorf("AnnotationCount = %d, want 1", ds.AnnotationCount())
	}
	if ds.Frames[0][0].Class != "car" {
		t.Errorf("class = %q, want car", ds.Frames[0][0].Class)
	}
}

func TestDiscoverClasses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "classes.txt"), "car\nperson\n")
	classes, err := DiscoverClasses(dir, export.FormatYOLO)
	if err != nil {
		t.Fatalf("DiscoverClasses failed: %v", err)
	}
	if len(classes) != 2 || classes[0] != "car" || classes[1] != "person" {
		t.Errorf("classes = %v", classes)
	}

	empty := t.TempDir()
	if _, err := DiscoverClasses(empty, export.FormatYOLO); err == nil {
		t.Error("expected error when no class file exists")
	}
}

func buildDataset(t *testing.T, n int) *Dataset {
	t.Helper()
	dir := t.TempDir()
	ds := newDataset()
	ds.Classes["car"] = annotation.ClassDefinition{Name: "car", Color: annotation.Color{R: 255, A: 255}}
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("img%02d.png", i))
		writeTestPNG(t, path, 100, 100)
		ds.Images = append(ds.Images, path)
		ds.Frames[i] = []annotation.Annotation{
			{Box: annotation.Box{X: 10, Y: 10, Width: 20, Height: 20}, Class: "car"},
		}
	}
	return ds
}

func TestExportFlatYOLO(t *testing.T) {
	ds := buildDataset(t, 3)
	out := t.TempDir()

	err := Export(ds, ExportOptions{
		Format:     export.FormatYOLO,
		Layout:     LayoutFlat,
		OutputDir:  out,
		CopyImages: true,
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	classData, err := os.ReadFile(filepath.Join(out, "classes.txt"))
	if err != nil {
		t.Fatalf("classes.txt missing: %v", err)
	}
	if string(classData) != "car\n" {
		t.Errorf("classes.txt = %q", string(classData))
	}

	labels, err := os.ReadDir(filepath.Join(out, "labels"))
	if err != nil {
		t.Fatalf("labels dir missing: %v", err)
	}
	if len(labels) != 3 {
		t.Errorf("wrote %d label files, want 3", len(labels))
	}

	images, err := os.ReadDir(filepath.Join(out, "images"))
	if err != nil {
		t.Fatalf("images dir missing: %v", err)
	}
	if len(images) != 3 {
		t.Errorf("copied %d images, want 3", len(images))
	}
}

func TestExportSplitCOCO(t *testing.T) {
	ds := buildDataset(t, 10)
	out := t.TempDir()

	err := Export(ds, ExportOptions{
		Format:    export.FormatCOCO,
		Layout:    LayoutSplit,
		OutputDir: out,
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	wantCounts := map[string]int{"train": 8, "val": 1, "test": 1}
	total := 0
	for split, want := range wantCounts {
		data, err := os.ReadFile(filepath.Join(out, split, split+"_annotations.json"))
		if err != nil {
			t.Fatalf("%s annotations missing: %v", split, err)
		}
		parsed, err := export.ParseCOCO(data)
		if err != nil {
			t.Fatalf("%s annotations invalid: %v", split, err)
		}
		if len(parsed.Images) != want {
			t.Errorf("%s split has %d images, want %d", split, len(parsed.Images), want)
		}
		total += len(parsed.Images)
	}
	if total != 10 {
		t.Errorf("splits cover %d images, want all 10", total)
	}
}

func TestExportSplitRejectsBadRatios(t *testing.T) {
	ds := buildDataset(t, 2)
	err := Export(ds, ExportOptions{
		Format:    export.FormatCOCO,
		Layout:    LayoutSplit,
		OutputDir: t.TempDir(),
		Split:     SplitRatios{Train: 50, Val: 10, Test: 10},
	})
	if err == nil {
		t.Error("expected error for ratios not summing to 100")
	}
}

func TestExportChips(t *testing.T) {
	ds := buildDataset(t, 2)
	out := t.TempDir()

	written, err := ExportChips(ds, out, nil)
	if err != nil {
		t.Fatalf("ExportChips failed: %v", err)
	}
	if written != 2 {
		t.Errorf("wrote %d chips, want 2", written)
	}
	chips, err := os.ReadDir(filepath.Join(out, "car"))
	if err != nil {
		t.Fatalf("class folder missing: %v", err)
	}
	if len(chips) != 2 {
		t.Errorf("car folder has %d chips, want 2", len(chips))
	}
}

func TestParseLayout(t *testing.T) {
	tests := []struct {
		in   string
		want Layout
	}{
		{"flat", LayoutFlat},
		{"simple", LayoutFlat},
		{"Split", LayoutSplit},
		{"parallel", LayoutParallel},
	}
	for _, tt := range tests {
		got, err := ParseLayout(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLayout(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseLayout("nested"); err == nil {
		t.Error("unknown layout accepted")
	}
}
