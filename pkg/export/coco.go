package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
)

// COCO file structures. Boxes are written as [x, y, width, height] in
// pixels; category and annotation ids start at 1.

type cocoFile struct {
	Images      []COCOImage      `json:"images"`
	Annotations []cocoAnnotation `json:"annotations"`
	Categories  []cocoCategory   `json:"categories"`
}

// COCOImage is one image entry in a COCO file.
type COCOImage struct {
	ID       int    `json:"id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileName string `json:"file_name"`
}

type cocoAnnotation struct {
	ID           int                   `json:"id"`
	ImageID      int                   `json:"image_id"`
	CategoryID   int                   `json:"category_id"`
	BBox         [4]float64            `json:"bbox"`
	Area         float64               `json:"area"`
	Segmentation []any                 `json:"segmentation"`
	IsCrowd      int                   `json:"iscrowd"`
	Attributes   annotation.Attributes `json:"attributes,omitempty"`
}

type cocoCategory struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// ExportCOCO writes a single-image COCO file. Categories are numbered in
// first-seen order across the annotation list.
func ExportCOCO(filename string, anns []annotation.Annotation, imgWidth, imgHeight int) error {
	image := COCOImage{
		ID:       1,
		Width:    imgWidth,
		Height:   imgHeight,
		FileName: strings.Replace(filepath.Base(filename), ".json", ".jpg", 1),
	}
	file := buildCOCO([]COCOImage{image}, map[int][]annotation.Annotation{0: anns})
	return writeJSON(filename, file)
}

// ExportCOCODataset writes a whole image set as one COCO file. frames maps
// the index into images to that image's annotations.
func ExportCOCODataset(filename string, images []COCOImage, frames map[int][]annotation.Annotation) error {
	file := buildCOCO(images, frames)
	return writeJSON(filename, file)
}

func buildCOCO(images []COCOImage, frames map[int][]annotation.Annotation) cocoFile {
	file := cocoFile{
		Images:      images,
		Annotations: []cocoAnnotation{},
		Categories:  []cocoCategory{},
	}

	categories := map[string]int{}
	register := func(class string) int {
		if id, ok := categories[class]; ok {
			return id
		}
		id := len(categories) + 1
		categories[class] = id
		file.Categories = append(file.Categories, cocoCategory{
			ID:            id,
			Name:          class,
			Supercategory: "none",
		})
		return id
	}

	annotationID := 1
	for i, img := range images {
		for _, ann := range frames[i] {
			entry := cocoAnnotation{
				ID:           annotationID,
				ImageID:      img.ID,
				CategoryID:   register(ann.Class),
				BBox:         [4]float64{float64(ann.Box.X), float64(ann.Box.Y), float64(ann.Box.Width), float64(ann.Box.Height)},
				Area:         float64(ann.Box.Area()),
				Segmentation: []any{},
				Attributes:   ann.Attributes.Exportable(),
			}
			file.Annotations = append(file.Annotations, entry)
			annotationID++
		}
	}
	return file
}

func writeJSON(filename string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(filename), err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(filename), err)
	}
	return nil
}

// COCODataset is the parsed form of a COCO file, keyed for import.
type COCODataset struct {
	Images     []COCOImage
	Categories map[int]string
	// ByImage groups annotations by COCO image id. Attribute maps and class
	// names are resolved; boxes are pixel-space.
	ByImage map[int][]annotation.Annotation
}

// IsCOCO reports whether raw JSON looks like a COCO dataset file.
func IsCOCO(data []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	_, hasImages := probe["images"]
	_, hasAnns := probe["annotations"]
	_, hasCats := probe["categories"]
	return hasImages && hasAnns && hasCats
}

// ParseCOCO reads a COCO dataset file.
func ParseCOCO(data []byte) (*COCODataset, error) {
	var file cocoFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse COCO file: %w", err)
	}

	ds := &COCODataset{
		Images:     file.Images,
		Categories: map[int]string{},
		ByImage:    map[int][]annotation.Annotation{},
	}
	for _, cat := range file.Categories {
		ds.Categories[cat.ID] = cat.Name
	}
	for _, entry := range file.Annotations {
		class, ok := ds.Categories[entry.CategoryID]
		if !ok {
			continue
		}
		ann := annotation.Annotation{
			Box: annotation.Box{
				X:      int(entry.BBox[0]),
				Y:      int(entry.BBox[1]),
				Width:  int(entry.BBox[2]),
				Height: int(entry.BBox[3]),
			},
			Class:      class,
			Attributes: entry.Attributes.Clone(),
		}
		ds.ByImage[entry.ImageID] = append(ds.ByImage[entry.ImageID], ann)
	}
	return ds, nil
}
