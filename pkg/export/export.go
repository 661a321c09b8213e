// Package export converts annotations between the internal model and the
// standard object-detection interchange formats: COCO JSON, YOLO text,
// Pascal VOC XML and the Raya per-frame text format.
package export

import (
	"fmt"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
)

// Format identifies an interchange format.
type Format string

const (
	FormatCOCO Format = "coco"
	FormatYOLO Format = "yolo"
	FormatVOC  Format = "pascal_voc"
	FormatRaya Format = "raya"
)

// FormatInfo describes a format for listings and default file naming.
type FormatInfo struct {
	Name        string
	Extension   string
	Description string
}

// Formats lists the supported interchange formats.
var Formats = map[Format]FormatInfo{
	FormatCOCO: {Name: "COCO JSON", Extension: "json", Description: "Common Objects in Context format"},
	FormatYOLO: {Name: "YOLO TXT", Extension: "txt", Description: "YOLO darknet format"},
	FormatVOC:  {Name: "Pascal VOC XML", Extension: "xml", Description: "Pascal Visual Object Classes format"},
	FormatRaya: {Name: "Raya TXT", Extension: "txt", Description: "Per-frame bracketed text format"},
}

// ParseFormat resolves a format name from user input.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCOCO, FormatYOLO, FormatVOC, FormatRaya:
		return Format(s), nil
	}
	switch s {
	case "voc", "pascal-voc", "pascalvoc":
		return FormatVOC, nil
	}
	return "", fmt.Errorf("unsupported export format: %s", s)
}

// Annotations writes a single image/frame's annotations to filename in the
// given format. Raya is frame-oriented and handled by ExportRaya instead.
func Annotations(filename string, anns []annotation.Annotation, imgWidth, imgHeight int, format Format) error {
	switch format {
	case FormatCOCO:
		return ExportCOCO(filename, anns, imgWidth, imgHeight)
	case FormatYOLO:
		return ExportYOLO(filename, anns, imgWidth, imgHeight)
	case FormatVOC:
		return ExportVOC(filename, anns, imgWidth, imgHeight)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}
