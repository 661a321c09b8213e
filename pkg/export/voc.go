package export

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
)

// Pascal VOC structures. Boxes are stored as corner coordinates
// (xmin/ymin/xmax/ymax); attributes use the extension block the desktop
// tool writes.

type vocFile struct {
	XMLName  xml.Name    `xml:"annotation"`
	Folder   string      `xml:"folder"`
	Filename string      `xml:"filename"`
	Size     vocSize     `xml:"size"`
	Objects  []vocObject `xml:"object"`
}

type vocSize struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
	Depth  int `xml:"depth"`
}

type vocObject struct {
	Name       string         `xml:"name"`
	Pose       string         `xml:"pose"`
	Truncated  int            `xml:"truncated"`
	Difficult  int            `xml:"difficult"`
	Bndbox     vocBndbox      `xml:"bndbox"`
	Attributes *vocAttributes `xml:"attributes,omitempty"`
}

type vocBndbox struct {
	Xmin int `xml:"xmin"`
	Ymin int `xml:"ymin"`
	Xmax int `xml:"xmax"`
	Ymax int `xml:"ymax"`
}

type vocAttributes struct {
	Attributes []vocAttribute `xml:"attribute"`
}

type vocAttribute struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

// ExportVOC writes one image's annotations as a Pascal VOC XML file.
func ExportVOC(filename string, anns []annotation.Annotation, imgWidth, imgHeight int) error {
	file := vocFile{
		Folder:   "images",
		Filename: strings.Replace(filepath.Base(filename), ".xml", ".jpg", 1),
		Size:     vocSize{Width: imgWidth, Height: imgHeight, Depth: 3},
	}
	for _, ann := range anns {
		obj := vocObject{
			Name:      ann.Class,
			Pose:      "Unspecified",
			Truncated: 0,
			Difficult: 0,
			Bndbox: vocBndbox{
				Xmin: ann.Box.X,
				Ymin: ann.Box.Y,
				Xmax: ann.Box.X + ann.Box.Width,
				Ymax: ann.Box.Y + ann.Box.Height,
			},
		}
		if attrs := ann.Attributes.Exportable(); attrs != nil {
			block := &vocAttributes{}
			for _, name := range sortedKeys(attrs) {
				block.Attributes = append(block.Attributes, vocAttribute{
					Name:  name,
					Value: fmt.Sprintf("%v", attrs[name]),
				})
			}
			obj.Attributes = block
		}
		file.Objects = append(file.Objects, obj)
	}

	data, err := xml.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal VOC XML: %w", err)
	}
	out := append([]byte(xml.Header), data...)
	out = append(out, '\n')
	if err := os.WriteFile(filename, out, 0644); err != nil {
		return fmt.Errorf("failed to write VOC file: %w", err)
	}
	return nil
}

// VOCImage is the parsed form of one Pascal VOC XML file.
type VOCImage struct {
	Filename    string
	Width       int
	Height      int
	Annotations []annotation.Annotation
}

// ParseVOC reads a Pascal VOC XML file back into annotations.
func ParseVOC(data []byte) (*VOCImage, error) {
	var file vocFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse VOC XML: %w", err)
	}
	img := &VOCImage{
		Filename: file.Filename,
		Width:    file.Size.Width,
		Height:   file.Size.Height,
	}
	for _, obj := range file.Objects {
		ann := annotation.Annotation{
			Box: annotation.Box{
				X:      obj.Bndbox.Xmin,
				Y:      obj.Bndbox.Ymin,
				Width:  obj.Bndbox.Xmax - obj.Bndbox.Xmin,
				Height: obj.Bndbox.Ymax - obj.Bndbox.Ymin,
			},
			Class: obj.Name,
		}
		if obj.Attributes != nil && len(obj.Attributes.Attributes) > 0 {
			ann.Attributes = annotation.Attributes{}
			for _, attr := range obj.Attributes.Attributes {
				ann.Attributes[attr.Name] = parseScalar(attr.Value)
			}
		}
		img.Annotations = append(img.Annotations, ann)
	}
	return img, nil
}

func parseScalar(s string) any {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if s == "true" || s == "false" {
		return s == "true"
	}
	return s
}
