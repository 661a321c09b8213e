package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
)

// YOLO label lines are "class x_center y_center width height" with all
// geometry normalized to [0,1]. Attributes have no place in the format, so
// they ride along as a trailing "# name:value,..." comment plus a JSON
// sidecar, the way the desktop tool writes them.

// ExportYOLO writes YOLO labels for one image. Alongside the label file it
// writes <base>_classes.txt with the class list and, when any annotation
// carries attributes, <base>_attributes.json.
func ExportYOLO(filename string, anns []annotation.Annotation, imgWidth, imgHeight int) error {
	classes := YOLOClassOrder(anns)
	classToID := map[string]int{}
	for i, class := range classes {
		classToID[class] = i
	}

	classesFile := strings.Replace(filename, ".txt", "_classes.txt", 1)
	if err := WriteYOLOClasses(classesFile, classes); err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create YOLO label file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, ann := range anns {
		if err := writeYOLOLine(w, classToID[ann.Class], ann, imgWidth, imgHeight); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	attributes := map[string]map[string]any{}
	for i, ann := range anns {
		if attrs := ann.Attributes.Exportable(); attrs != nil {
			attributes[strconv.Itoa(i)] = map[string]any{
				"class":      ann.Class,
				"attributes": attrs,
			}
		}
	}
	if len(attributes) > 0 {
		attrFile := strings.Replace(filename, ".txt", "_attributes.json", 1)
		if err := writeJSON(attrFile, attributes); err != nil {
			return err
		}
	}
	return nil
}

// WriteYOLOLabels writes one image's label lines against a fixed class
// list, for dataset exports where the class order is shared across files.
func WriteYOLOLabels(filename string, anns []annotation.Annotation, classes []string, imgWidth, imgHeight int) error {
	classToID := map[string]int{}
	for i, class := range classes {
		classToID[class] = i
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create YOLO label file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, ann := range anns {
		id, ok := classToID[ann.Class]
		if !ok {
			return fmt.Errorf("class %q missing from YOLO class list", ann.Class)
		}
		if err := writeYOLOLine(w, id, ann, imgWidth, imgHeight); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeYOLOLine(w io.Writer, classID int, ann annotation.Annotation, imgWidth, imgHeight int) error {
	xCenter := (float64(ann.Box.X) + float64(ann.Box.Width)/2) / float64(imgWidth)
	yCenter := (float64(ann.Box.Y) + float64(ann.Box.Height)/2) / float64(imgHeight)
	normW := float64(ann.Box.Width) / float64(imgWidth)
	normH := float64(ann.Box.Height) / float64(imgHeight)

	line := fmt.Sprintf("%d %.6f %.6f %.6f %.6f", classID, xCenter, yCenter, normW, normH)
	if attrs := ann.Attributes.Exportable(); attrs != nil {
		parts := make([]string, 0, len(attrs))
		for _, name := range sortedKeys(attrs) {
			parts = append(parts, fmt.Sprintf("%s:%v", name, attrs[name]))
		}
		line += " # " + strings.Join(parts, ",")
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

// YOLOClassOrder returns the sorted distinct class names of an annotation
// list, the order class ids are assigned in.
func YOLOClassOrder(anns []annotation.Annotation) []string {
	seen := map[string]struct{}{}
	var classes []string
	for _, ann := range anns {
		if _, ok := seen[ann.Class]; !ok {
			seen[ann.Class] = struct{}{}
			classes = append(classes, ann.Class)
		}
	}
	sort.Strings(classes)
	return classes
}

// WriteYOLOClasses writes a class list file, one name per line.
func WriteYOLOClasses(filename string, classes []string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create class file: %w", err)
	}
	defer f.Close()
	for _, class := range classes {
		if _, err := fmt.Fprintln(f, class); err != nil {
			return err
		}
	}
	return nil
}

// ReadYOLOClasses reads a classes.txt/obj.names style class list.
func ReadYOLOClasses(r io.Reader) ([]string, error) {
	var classes []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			classes = append(classes, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read class list: %w", err)
	}
	return classes, nil
}

// ParseYOLO reads one image's YOLO label lines, denormalizing against the
// image dimensions. Attribute comments are parsed back; malformed lines are
// skipped, matching the tolerant import behavior of the desktop tool.
func ParseYOLO(r io.Reader, classes []string, imgWidth, imgHeight int) ([]annotation.Annotation, error) {
	var anns []annotation.Annotation
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		comment := ""
		if idx := strings.Index(line, "#"); idx >= 0 {
			comment = strings.TrimSpace(line[idx+1:])
			line = line[:idx]
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		classID, err := strconv.Atoi(fields[0])
		if err != nil || classID < 0 || classID >= len(classes) {
			continue
		}
		vals := make([]float64, 4)
		ok := true
		for i := 0; i < 4; i++ {
			vals[i], err = strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		w := vals[2] * float64(imgWidth)
		h := vals[3] * float64(imgHeight)
		x := vals[0]*float64(imgWidth) - w/2
		y := vals[1]*float64(imgHeight) - h/2

		anns = append(anns, annotation.Annotation{
			Box:        annotation.Box{X: int(x), Y: int(y), Width: int(w), Height: int(h)},
			Class:      classes[classID],
			Attributes: parseAttrComment(comment),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read YOLO labels: %w", err)
	}
	return anns, nil
}

func parseAttrComment(comment string) annotation.Attributes {
	if comment == "" {
		return nil
	}
	attrs := annotation.Attributes{}
	for _, pair := range strings.Split(comment, ",") {
		if !strings.Contains(pair, ":") {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		name := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if i, err := strconv.Atoi(value); err == nil {
			attrs[name] = i
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			attrs[name] = f
		} else if value == "true" || value == "false" {
			attrs[name] = value == "true"
		} else {
			attrs[name] = value
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

func sortedKeys(m annotation.Attributes) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
