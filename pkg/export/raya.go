package export

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
)

// The Raya format carries one line per frame up to the last annotated
// frame: "[class,x,y,w,h,size,quality,shadow];" repeated per box, or "[]"
// for frames with no detection.

// ExportRaya writes per-frame annotation lines in Raya text format.
func ExportRaya(filename string, frames map[int][]annotation.Annotation) error {
	maxFrame := 0
	for frame := range frames {
		if frame > maxFrame {
			maxFrame = frame
		}
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create Raya file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for frame := 0; frame <= maxFrame; frame++ {
		anns := frames[frame]
		if len(anns) == 0 {
			if _, err := fmt.Fprintln(w, "[]"); err != nil {
				return err
			}
			continue
		}
		var line strings.Builder
		for _, ann := range anns {
			// Class id 0: the format predates multi-class support.
			fmt.Fprintf(&line, "[%d,%d,%d,%d,%d,%v,%v,%v];",
				0, ann.Box.X, ann.Box.Y, ann.Box.Width, ann.Box.Height,
				rayaAttr(ann.Attributes, "Size"),
				rayaAttr(ann.Attributes, "Quality"),
				rayaShadow(ann.Attributes))
		}
		if _, err := fmt.Fprintln(w, line.String()); err != nil {
			return err
		}
	}
	return w.Flush()
}

func rayaAttr(attrs annotation.Attributes, name string) any {
	if v, ok := attrs[name]; ok {
		return v
	}
	return annotation.UnsetAttr
}

func rayaShadow(attrs annotation.Attributes) any {
	if v, ok := attrs["Shadow"]; ok {
		return v
	}
	return 0
}
