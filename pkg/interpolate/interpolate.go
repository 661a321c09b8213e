// Package interpolate fills annotation gaps between keyframes: boxes are
// matched across the two endpoint frames by class and overlap, then their
// geometry and numeric attributes are linearly interpolated into every
// unannotated frame of the gap.
package interpolate

import (
	"fmt"
	"math"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
)

// DefaultMinIoU is the overlap threshold below which two boxes of the same
// class are not considered the same object.
const DefaultMinIoU = 0.1

// Interpolator matches and interpolates annotations between keyframes.
type Interpolator struct {
	// MinIoU is the match threshold; zero means DefaultMinIoU.
	MinIoU float64
}

func (ip Interpolator) minIoU() float64 {
	if ip.MinIoU > 0 {
		return ip.MinIoU
	}
	return DefaultMinIoU
}

// Interpolate fills the frames strictly between startFrame and endFrame.
// Frames that already carry annotations are left untouched. It returns the
// number of frames written.
func (ip Interpolator) Interpolate(frames map[int][]annotation.Annotation, startFrame, endFrame int) (int, error) {
	if endFrame <= startFrame {
		return 0, fmt.Errorf("end frame %d must come after start frame %d", endFrame, startFrame)
	}
	startAnns := frames[startFrame]
	endAnns := frames[endFrame]
	if len(startAnns) == 0 || len(endAnns) == 0 {
		return 0, fmt.Errorf("both start and end frames must have annotations")
	}

	matched := ip.match(startAnns, endAnns)
	if len(matched) == 0 {
		return 0, fmt.Errorf("could not match any annotations between frames %d and %d", startFrame, endFrame)
	}

	filled := 0
	for frame := startFrame + 1; frame < endFrame; frame++ {
		if len(frames[frame]) > 0 {
			continue
		}
		alpha := float64(frame-startFrame) / float64(endFrame-startFrame)
		anns := make([]annotation.Annotation, 0, len(matched))
		for _, pair := range matched {
			anns = append(anns, lerpAnnotation(pair.start, pair.end, alpha))
		}
		frames[frame] = anns
		filled++
	}
	return filled, nil
}

type matchedPair struct {
	start annotation.Annotation
	end   annotation.Annotation
}

// match pairs annotations across the endpoint frames: grouped by class,
// singletons pair directly, the rest greedily by best IoU.
func (ip Interpolator) match(startAnns, endAnns []annotation.Annotation) []matchedPair {
	startByClass := groupByClass(startAnns)
	endByClass := groupByClass(endAnns)

	var pairs []matchedPair
	for class, starts := range startByClass {
		ends, ok := endByClass[class]
		if !ok {
			continue
		}
		if len(starts) == 1 && len(ends) == 1 {
			pairs = append(pairs, matchedPair{start: starts[0], end: ends[0]})
			continue
		}

		used := map[int]struct{}{}
		for _, start := range starts {
			bestIdx := -1
			bestIoU := -1.0
			for i, end := range ends {
				if _, taken := used[i]; taken {
					continue
				}
				if iou := start.Box.IoU(end.Box); iou > bestIoU {
					bestIoU = iou
					bestIdx = i
				}
			}
			if bestIdx >= 0 && bestIoU > ip.minIoU() {
				pairs = append(pairs, matchedPair{start: start, end: ends[bestIdx]})
				used[bestIdx] = struct{}{}
			}
		}
	}
	return pairs
}

func groupByClass(anns []annotation.Annotation) map[string][]annotation.Annotation {
	out := map[string][]annotation.Annotation{}
	for _, ann := range anns {
		out[ann.Class] = append(out[ann.Class], ann)
	}
	return out
}

func lerpAnnotation(start, end annotation.Annotation, alpha float64) annotation.Annotation {
	box := annotation.Box{
		X:      int(float64(start.Box.X)*(1-alpha) + float64(end.Box.X)*alpha),
		Y:      int(float64(start.Box.Y)*(1-alpha) + float64(end.Box.Y)*alpha),
		Width:  int(float64(start.Box.Width)*(1-alpha) + float64(end.Box.Width)*alpha),
		Height: int(float64(start.Box.Height)*(1-alpha) + float64(end.Box.Height)*alpha),
	}
	out := annotation.Annotation{
		Box:        box,
		Class:      start.Class,
		Attributes: lerpAttributes(start.Attributes, end.Attributes, alpha),
		Color:      start.Color,
	}
	return out
}

// lerpAttributes interpolates numeric attributes and switches discrete
// ones at the midpoint. Attributes present on only one side carry through.
func lerpAttributes(start, end annotation.Attributes, alpha float64) annotation.Attributes {
	out := annotation.Attributes{}
	for key := range start {
		out[key] = start[key]
	}
	for key := range end {
		if _, ok := out[key]; !ok {
			out[key] = end[key]
		}
	}

	for key := range out {
		sv, inStart := start[key]
		ev, inEnd := end[key]
		if !inStart || !inEnd {
			continue
		}
		sNum, sIsNum := asFloat(sv)
		eNum, eIsNum := asFloat(ev)
		switch {
		case sIsNum && eIsNum:
			v := sNum*(1-alpha) + eNum*alpha
			if isInt(sv) && isInt(ev) {
				out[key] = int(math.Round(v))
			} else {
				out[key] = v
			}
		default:
			// Booleans, strings and mixed types switch at the midpoint.
			if alpha > 0.5 {
				out[key] = ev
			} else {
				out[key] = sv
			}
		}
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func isInt(v any) bool {
	_, ok := v.(int)
	return ok
}
