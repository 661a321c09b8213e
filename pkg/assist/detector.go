package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"strings"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
	"github.com/reza-shahriari/VIAT/pkg/media"
)

// DefaultMinConfidence drops weak proposals before they become annotations.
const DefaultMinConfidence = 0.25

// modelMaxDim is the longest image side sent to the model. Bigger inputs
// slow inference without improving box quality.
const modelMaxDim = 1024

const detectionPrompt = `Find every distinct object in this image. Respond with ONLY a JSON object, no prose, in exactly this shape:
{
  "objects": [
    {
      "label": "short object name",
      "confidence": 0.0,
      "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}
    }
  ]
}
Box coordinates are normalized to [0,1] with x,y at the top-left corner. Confidence is your certainty from 0 to 1. List at most 20 objects.`

// proposalSet is the reply shape the detection prompt asks for.
type proposalSet struct {
	Objects []proposal `json:"objects"`
}

type proposal struct {
	Label      string                   `json:"label"`
	Confidence float64                  `json:"confidence"`
	Box        annotation.NormalizedBox `json:"box"`
}

// Detector turns vision model replies into annotation proposals.
type Detector struct {
	Client VisionClient
	Model  string
	// MinConfidence filters proposals. Zero means DefaultMinConfidence.
	MinConfidence float64
}

// NewDetector builds a detector for the given client and model name.
func NewDetector(client VisionClient, model string) *Detector {
	return &Detector{Client: client, Model: model, MinConfidence: DefaultMinConfidence}
}

// ProposeAnnotations asks the model for objects in img and returns them as
// pixel-space annotations. Labels become class names as-is; callers decide
// how to merge them into the project's class set.
func (d *Detector) ProposeAnnotations(ctx context.Context, img image.Image) ([]annotation.Annotation, error) {
	imgB64, err := media.PrepareForModel(img, "jpg", modelMaxDim, 85)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}

	reply, err := d.Client.Query(ctx, d.Model, detectionPrompt, imgB64)
	if err != nil {
		return nil, err
	}

	set, err := parseProposals(reply)
	if err != nil {
		return nil, err
	}

	min := d.MinConfidence
	if min == 0 {
		min = DefaultMinConfidence
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var anns []annotation.Annotation
	for _, p := range set.Objects {
		if p.Confidence < min || p.Label == "" {
			continue
		}
		box := annotation.FromNormalized(p.Box, width, height)
		box = box.ClampTo(width, height)
		if !box.Valid() {
			continue
		}
		anns = append(anns, annotation.Annotation{
			Box:   box,
			Class: strings.ToLower(strings.TrimSpace(p.Label)),
			Attributes: annotation.Attributes{
				"Size":    annotation.UnsetAttr,
				"Quality": annotation.UnsetAttr,
			},
		})
	}
	return anns, nil
}

// parseProposals extracts the proposal JSON from a model reply.
func parseProposals(raw string) (*proposalSet, error) {
	raw = sanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil, fmt.Errorf("model returned non-JSON response")
	}

	var set proposalSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	return &set, nil
}
