// Package track follows a single object across frames using a constant
// velocity Kalman filter. Detections below the score threshold are ignored,
// and short gaps in the recorded trajectory can be filled in afterwards by
// linear interpolation.
package track

import (
	"math"
	"sort"

	"github.com/reza-shahriari/VIAT/pkg/annotation"
)

const (
	// DefaultScoreThreshold drops low-confidence detections before they
	// reach the filter.
	DefaultScoreThreshold = 0.3

	// DefaultMaxAge is how many frames a track survives without a matching
	// detection before it is discarded.
	DefaultMaxAge = 30

	// maxInterpolationGap caps how wide a trajectory gap may be and still
	// get filled by Trajectory.
	maxInterpolationGap = 20
)

// Detection is a candidate box for one frame.
type Detection struct {
	Box   annotation.Box
	Score float64
}

// State is a tracked box reported by Update.
type State struct {
	Box   annotation.Box
	Score float64
	ID    int
}

// point is one recorded trajectory sample in center form.
type point struct {
	frame   int
	meas    [measDim]float64 // cx, cy, w, h/w
	score   float64
	skipped bool
}

// Tracker maintains a single track over successive calls to Update.
type Tracker struct {
	ScoreThreshold float64
	MaxAge         int

	kf      *kalmanFilter
	trackID int
	nextID  int
	age     int
	frame   int
	active  bool
	score   float64
	history []point
}

// New returns a tracker with the default threshold and age limit.
func New() *Tracker {
	return &Tracker{
		ScoreThreshold: DefaultScoreThreshold,
		MaxAge:         DefaultMaxAge,
		nextID:         1,
	}
}

// Reset discards the current track and its trajectory.
func (t *Tracker) Reset() {
	t.kf = nil
	t.active = false
	t.age = 0
	t.frame = 0
	t.history = nil
}

// Update advances the tracker by one frame. Of the detections above the score
// threshold, the highest scoring one feeds the filter; the rest are ignored.
// The returned slice holds the current track state, or is empty when no track
// is alive.
func (t *Tracker) Update(dets []Detection) []State {
	t.frame++

	best, ok := t.bestDetection(dets)
	if !ok {
		return t.coast()
	}

	z := boxToMeasurement(best.Box)
	if !t.active {
		t.kf = newKalmanFilter()
		t.kf.initialize(z[:])
		t.trackID = t.nextID
		t.nextID++
		t.active = true
	} else {
		t.kf.predict()
		if err := t.kf.update(z[:]); err != nil {
			// Singular innovation covariance; restart from the detection.
			t.kf.initialize(z[:])
		}
	}
	t.age = 0
	t.score = best.Score
	t.record(z, best.Score, false)
	return t.states()
}

func (t *Tracker) bestDetection(dets []Detection) (Detection, bool) {
	var best Detection
	found := false
	for _, d := range dets {
		if d.Score < t.ScoreThreshold || !d.Box.Valid() {
			continue
		}
		if !found || d.Score > best.Score {
			best = d
			found = true
		}
	}
	return best, found
}

// coast handles a frame without a usable detection: the filter predicts
// forward until the track exceeds MaxAge.
func (t *Tracker) coast() []State {
	if !t.active {
		return nil
	}
	t.age++
	if t.age > t.MaxAge {
		t.Reset()
		return nil
	}
	pred := t.kf.predict()
	var z [measDim]float64
	copy(z[:], pred)
	t.record(z, t.score, true)
	return t.states()
}

func (t *Tracker) record(z [measDim]float64, score float64, skipped bool) {
	t.history = append(t.history, point{
		frame:   t.frame,
		meas:    z,
		score:   score,
		skipped: skipped,
	})
}

func (t *Tracker) states() []State {
	box, ok := measurementToBox(t.currentMeasurement())
	if !ok {
		return nil
	}
	return []State{{Box: box, Score: t.score, ID: t.trackID}}
}

func (t *Tracker) currentMeasurement() [measDim]float64 {
	var z [measDim]float64
	for i := 0; i < measDim; i++ {
		z[i] = t.kf.x.AtVec(i)
	}
	return z
}

// TrackPoint is one frame of a reconstructed trajectory.
type TrackPoint struct {
	Frame int
	Box   annotation.Box
	Score float64
	ID    int
}

// Trajectory returns the recorded path with gaps of up to maxInterpolationGap
// frames filled by linear interpolation between the surrounding observations.
func (t *Tracker) Trajectory() []TrackPoint {
	observed := make([]point, 0, len(t.history))
	for _, p := range t.history {
		if !p.skipped {
			observed = append(observed, p)
		}
	}
	sort.Slice(observed, func(i, j int) bool { return observed[i].frame < observed[j].frame })

	var out []TrackPoint
	for i, p := range observed {
		out = appendPoint(out, p, t.trackID)
		if i+1 >= len(observed) {
			continue
		}
		next := observed[i+1]
		gap := next.frame - p.frame
		if gap <= 1 || gap > maxInterpolationGap {
			continue
		}
		for f := p.frame + 1; f < next.frame; f++ {
			alpha := float64(f-p.frame) / float64(gap)
			var z [measDim]float64
			for k := 0; k < measDim; k++ {
				z[k] = p.meas[k] + alpha*(next.meas[k]-p.meas[k])
			}
			mid := point{frame: f, meas: z, score: p.score + alpha*(next.score-p.score)}
			out = appendPoint(out, mid, t.trackID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Frame < out[j].Frame })
	return out
}

func appendPoint(out []TrackPoint, p point, id int) []TrackPoint {
	box, ok := measurementToBox(p.meas)
	if !ok {
		return out
	}
	return append(out, TrackPoint{Frame: p.frame, Box: box, Score: p.score, ID: id})
}

func boxToMeasurement(b annotation.Box) [measDim]float64 {
	w := float64(b.Width)
	h := float64(b.Height)
	return [measDim]float64{
		float64(b.X) + w/2,
		float64(b.Y) + h/2,
		w,
		h / w,
	}
}

func measurementToBox(z [measDim]float64) (annotation.Box, bool) {
	w := z[2]
	h := z[2] * z[3]
	if w <= 0 || h <= 0 || math.IsNaN(w) || math.IsNaN(h) {
		return annotation.Box{}, false
	}
	return annotation.Box{
		X:      int(math.Round(z[0] - w/2)),
		Y:      int(math.Round(z[1] - h/2)),
		Width:  int(math.Round(w)),
		Height: int(math.Round(h)),
	}, true
}
