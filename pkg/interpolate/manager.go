package interpolate

import "github.com/reza-shahriari/VIAT/pkg/annotation"

// MinInterval is the smallest usable keyframe interval.
const MinInterval = 2

// Manager drives keyframe-interval interpolation during annotation work:
// the caller annotates every Nth frame, the manager interpolates the gap as
// soon as the user moves on.
type Manager struct {
	Interpolator Interpolator

	active        bool
	interval      int
	lastAnnotated int
	hasLast       bool
	pending       bool
}

// NewManager creates a manager with the given keyframe interval.
func NewManager(interval int) *Manager {
	m := &Manager{interval: MinInterval}
	m.SetInterval(interval)
	return m
}

// SetActive switches interpolation mode; turning it off clears state.
func (m *Manager) SetActive(active bool) {
	m.active = active
	if !active {
		m.hasLast = false
		m.pending = false
	}
}

// Active reports whether interpolation mode is on.
func (m *Manager) Active() bool { return m.active }

// SetInterval sets the keyframe interval, floored at MinInterval.
func (m *Manager) SetInterval(interval int) {
	if interval < MinInterval {
		interval = MinInterval
	}
	m.interval = interval
}

// Interval returns the configured keyframe interval.
func (m *Manager) Interval() int { return m.interval }

// NextKeyframe suggests the next frame to annotate after frame, capped to
// totalFrames when it is known (>0).
func (m *Manager) NextKeyframe(frame, totalFrames int) int {
	next := frame + m.interval
	if totalFrames > 0 && next > totalFrames-1 {
		next = totalFrames - 1
	}
	return next
}

// OnFrameAnnotated records that a frame was annotated. From the second
// keyframe on, a gap of at least two frames arms a pending interpolation.
func (m *Manager) OnFrameAnnotated(frame int) {
	if !m.active {
		return
	}
	if !m.hasLast {
		m.lastAnnotated = frame
		m.hasLast = true
		return
	}
	if abs(frame-m.lastAnnotated) >= 2 {
		m.pending = true
	}
	m.lastAnnotated = frame
}

// Pending reports whether an interpolation is armed.
func (m *Manager) Pending() bool { return m.pending }

// OnFrameChanged fires the pending interpolation once the user navigates
// away from the last annotated frame. It returns the number of frames
// filled (0 when nothing ran).
func (m *Manager) OnFrameChanged(newFrame int, frames map[int][]annotation.Annotation) int {
	if !m.active || !m.pending || newFrame == m.lastAnnotated {
		return 0
	}
	return m.Flush(frames)
}

// Flush performs the pending interpolation between the previous annotated
// frame and the last one.
func (m *Manager) Flush(frames map[int][]annotation.Annotation) int {
	if !m.pending || !m.hasLast {
		return 0
	}
	m.pending = false

	prev := -1
	for frame, anns := range frames {
		if frame < m.lastAnnotated && len(anns) > 0 && frame > prev {
			prev = frame
		}
	}
	if prev < 0 {
		return 0
	}
	filled, err := m.Interpolator.Interpolate(frames, prev, m.lastAnnotated)
	if err != nil {
		return 0
	}
	return filled
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
