package stori

import "sort"

type (
	// Curve selects how the span leading *into* a point is interpolated.
	Curve int

	// AutomationPoint is one control point on a lane.
	AutomationPoint struct {
		Beat  float64
		Value float32
		Curve Curve
	}

	// AutomationLane is a per-parameter timeline of control points for one
	// track. Initial is the mixer value snapshotted when the lane was
	// created; it is what the lane evaluates to before the first point, so
	// that starting to record automation never pops the parameter away from
	// its current value. A nil Initial falls back to the parameter's built-in
	// default.
	AutomationLane struct {
		Parameter Parameter
		Initial   *float32          `yaml:",omitempty"`
		Points    []AutomationPoint `yaml:",omitempty"` // ordered by Beat
	}
)

const (
	CurveLinear Curve = iota
	CurveSmooth
	CurveExponential
)

func (c Curve) String() string {
	switch c {
	case CurveLinear:
		return "linear"
	case CurveSmooth:
		return "smooth"
	case CurveExponential:
		return "exponential"
	}
	return "unknown"
}

// ease maps linear progress t in [0,1] onto the curve.
func (c Curve) ease(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	switch c {
	case CurveSmooth:
		return t * t * (3 - 2*t) // smoothstep
	case CurveExponential:
		return t * t
	}
	return t
}

// NewAutomationLane creates a lane for the parameter, snapshotting the given
// mixer value as the lane's initial value.
func NewAutomationLane(param Parameter, initial float32) AutomationLane {
	v := initial
	return AutomationLane{Parameter: param, Initial: &v}
}

// Copy makes a deep copy of an AutomationLane.
func (l *AutomationLane) Copy() AutomationLane {
	points := make([]AutomationPoint, len(l.Points))
	copy(points, l.Points)
	var initial *float32
	if l.Initial != nil {
		v := *l.Initial
		initial = &v
	}
	return AutomationLane{Parameter: l.Parameter, Initial: initial, Points: points}
}

func (l *AutomationLane) initialValue() float32 {
	if l.Initial != nil {
		return *l.Initial
	}
	return l.Parameter.DefaultValue()
}

// ValueAt evaluates the lane at the given beat. The lookup is a binary search
// over the ordered point slice, so it is allocation-free and cheap enough for
// audio-block granularity even on long lanes.
//
//   - no points: the initial value
//   - before the first point: the initial value (never the first point's
//     value, so the pre-automation mixer state is preserved)
//   - exactly at a point: that point's value
//   - between two points: interpolated with the later point's curve
//   - after the last point: the last point's value, held
func (l *AutomationLane) ValueAt(beat float64) float32 {
	if len(l.Points) == 0 {
		return l.initialValue()
	}
	// idx is the first point strictly after beat.
	idx := sort.Search(len(l.Points), func(i int) bool { return l.Points[i].Beat > beat })
	if idx == 0 {
		return l.initialValue()
	}
	a := l.Points[idx-1]
	if idx == len(l.Points) {
		return a.Value
	}
	b := l.Points[idx]
	span := b.Beat - a.Beat
	if span <= 0 {
		return b.Value
	}
	t := b.Curve.ease((beat - a.Beat) / span)
	return a.Value + (b.Value-a.Value)*float32(t)
}

// AddPoint inserts a point keeping the slice ordered by beat. A point at an
// already-occupied beat replaces the existing one.
func (l *AutomationLane) AddPoint(p AutomationPoint) {
	idx := sort.Search(len(l.Points), func(i int) bool { return l.Points[i].Beat >= p.Beat })
	if idx < len(l.Points) && l.Points[idx].Beat == p.Beat {
		l.Points[idx] = p
		return
	}
	l.Points = append(l.Points, AutomationPoint{})
	copy(l.Points[idx+1:], l.Points[idx:])
	l.Points[idx] = p
}

// RemovePoint deletes the point at the given beat, if one exists.
func (l *AutomationLane) RemovePoint(beat float64) bool {
	idx := sort.Search(len(l.Points), func(i int) bool { return l.Points[i].Beat >= beat })
	if idx >= len(l.Points) || l.Points[idx].Beat != beat {
		return false
	}
	l.Points = append(l.Points[:idx], l.Points[idx+1:]...)
	return true
}
