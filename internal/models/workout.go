package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the workout variant tag. It doubles as the persisted "type" value.
type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

// ErrUnknownKind is returned when a kind is neither running nor cycling.
var ErrUnknownKind = errors.New("unknown workout kind")

// ParseKind validates a raw kind string.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindRunning, KindCycling:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// descriptionLayout matches a long weekday, short month, numeric day and year.
const descriptionLayout = "Monday, Jan 2, 2006"

// Now is the clock used to stamp CreatedAt. Tests may replace it.
var Now = time.Now

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Pair returns the coordinates as [lat, lng].
func (c Coordinates) Pair() [2]float64 { return [2]float64{c.Lat, c.Lng} }

// Workout is one recorded session. Exactly one of the variant fields is
// meaningful, selected by Kind: Cadence/Pace for running,
// ElevationGain/Speed for cycling.
type Workout struct {
	ID          uuid.UUID   `json:"id"`
	Kind        Kind        `json:"type"`
	Coordinates Coordinates `json:"coordinates"`
	Distance    float64     `json:"distance"`
	Duration    float64     `json:"duration"`
	CreatedAt   time.Time   `json:"created_at"`
	Description string      `json:"description"`

	Cadence float64 `json:"cadence,omitempty"`
	Pace    float64 `json:"pace,omitempty"`

	ElevationGain float64 `json:"elevation_gain,omitempty"`
	Speed         float64 `json:"speed,omitempty"`
}

// NewRunning builds a running workout. Inputs are validated upstream.
func NewRunning(coords Coordinates, distance, duration, cadence float64) *Workout {
	w := newBase(KindRunning, coords, distance, duration)
	w.Cadence = cadence
	w.recalc()
	return w
}

// NewCycling builds a cycling workout. Inputs are validated upstream.
func NewCycling(coords Coordinates, distance, duration, elevationGain float64) *Workout {
	w := newBase(KindCycling, coords, distance, duration)
	w.ElevationGain = elevationGain
	w.recalc()
	return w
}

// New dispatches on kind. extra is the cadence for running and the
// elevation gain for cycling.
func New(kind Kind, coords Coordinates, distance, duration, extra float64) (*Workout, error) {
	switch kind {
	case KindRunning:
		return NewRunning(coords, distance, duration, extra), nil
	case KindCycling:
		return NewCycling(coords, distance, duration, extra), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func newBase(kind Kind, coords Coordinates, distance, duration float64) *Workout {
	w := &Workout{
		ID:          uuid.New(),
		Kind:        kind,
		Coordinates: coords,
		Distance:    distance,
		Duration:    duration,
		CreatedAt:   Now(),
	}
	w.Description = fmt.Sprintf("%s on %s", kind.Title(), w.CreatedAt.Format(descriptionLayout))
	return w
}

// Update replaces the mutable fields in place and recomputes the derived
// metric. ID, Coordinates and Description are left alone.
func (w *Workout) Update(distance, duration, extra float64) {
	w.Distance = distance
	w.Duration = duration
	switch w.Kind {
	case KindRunning:
		w.Cadence = extra
	case KindCycling:
		w.ElevationGain = extra
	}
	w.recalc()
}

// Clone returns an independent copy of w.
func (w *Workout) Clone() *Workout {
	c := *w
	return &c
}

func (w *Workout) recalc() {
	switch w.Kind {
	case KindRunning:
		w.Pace = w.Duration / w.Distance
	case KindCycling:
		w.Speed = w.Distance / (w.Duration / 60)
	}
}

// Extra returns the variant-specific input: cadence or elevation gain.
func (w *Workout) Extra() float64 {
	if w.Kind == KindCycling {
		return w.ElevationGain
	}
	return w.Cadence
}

// Metric returns the derived value: pace for running, speed for cycling.
func (w *Workout) Metric() float64 {
	if w.Kind == KindCycling {
		return w.Speed
	}
	return w.Pace
}

// Icon returns the emoji shown next to the workout on the map and list.
func (w *Workout) Icon() string {
	if w.Kind == KindCycling {
		return "🚴‍♀️"
	}
	return "🏃‍♂️"
}

// PopupContent is the text bound to the workout's map marker.
func (w *Workout) PopupContent() string {
	return w.Icon() + " " + w.Description
}

// Title returns the kind with its first letter upper-cased.
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}
