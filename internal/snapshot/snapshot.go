// Package snapshot converts the workout collection to and from the single
// storage slot it is persisted in.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/claude/mapty/internal/models"
)

// ErrMalformed marks a stored blob that could not be reconstructed.
var ErrMalformed = errors.New("malformed workout snapshot")

// entry is the persisted shape of one workout. Derived metrics, IDs and
// descriptions are rebuilt by the constructors on load.
type entry struct {
	Type          models.Kind `json:"type"`
	Coordinates   []float64   `json:"coordinates"`
	Distance      *float64    `json:"distance"`
	Duration      *float64    `json:"duration"`
	Cadence       *float64    `json:"cadence,omitempty"`
	ElevationGain *float64    `json:"elevationGain,omitempty"`
}

// Encode serializes workouts in order.
func Encode(workouts []*models.Workout) ([]byte, error) {
	out := make([]entry, 0, len(workouts))
	for _, w := range workouts {
		e := entry{
			Type:        w.Kind,
			Coordinates: []float64{w.Coordinates.Lat, w.Coordinates.Lng},
			Distance:    ptr(w.Distance),
			Duration:    ptr(w.Duration),
		}
		switch w.Kind {
		case models.KindRunning:
			e.Cadence = ptr(w.Cadence)
		case models.KindCycling:
			e.ElevationGain = ptr(w.ElevationGain)
		default:
			return nil, fmt.Errorf("encoding workout %s: %w", w.ID, models.ErrUnknownKind)
		}
		out = append(out, e)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// Decode rebuilds workouts from a stored blob. Absent or malformed data
// yields an empty slice.
func Decode(data []byte) []*models.Workout {
	workouts, err := DecodeStrict(data)
	if err != nil {
		return []*models.Workout{}
	}
	return workouts
}

// DecodeStrict is Decode with the failure reason preserved. An absent blob
// is not an error.
func DecodeStrict(data []byte) ([]*models.Workout, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []*models.Workout{}, nil
	}

	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	workouts := make([]*models.Workout, 0, len(entries))
	for i, e := range entries {
		w, err := e.workout()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformed, i, err)
		}
		workouts = append(workouts, w)
	}
	return workouts, nil
}

func (e entry) workout() (*models.Workout, error) {
	if len(e.Coordinates) != 2 {
		return nil, fmt.Errorf("coordinates must be a pair, got %d values", len(e.Coordinates))
	}
	if e.Distance == nil || e.Duration == nil {
		return nil, errors.New("distance and duration are required")
	}
	coords := models.Coordinates{Lat: e.Coordinates[0], Lng: e.Coordinates[1]}

	switch e.Type {
	case models.KindRunning:
		if e.Cadence == nil {
			return nil, errors.New("running entry without cadence")
		}
		return models.NewRunning(coords, *e.Distance, *e.Duration, *e.Cadence), nil
	case models.KindCycling:
		if e.ElevationGain == nil {
			return nil, errors.New("cycling entry without elevationGain")
		}
		return models.NewCycling(coords, *e.Distance, *e.Duration, *e.ElevationGain), nil
	}
	return nil, fmt.Errorf("%w: %q", models.ErrUnknownKind, e.Type)
}

func ptr(v float64) *float64 { return &v }
