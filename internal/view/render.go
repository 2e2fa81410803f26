package view

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/tracker"
)

// ErrGeolocationUnavailable is returned when the starting position cannot be
// determined. The map stays unrendered.
var ErrGeolocationUnavailable = errors.New("geolocation unavailable")

// Popup describes the marker popup.
type Popup struct {
	Content      string `json:"content"`
	ClassName    string `json:"class_name"`
	MinWidth     int    `json:"min_width"`
	MaxWidth     int    `json:"max_width"`
	AutoClose    bool   `json:"auto_close"`
	CloseOnClick bool   `json:"close_on_click"`
}

// PanOptions controls map re-centering.
type PanOptions struct {
	Animate  bool          `json:"animate"`
	Duration time.Duration `json:"duration"`
}

// MapRenderer draws the map and its markers.
type MapRenderer interface {
	CreateMap(center models.Coordinates, zoom int) error
	AddMarker(at models.Coordinates, popup Popup) (tracker.MarkerHandle, error)
	RemoveMarker(h tracker.MarkerHandle) error
	SetView(at models.Coordinates, zoom int, opts PanOptions) error
}

// ListRenderer draws workout rows.
type ListRenderer interface {
	InsertRow(w *models.Workout) (tracker.RowHandle, error)
	UpdateRow(h tracker.RowHandle, w *models.Workout) error
	RemoveRow(h tracker.RowHandle) error
}

// Locator resolves the position the map is first centred on.
type Locator interface {
	CurrentPosition(ctx context.Context) (models.Coordinates, error)
}

// StaticLocator always reports the same position. A nil At means no
// position is known.
type StaticLocator struct {
	At *models.Coordinates
}

func (l StaticLocator) CurrentPosition(context.Context) (models.Coordinates, error) {
	if l.At == nil {
		return models.Coordinates{}, ErrGeolocationUnavailable
	}
	return *l.At, nil
}

// PopupFor builds the popup bound to a workout's marker.
func PopupFor(w *models.Workout) Popup {
	return Popup{
		Content:   w.PopupContent(),
		ClassName: string(w.Kind) + "-popup",
		MinWidth:  100,
		MaxWidth:  300,
	}
}

// Row is the display form of a workout in the list.
type Row struct {
	ID          string      `json:"id"`
	Kind        models.Kind `json:"type"`
	Title       string      `json:"title"`
	Icon        string      `json:"icon"`
	Distance    float64     `json:"distance"`
	Duration    float64     `json:"duration"`
	Metric      string      `json:"metric"`
	MetricUnit  string      `json:"metric_unit"`
	Extra       float64     `json:"extra"`
	ExtraUnit   string      `json:"extra_unit"`
	Coordinates [2]float64  `json:"coordinates"`
}

// RowFor formats w for the list. Distances are miles, durations minutes.
func RowFor(w *models.Workout) Row {
	r := Row{
		ID:          w.ID.String(),
		Kind:        w.Kind,
		Title:       w.Description,
		Icon:        w.Icon(),
		Distance:    w.Distance,
		Duration:    w.Duration,
		Metric:      strconv.FormatFloat(w.Metric(), 'f', 1, 64),
		Extra:       w.Extra(),
		Coordinates: w.Coordinates.Pair(),
	}
	switch w.Kind {
	case models.KindRunning:
		r.MetricUnit, r.ExtraUnit = "min/mile", "spm"
	case models.KindCycling:
		r.MetricUnit, r.ExtraUnit = "mile/h", "m"
	}
	return r
}
