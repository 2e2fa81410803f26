package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/view"
)

var (
	errMapNotCreated = errors.New("map has not been created")
	errUnknownHandle = errors.New("unknown handle")
)

// Marker is one rendered map marker.
type Marker struct {
	Handle      tracker.MarkerHandle `json:"handle"`
	Coordinates [2]float64           `json:"coordinates"`
	Popup       view.Popup           `json:"popup"`
}

// MapState is what MarkerLayer currently displays.
type MapState struct {
	Ready   bool            `json:"ready"`
	Center  [2]float64      `json:"center"`
	Zoom    int             `json:"zoom"`
	Pan     view.PanOptions `json:"pan"`
	Markers []Marker        `json:"markers"`
}

// MarkerLayer is an in-memory map that records what a browser map would
// show. It implements view.MapRenderer.
type MarkerLayer struct {
	mu      sync.RWMutex
	ready   bool
	center  models.Coordinates
	zoom    int
	pan     view.PanOptions
	markers []Marker
	seq     int
}

func NewMarkerLayer() *MarkerLayer {
	return &MarkerLayer{}
}

func (m *MarkerLayer) CreateMap(center models.Coordinates, zoom int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = true
	m.center = center
	m.zoom = zoom
	return nil
}

func (m *MarkerLayer) AddMarker(at models.Coordinates, popup view.Popup) (tracker.MarkerHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return "", errMapNotCreated
	}
	m.seq++
	h := tracker.MarkerHandle(fmt.Sprintf("marker-%d", m.seq))
	m.markers = append(m.markers, Marker{Handle: h, Coordinates: at.Pair(), Popup: popup})
	return h, nil
}

func (m *MarkerLayer) RemoveMarker(h tracker.MarkerHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, mk := range m.markers {
		if mk.Handle == h {
			m.markers = append(m.markers[:i], m.markers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("marker %s: %w", h, errUnknownHandle)
}

func (m *MarkerLayer) SetView(at models.Coordinates, zoom int, opts view.PanOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return errMapNotCreated
	}
	m.center = at
	m.zoom = zoom
	m.pan = opts
	return nil
}

// State returns a copy of the displayed map.
func (m *MarkerLayer) State() MapState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	markers := make([]Marker, len(m.markers))
	copy(markers, m.markers)
	return MapState{
		Ready:   m.ready,
		Center:  m.center.Pair(),
		Zoom:    m.zoom,
		Pan:     m.pan,
		Markers: markers,
	}
}

// RenderedRow is a list row with its handle.
type RenderedRow struct {
	Handle tracker.RowHandle `json:"handle"`
	view.Row
}

// RowList is an in-memory workout list. New rows go to the top, directly
// under the form. It implements view.ListRenderer.
type RowList struct {
	mu   sync.RWMutex
	rows []RenderedRow
	seq  int
}

func NewRowList() *RowList {
	return &RowList{}
}

func (l *RowList) InsertRow(w *models.Workout) (tracker.RowHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	h := tracker.RowHandle(fmt.Sprintf("row-%d", l.seq))
	l.rows = append([]RenderedRow{{Handle: h, Row: view.RowFor(w)}}, l.rows...)
	return h, nil
}

func (l *RowList) UpdateRow(h tracker.RowHandle, w *models.Workout) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.rows {
		if l.rows[i].Handle == h {
			l.rows[i].Row = view.RowFor(w)
			return nil
		}
	}
	return fmt.Errorf("row %s: %w", h, errUnknownHandle)
}

func (l *RowList) RemoveRow(h tracker.RowHandle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.rows {
		if r.Handle == h {
			l.rows = append(l.rows[:i], l.rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("row %s: %w", h, errUnknownHandle)
}

// Rows returns the rows in display order, newest first.
func (l *RowList) Rows() []RenderedRow {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rows := make([]RenderedRow, len(l.rows))
	copy(rows, l.rows)
	return rows
}
