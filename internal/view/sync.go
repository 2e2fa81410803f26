// Package view turns user events into store mutations and keeps the map
// markers and list rows in step with the store.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/mapty/internal/events"
	"github.com/claude/mapty/internal/metrics"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/tracker"
	"github.com/google/uuid"
)

var (
	// ErrMapUnavailable is returned for map interactions before the map is drawn.
	ErrMapUnavailable = errors.New("map is not available")
	// ErrNoPendingLocation is returned when a workout is submitted without a
	// map click to place it.
	ErrNoPendingLocation = errors.New("no map location selected")
	// ErrEditInProgress is returned when a second edit form is requested.
	ErrEditInProgress = errors.New("another workout is being edited")
	// ErrNotEditing is returned when an edit is submitted for a workout whose
	// edit form is not open.
	ErrNotEditing = errors.New("workout is not being edited")
)

// DefaultZoom is the map zoom used for the initial view and re-centering.
const DefaultZoom = 14

const (
	msgCreated      = "Workout successfully created!"
	msgUpdated      = "Workout successfully updated!"
	msgDeleted      = "Workout successfully deleted!"
	msgDeletedAll   = "All workouts successfully deleted!"
	msgNoPosition   = "Sorry we could not find your current position!"
	hintCreateFirst = "Click at any spot on the map to create a new workout!"
)

// Deps are the collaborators a Sync drives.
type Deps struct {
	Store     *tracker.Store
	Map       MapRenderer
	List      ListRenderer
	Locator   Locator
	Notifier  *Notifier
	Publisher events.Publisher // called during the event, must not block; see events.Dispatcher
	Metrics   *metrics.Collectors
	Log       *slog.Logger
	Zoom      int
}

// FormInput holds raw form values. Only the field matching the workout kind
// (Cadence for running, Elevation for cycling) is read.
type FormInput struct {
	Type      string `json:"type"`
	Distance  string `json:"distance"`
	Duration  string `json:"duration"`
	Cadence   string `json:"cadence"`
	Elevation string `json:"elevation"`
}

func (in FormInput) values(kind models.Kind) (distance, duration, extra float64) {
	raw := in.Cadence
	if kind == models.KindCycling {
		raw = in.Elevation
	}
	return ParseInput(in.Distance), ParseInput(in.Duration), ParseInput(raw)
}

// EditForm is the prefilled state of an open edit form.
type EditForm struct {
	ID       uuid.UUID   `json:"id"`
	Kind     models.Kind `json:"type"`
	Distance float64     `json:"distance"`
	Duration float64     `json:"duration"`
	Extra    float64     `json:"extra"`
}

// createForm is the state of the new-workout form opened by a map click.
type createForm struct {
	open bool
	kind models.Kind
	at   models.Coordinates
}

// State is a snapshot of what the UI currently shows.
type State struct {
	MapReady      bool                `json:"map_ready"`
	Hint          string              `json:"hint,omitempty"`
	FormOpen      bool                `json:"form_open"`
	FormType      models.Kind         `json:"form_type"`
	FormAt        *models.Coordinates `json:"form_at,omitempty"`
	EditingID     *uuid.UUID          `json:"editing_id,omitempty"`
	BulkControls  bool                `json:"bulk_controls"`
	PromptPending bool                `json:"prompt_pending"`
	Workouts      int                 `json:"workouts"`
	Notification  *Message            `json:"notification,omitempty"`
}

// Sync handles one user event at a time.
type Sync struct {
	mu        sync.Mutex
	store     *tracker.Store
	maps      MapRenderer
	list      ListRenderer
	locator   Locator
	notifier  *Notifier
	publisher events.Publisher
	metrics   *metrics.Collectors
	log       *slog.Logger
	zoom      int
	now       func() time.Time

	mapReady bool
	form     createForm
	editing  uuid.UUID
	prompt   *Prompt
}

// New creates a Sync. Call Start before handling events.
func New(d Deps) *Sync {
	if d.Notifier == nil {
		d.Notifier = NewNotifier(DefaultNotifyTTL)
	}
	if d.Publisher == nil {
		d.Publisher = events.Nop{}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Zoom == 0 {
		d.Zoom = DefaultZoom
	}
	return &Sync{
		store:     d.Store,
		maps:      d.Map,
		list:      d.List,
		locator:   d.Locator,
		notifier:  d.Notifier,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		log:       d.Log,
		zoom:      d.Zoom,
		now:       time.Now,
		form:      createForm{kind: models.KindRunning},
	}
}

// Start restores saved workouts, renders their rows, then locates the user
// and draws the map with a marker per workout. A failed lookup alerts the
// user and returns ErrGeolocationUnavailable; the list stays usable.
func (s *Sync) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.Restore(ctx); err != nil {
		return err
	}
	for _, e := range s.store.Entries() {
		s.renderRowLocked(e.Workout)
	}

	center, err := s.locator.CurrentPosition(ctx)
	if err != nil {
		s.notifier.Alert(msgNoPosition)
		s.log.Warn("geolocation failed", "error", err)
		return fmt.Errorf("%w: %v", ErrGeolocationUnavailable, err)
	}
	if err := s.maps.CreateMap(center, s.zoom); err != nil {
		return fmt.Errorf("creating map: %w", err)
	}
	s.mapReady = true

	for _, e := range s.store.Entries() {
		s.renderMarkerLocked(e.Workout)
	}
	s.log.Info("map ready", "lat", center.Lat, "lng", center.Lng, "workouts", s.store.Len())
	return nil
}

// MapClick opens the new-workout form at the clicked position.
func (s *Sync) MapClick(at models.Coordinates) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mapReady {
		return ErrMapUnavailable
	}
	s.form.open = true
	s.form.at = at
	return nil
}

// ToggleType switches the form between running and cycling and returns the
// new selection.
func (s *Sync) ToggleType() models.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.form.kind == models.KindCycling {
		s.form.kind = models.KindRunning
	} else {
		s.form.kind = models.KindCycling
	}
	return s.form.kind
}

// CancelCreate hides and clears the new-workout form.
func (s *Sync) CancelCreate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetFormLocked()
}

// SubmitCreate validates the form and records a workout at the last clicked
// position. Invalid input is reported through the notifier and leaves all
// state as it was.
func (s *Sync) SubmitCreate(ctx context.Context, in FormInput) (*models.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitCreateLocked(ctx, in)
}

// CreateAt is a map click at at followed by a submit of in, handled as one
// event.
func (s *Sync) CreateAt(ctx context.Context, at models.Coordinates, in FormInput) (*models.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mapReady {
		return nil, ErrMapUnavailable
	}
	s.form.open = true
	s.form.at = at
	return s.submitCreateLocked(ctx, in)
}

func (s *Sync) submitCreateLocked(ctx context.Context, in FormInput) (*models.Workout, error) {
	if !s.form.open {
		return nil, ErrNoPendingLocation
	}

	kind := s.form.kind
	if in.Type != "" {
		k, err := models.ParseKind(in.Type)
		if err != nil {
			return nil, err
		}
		kind = k
	}

	distance, duration, extra := in.values(kind)
	if err := s.validateLocked(kind, distance, duration, extra); err != nil {
		return nil, err
	}

	w, err := s.store.Create(ctx, kind, s.form.at, distance, duration, extra)
	if err != nil {
		return nil, err
	}

	if err := s.mountLocked(w); err != nil {
		if _, derr := s.store.Delete(ctx, w.ID); derr != nil {
			s.log.Error("rolling back workout after render failure", "id", w.ID, "error", derr)
		}
		return nil, err
	}

	s.notifier.Show(msgCreated, ColorSuccess)
	s.resetFormLocked()
	s.publishLocked(ctx, events.Event{Type: events.WorkoutCreated, WorkoutID: w.ID.String(), Workout: w})
	return w, nil
}

// OpenEdit opens the edit form for id, prefilled with its current values.
// Only one edit form may be open at a time.
func (s *Sync) OpenEdit(id uuid.UUID) (EditForm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editing != uuid.Nil {
		return EditForm{}, ErrEditInProgress
	}
	w, err := s.store.Find(id)
	if err != nil {
		return EditForm{}, err
	}
	s.editing = id
	return EditForm{ID: id, Kind: w.Kind, Distance: w.Distance, Duration: w.Duration, Extra: w.Extra()}, nil
}

// CancelEdit closes the edit form without saving.
func (s *Sync) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = uuid.Nil
}

// SubmitEdit applies the edit form to the workout being edited. On invalid
// input the form stays open.
func (s *Sync) SubmitEdit(ctx context.Context, id uuid.UUID, in FormInput) (*models.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editing == uuid.Nil || s.editing != id {
		return nil, ErrNotEditing
	}
	entry, err := s.store.Lookup(id)
	if err != nil {
		return nil, err
	}

	kind := entry.Workout.Kind
	distance, duration, extra := in.values(kind)
	if err := s.validateLocked(kind, distance, duration, extra); err != nil {
		return nil, err
	}

	w, err := s.store.Update(ctx, id, distance, duration, extra)
	if err != nil {
		return nil, err
	}
	if entry.Row != "" {
		if err := s.list.UpdateRow(entry.Row, w); err != nil {
			s.log.Warn("updating row", "id", id, "error", err)
		}
	}

	s.notifier.Show(msgUpdated, ColorSuccess)
	s.editing = uuid.Nil
	s.publishLocked(ctx, events.Event{Type: events.WorkoutUpdated, WorkoutID: id.String(), Workout: w})
	return w, nil
}

// Delete removes a workout together with its marker and row. An open edit
// form for the same workout is closed.
func (s *Sync) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, tracker.ErrNotFound) {
			s.log.Warn("delete of unknown workout", "id", id)
		}
		return err
	}
	s.unmountLocked(entry)
	if s.editing == id {
		s.editing = uuid.Nil
	}

	s.notifier.Show(msgDeleted, ColorSuccess)
	s.publishLocked(ctx, events.Event{Type: events.WorkoutDeleted, WorkoutID: id.String()})
	return nil
}

// Focus re-centres the map on a workout.
func (s *Sync) Focus(id uuid.UUID) (*models.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mapReady {
		return nil, ErrMapUnavailable
	}
	w, err := s.store.Find(id)
	if err != nil {
		return nil, err
	}
	if err := s.maps.SetView(w.Coordinates, s.zoom, PanOptions{Animate: true, Duration: time.Second}); err != nil {
		return nil, fmt.Errorf("centering map: %w", err)
	}
	return w, nil
}

// Workouts returns the current workouts in order.
func (s *Sync) Workouts() []*models.Workout {
	return s.store.Workouts()
}

// Workout returns one workout by ID.
func (s *Sync) Workout(id uuid.UUID) (*models.Workout, error) {
	return s.store.Find(id)
}

// State reports what the UI currently shows.
func (s *Sync) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.store.Len()
	st := State{
		MapReady:      s.mapReady,
		FormOpen:      s.form.open,
		FormType:      s.form.kind,
		BulkControls:  n > 1,
		PromptPending: s.prompt != nil,
		Workouts:      n,
	}
	if s.form.open {
		at := s.form.at
		st.FormAt = &at
	}
	if s.editing != uuid.Nil {
		id := s.editing
		st.EditingID = &id
	}
	if s.mapReady && n == 0 && !s.form.open {
		st.Hint = hintCreateFirst
	}
	if m, ok := s.notifier.Current(); ok {
		st.Notification = &m
	}
	return st
}

func (s *Sync) validateLocked(kind models.Kind, distance, duration, extra float64) error {
	err := Validate(kind, distance, duration, extra)
	var ve *ValidationError
	if errors.As(err, &ve) {
		s.notifier.Show(ve.Error(), ColorError)
		s.metrics.Rejected(string(ve.Reason))
	}
	return err
}

// mountLocked renders a new workout's marker and row, undoing the marker if
// the row fails so nothing is left half drawn.
func (s *Sync) mountLocked(w *models.Workout) error {
	marker, err := s.maps.AddMarker(w.Coordinates, PopupFor(w))
	if err != nil {
		return fmt.Errorf("adding marker: %w", err)
	}
	row, err := s.list.InsertRow(w)
	if err != nil {
		if rerr := s.maps.RemoveMarker(marker); rerr != nil {
			s.log.Warn("removing marker", "id", w.ID, "error", rerr)
		}
		return fmt.Errorf("inserting row: %w", err)
	}
	if err := s.store.AttachMarker(w.ID, marker); err != nil {
		return err
	}
	return s.store.AttachRow(w.ID, row)
}

func (s *Sync) renderRowLocked(w *models.Workout) {
	row, err := s.list.InsertRow(w)
	if err != nil {
		s.log.Warn("rendering row", "id", w.ID, "error", err)
		return
	}
	if err := s.store.AttachRow(w.ID, row); err != nil {
		s.log.Warn("attaching row", "id", w.ID, "error", err)
	}
}

func (s *Sync) renderMarkerLocked(w *models.Workout) {
	marker, err := s.maps.AddMarker(w.Coordinates, PopupFor(w))
	if err != nil {
		s.log.Warn("rendering marker", "id", w.ID, "error", err)
		return
	}
	if err := s.store.AttachMarker(w.ID, marker); err != nil {
		s.log.Warn("attaching marker", "id", w.ID, "error", err)
	}
}

func (s *Sync) unmountLocked(e tracker.Entry) {
	if e.Marker != "" {
		if err := s.maps.RemoveMarker(e.Marker); err != nil {
			s.log.Warn("removing marker", "id", e.Workout.ID, "error", err)
		}
	}
	if e.Row != "" {
		if err := s.list.RemoveRow(e.Row); err != nil {
			s.log.Warn("removing row", "id", e.Workout.ID, "error", err)
		}
	}
}

func (s *Sync) resetFormLocked() {
	s.form.open = false
	s.form.at = models.Coordinates{}
}

func (s *Sync) publishLocked(ctx context.Context, e events.Event) {
	e.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn("publishing event", "type", e.Type, "error", err)
	}
}
