// Package tracker owns the authoritative workout collection and keeps it in
// step with the storage slot it is snapshotted to.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/mapty/internal/metrics"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/snapshot"
	"github.com/claude/mapty/internal/storage"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no workout has the requested ID.
var ErrNotFound = errors.New("workout not found")

// MarkerHandle identifies a map marker owned by the map renderer.
type MarkerHandle string

// RowHandle identifies a list row owned by the list renderer.
type RowHandle string

// Entry ties a workout to its marker and row. Keeping the three together in
// one slice element is what keeps them index-aligned. Workout is read-only.
type Entry struct {
	Workout *models.Workout
	Marker  MarkerHandle
	Row     RowHandle
}

// Store holds workouts in creation order.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	kv      storage.KV
	key     string
	metrics *metrics.Collectors
	log     *slog.Logger
	now     func() time.Time
}

// New creates an empty Store backed by kv. Call Restore to load saved state.
func New(kv storage.KV, m *metrics.Collectors, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		kv:      kv,
		key:     storage.WorkoutsKey,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// Restore replaces the collection with the saved snapshot. Malformed saved
// data is discarded and the store starts empty. Markers and rows are left
// unset for the caller to render.
func (s *Store) Restore(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.metrics.Operation(metrics.OpRestore, err)
		return 0, fmt.Errorf("loading snapshot: %w", err)
	}

	workouts := []*models.Workout{}
	if ok {
		decoded, err := snapshot.DecodeStrict([]byte(raw))
		if err != nil {
			s.log.Warn("discarding saved workouts", "error", err)
		} else {
			workouts = decoded
		}
	}

	s.entries = make([]Entry, 0, len(workouts))
	for _, w := range workouts {
		s.entries = append(s.entries, Entry{Workout: w})
	}
	s.metrics.Operation(metrics.OpRestore, nil)
	s.metrics.SetWorkouts(len(s.entries))
	s.log.Info("workouts restored", "count", len(s.entries))
	return len(s.entries), nil
}

// Create builds a workout of the given kind, appends it and snapshots.
// Inputs are expected to be validated by the caller.
func (s *Store) Create(ctx context.Context, kind models.Kind, coords models.Coordinates, distance, duration, extra float64) (*models.Workout, error) {
	w, err := models.New(kind, coords, distance, duration, extra)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(s.workoutsLocked(), w)
	if err := s.persistLocked(ctx, next); err != nil {
		s.metrics.Operation(metrics.OpCreate, err)
		return nil, err
	}
	s.entries = append(s.entries, Entry{Workout: w})
	s.metrics.Operation(metrics.OpCreate, nil)
	s.metrics.SetWorkouts(len(s.entries))
	return w, nil
}

// Update replaces a workout with an edited copy and recomputes the derived
// metric. Workouts already handed out are never modified, so readers may use
// them without holding the lock.
func (s *Store) Update(ctx context.Context, id uuid.UUID, distance, duration, extra float64) (*models.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		s.metrics.Operation(metrics.OpUpdate, ErrNotFound)
		return nil, ErrNotFound
	}

	w := s.entries[i].Workout.Clone()
	w.Update(distance, duration, extra)

	next := s.workoutsLocked()
	next[i] = w
	if err := s.persistLocked(ctx, next); err != nil {
		s.metrics.Operation(metrics.OpUpdate, err)
		return nil, err
	}
	s.entries[i].Workout = w
	s.metrics.Operation(metrics.OpUpdate, nil)
	return w, nil
}

// Delete removes the workout and returns its entry so the caller can dispose
// of the marker and row. The storage slot is cleared once the last workout
// is gone.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		s.metrics.Operation(metrics.OpDelete, ErrNotFound)
		return Entry{}, ErrNotFound
	}

	next := make([]Entry, 0, len(s.entries)-1)
	next = append(next, s.entries[:i]...)
	next = append(next, s.entries[i+1:]...)

	if err := s.persistLocked(ctx, workoutsOf(next)); err != nil {
		s.metrics.Operation(metrics.OpDelete, err)
		return Entry{}, err
	}

	removed := s.entries[i]
	s.entries = next
	s.metrics.Operation(metrics.OpDelete, nil)
	s.metrics.SetWorkouts(len(s.entries))
	return removed, nil
}

// DeleteAll empties the store and clears the slot. It is a no-op on an
// empty store apart from clearing the slot again.
func (s *Store) DeleteAll(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, s.key); err != nil {
		s.metrics.Operation(metrics.OpDeleteAll, err)
		return nil, fmt.Errorf("clearing snapshot: %w", err)
	}

	removed := s.entries
	s.entries = nil
	s.metrics.Operation(metrics.OpDeleteAll, nil)
	s.metrics.SetWorkouts(0)
	return removed, nil
}

// Find returns the workout with the given ID.
func (s *Store) Find(id uuid.UUID) (*models.Workout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.entries[i].Workout, nil
	}
	return nil, ErrNotFound
}

// Lookup returns the full entry for id.
func (s *Store) Lookup(id uuid.UUID) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.entries[i], nil
	}
	return Entry{}, ErrNotFound
}

// Index returns the position of id, or -1.
func (s *Store) Index(id uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(id)
}

// AttachMarker records the marker rendered for id.
func (s *Store) AttachMarker(id uuid.UUID, h MarkerHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	s.entries[i].Marker = h
	return nil
}

// AttachRow records the list row rendered for id.
func (s *Store) AttachRow(id uuid.UUID, h RowHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	s.entries[i].Row = h
	return nil
}

// Entries returns a copy of the collection in order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Workouts returns the workouts in order.
func (s *Store) Workouts() []*models.Workout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workoutsLocked()
}

// Len returns the number of workouts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) indexLocked(id uuid.UUID) int {
	for i, e := range s.entries {
		if e.Workout.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) workoutsLocked() []*models.Workout {
	return workoutsOf(s.entries)
}

// persistLocked writes the snapshot for workouts, or removes the slot when
// there are none.
func (s *Store) persistLocked(ctx context.Context, workouts []*models.Workout) error {
	if len(workouts) == 0 {
		if err := s.kv.Remove(ctx, s.key); err != nil {
			return fmt.Errorf("clearing snapshot: %w", err)
		}
		return nil
	}

	data, err := snapshot.Encode(workouts)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	s.metrics.Snapshot(len(data), s.now())
	return nil
}

func workoutsOf(entries []Entry) []*models.Workout {
	out := make([]*models.Workout, len(entries))
	for i, e := range entries {
		out[i] = e.Workout
	}
	return out
}
