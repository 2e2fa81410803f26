package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/claude/mapty/internal/metrics"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/storage"
)

var here = models.Coordinates{Lat: 40.4168, Lng: -3.7038}

func newTestStore(t *testing.T, kv storage.KV) *Store {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(kv, metrics.New(prometheus.NewRegistry()), log)
}

// failingKV rejects writes once armed.
type failingKV struct {
	*storage.MemoryKV
	fail bool
}

var errDown = errors.New("storage down")

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.fail {
		return errDown
	}
	return f.MemoryKV.Set(ctx, key, value)
}

func (f *failingKV) Remove(ctx context.Context, key string) error {
	if f.fail {
		return errDown
	}
	return f.MemoryKV.Remove(ctx, key)
}

func TestCreateRunningPace(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryKV())
	w, err := s.Create(context.Background(), models.KindRunning, here, 5, 30, 160)
	require.NoError(t, err)
	require.Equal(t, 6.0, w.Pace)
	require.Equal(t, 1, s.Len())
}

func TestCreateCyclingSpeed(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryKV())
	w, err := s.Create(context.Background(), models.KindCycling, here, 20, 60, 150)
	require.NoError(t, err)
	require.Equal(t, 20.0, w.Speed)
}

func TestCreateWritesSnapshot(t *testing.T) {
	kv := storage.NewMemoryKV()
	s := newTestStore(t, kv)
	_, err := s.Create(context.Background(), models.KindRunning, here, 5, 30, 160)
	require.NoError(t, err)

	raw, ok, err := kv.Get(context.Background(), storage.WorkoutsKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `[{"type":"running","coordinates":[40.4168,-3.7038],"distance":5,"duration":30,"cadence":160}]`, raw)
}

func TestCreateUnknownKind(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryKV())
	_, err := s.Create(context.Background(), "swimming", here, 1, 1, 1)
	require.ErrorIs(t, err, models.ErrUnknownKind)
	require.Zero(t, s.Len())
}

// TestRestoreFreshSession persists two workouts and loads them into a new
// store sharing the same slot.
func TestRestoreFreshSession(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	first := newTestStore(t, kv)
	_, err := first.Create(ctx, models.KindRunning, here, 5, 30, 160)
	require.NoError(t, err)
	_, err = first.Create(ctx, models.KindCycling, models.Coordinates{Lat: 1, Lng: 2}, 20, 60, 150)
	require.NoError(t, err)

	second := newTestStore(t, kv)
	n, err := second.Restore(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	got := second.Workouts()
	require.Equal(t, models.KindRunning, got[0].Kind)
	require.Equal(t, here, got[0].Coordinates)
	require.Equal(t, 160.0, got[0].Cadence)
	require.Equal(t, 6.0, got[0].Pace)
	require.Equal(t, models.KindCycling, got[1].Kind)
	require.Equal(t, 150.0, got[1].ElevationGain)
	require.Equal(t, 20.0, got[1].Speed)

	for _, e := range second.Entries() {
		require.Empty(t, e.Marker)
		require.Empty(t, e.Row)
	}
}

func TestRestoreMalformedStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, storage.WorkoutsKey, "not json"))

	s := newTestStore(t, kv)
	n, err := s.Restore(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, s.Workouts())
}

// TestDeleteMiddle creates three workouts, deletes the second, and checks
// the remaining order along with the attached handles.
func TestDeleteMiddle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemoryKV())

	var ids []uuid.UUID
	for i := range 3 {
		w, err := s.Create(ctx, models.KindRunning, here, float64(i+1), 30, 160)
		require.NoError(t, err)
		require.NoError(t, s.AttachMarker(w.ID, MarkerHandle(w.ID.String()+"-m")))
		require.NoError(t, s.AttachRow(w.ID, RowHandle(w.ID.String()+"-r")))
		ids = append(ids, w.ID)
	}

	removed, err := s.Delete(ctx, ids[1])
	require.NoError(t, err)
	require.Equal(t, ids[1], removed.Workout.ID)
	require.Equal(t, MarkerHandle(ids[1].String()+"-m"), removed.Marker)
	require.Equal(t, RowHandle(ids[1].String()+"-r"), removed.Row)

	entries := s.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, ids[0], entries[0].Workout.ID)
	require.Equal(t, ids[2], entries[1].Workout.ID)
	require.Equal(t, MarkerHandle(ids[0].String()+"-m"), entries[0].Marker)
	require.Equal(t, MarkerHandle(ids[2].String()+"-m"), entries[1].Marker)
	for _, e := range entries {
		require.NotEqual(t, ids[1], e.Workout.ID)
	}

	_, err = s.Find(ids[1])
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteLastClearsSlot(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := newTestStore(t, kv)

	w, err := s.Create(ctx, models.KindCycling, here, 10, 30, 0)
	require.NoError(t, err)
	_, err = s.Delete(ctx, w.ID)
	require.NoError(t, err)

	_, ok, err := kv.Get(ctx, storage.WorkoutsKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteNotFound(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryKV())
	_, err := s.Delete(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := newTestStore(t, kv)

	w, err := s.Create(ctx, models.KindRunning, here, 5, 30, 160)
	require.NoError(t, err)
	desc := w.Description

	got, err := s.Update(ctx, w.ID, 10, 40, 170)
	require.NoError(t, err)
	require.NotSame(t, w, got)
	require.Equal(t, 4.0, got.Pace)
	require.Equal(t, desc, got.Description)
	require.Equal(t, w.ID, got.ID)

	// The previously returned workout is left as it was.
	require.Equal(t, 5.0, w.Distance)
	require.Equal(t, 6.0, w.Pace)

	found, err := s.Find(w.ID)
	require.NoError(t, err)
	require.Same(t, got, found)

	raw, _, _ := kv.Get(ctx, storage.WorkoutsKey)
	require.Contains(t, raw, `"distance":10`)

	_, err = s.Update(ctx, uuid.New(), 1, 1, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAllThenRestoreIsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := newTestStore(t, kv)

	for range 3 {
		_, err := s.Create(ctx, models.KindRunning, here, 5, 30, 160)
		require.NoError(t, err)
	}
	removed, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	require.Len(t, removed, 3)

	n, err := s.Restore(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestDeleteAllIdempotent(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := newTestStore(t, kv)
	_, err := s.Create(ctx, models.KindRunning, here, 5, 30, 160)
	require.NoError(t, err)

	_, err = s.DeleteAll(ctx)
	require.NoError(t, err)
	removed, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	require.Empty(t, removed)
	require.Zero(t, s.Len())

	_, ok, _ := kv.Get(ctx, storage.WorkoutsKey)
	require.False(t, ok)
}

// TestFailedWritesLeaveStateUntouched verifies each mutation is rolled back
// when the snapshot cannot be written.
func TestFailedWritesLeaveStateUntouched(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{MemoryKV: storage.NewMemoryKV()}
	s := newTestStore(t, kv)

	w, err := s.Create(ctx, models.KindRunning, here, 5, 30, 160)
	require.NoError(t, err)

	kv.fail = true

	_, err = s.Create(ctx, models.KindRunning, here, 1, 1, 1)
	require.ErrorIs(t, err, errDown)
	require.Equal(t, 1, s.Len())

	_, err = s.Update(ctx, w.ID, 10, 10, 10)
	require.ErrorIs(t, err, errDown)
	found, err := s.Find(w.ID)
	require.NoError(t, err)
	require.Same(t, w, found)
	require.Equal(t, 5.0, found.Distance)
	require.Equal(t, 6.0, found.Pace)
	require.Equal(t, 160.0, found.Cadence)

	_, err = s.Delete(ctx, w.ID)
	require.ErrorIs(t, err, errDown)
	require.Equal(t, 1, s.Len())

	_, err = s.DeleteAll(ctx)
	require.ErrorIs(t, err, errDown)
	require.Equal(t, 1, s.Len())
}

func TestAttachUnknown(t *testing.T) {
	s := newTestStore(t, storage.NewMemoryKV())
	require.ErrorIs(t, s.AttachMarker(uuid.New(), "m"), ErrNotFound)
	require.ErrorIs(t, s.AttachRow(uuid.New(), "r"), ErrNotFound)
	require.Equal(t, -1, s.Index(uuid.New()))
}

// TestReadsDuringUpdate runs readers that encode workouts while edits are
// applied. Run with -race.
func TestReadsDuringUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemoryKV())
	w, err := s.Create(ctx, models.KindRunning, here, 5, 30, 160)
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for _, got := range s.Workouts() {
					if _, err := json.Marshal(got); err != nil {
						t.Error(err)
						return
					}
					if got.Pace != got.Duration/got.Distance {
						t.Errorf("stale pace %v for %v/%v", got.Pace, got.Duration, got.Distance)
						return
					}
				}
				if got, err := s.Find(w.ID); err == nil {
					_, _ = json.Marshal(got)
				}
			}
		}()
	}

	for i := range 200 {
		_, err := s.Update(ctx, w.ID, float64(i+1), float64(2*i+3), 160)
		require.NoError(t, err)
	}
	close(done)
	wg.Wait()
}

// TestNilLogger verifies a store built without a logger still restores,
// including from malformed saved data.
func TestNilLogger(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, storage.WorkoutsKey, "{not json"))

	s := New(kv, nil, nil)
	require.NotPanics(t, func() {
		n, err := s.Restore(ctx)
		require.NoError(t, err)
		require.Zero(t, n)
	})
}
