package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/server"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/view"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newSync returns a started Sync drawing into the headless renderers.
func newSync(t *testing.T) (*view.Sync, *server.MarkerLayer) {
	t.Helper()
	log := discardLog()
	markers := server.NewMarkerLayer()
	center := models.Coordinates{Lat: 38.72, Lng: -9.14}
	sync := view.New(view.Deps{
		Store:    tracker.New(storage.NewMemoryKV(), nil, log),
		Map:      markers,
		List:     server.NewRowList(),
		Locator:  view.StaticLocator{At: &center},
		Notifier: view.NewNotifier(time.Minute),
		Log:      log,
	})
	require.NoError(t, sync.Start(context.Background()))
	return sync, markers
}

func call(t *testing.T, fn func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := fn(context.Background(), req)
	require.NoError(t, err)
	return res
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

func TestCreateAndListWorkouts(t *testing.T) {
	sync, markers := newSync(t)
	h := &handlers{ds: LocalSource{Sync: sync}, log: discardLog()}

	res := call(t, h.createWorkout, map[string]any{
		"type": "cycling", "lat": 41.15, "lng": -8.61,
		"distance": 20.0, "duration": 60.0, "elevation_gain": -10.0,
	})
	require.False(t, res.IsError, textOf(t, res))

	var w models.Workout
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &w))
	require.Equal(t, models.KindCycling, w.Kind)
	require.Equal(t, 20.0, w.Speed)
	require.Len(t, markers.State().Markers, 1)

	res = call(t, h.listWorkouts, nil)
	var ws []models.Workout
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &ws))
	require.Len(t, ws, 1)
	require.Equal(t, w.ID, ws[0].ID)
}

// TestCreateWorkoutRejected verifies the user-facing validation message is
// returned and the create form does not stay open.
func TestCreateWorkoutRejected(t *testing.T) {
	sync, _ := newSync(t)
	h := &handlers{ds: LocalSource{Sync: sync}, log: discardLog()}

	res := call(t, h.createWorkout, map[string]any{
		"type": "running", "lat": 1.0, "lng": 1.0, "distance": 5.0, "duration": 30.0,
	})
	require.True(t, res.IsError)
	require.Equal(t, "Please fill out all inputs!", textOf(t, res))
	require.False(t, sync.State().FormOpen)
	require.Empty(t, sync.Workouts())

	res = call(t, h.createWorkout, map[string]any{
		"type": "rowing", "lat": 1.0, "lng": 1.0, "distance": 5.0, "duration": 30.0,
	})
	require.True(t, res.IsError)
}

func TestUpdateWorkout(t *testing.T) {
	sync, _ := newSync(t)
	h := &handlers{ds: LocalSource{Sync: sync}, log: discardLog()}
	w, err := sync.CreateAt(context.Background(), models.Coordinates{Lat: 1, Lng: 1},
		view.FormInput{Type: "running", Distance: "5", Duration: "30", Cadence: "160"})
	require.NoError(t, err)

	res := call(t, h.updateWorkout, map[string]any{
		"id": w.ID.String(), "distance": 10.0, "duration": 45.0, "cadence": 170.0,
	})
	require.False(t, res.IsError, textOf(t, res))
	var updated models.Workout
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &updated))
	require.Equal(t, 4.5, updated.Pace)
	require.Nil(t, sync.State().EditingID)

	// A rejected edit closes the form it opened.
	res = call(t, h.updateWorkout, map[string]any{
		"id": w.ID.String(), "distance": -1.0, "duration": 45.0, "cadence": 170.0,
	})
	require.True(t, res.IsError)
	require.Equal(t, "All inputs have to be positive numbers!", textOf(t, res))
	require.Nil(t, sync.State().EditingID)
}

func TestDeleteAndFocusWorkout(t *testing.T) {
	sync, markers := newSync(t)
	h := &handlers{ds: LocalSource{Sync: sync}, log: discardLog()}
	at := models.Coordinates{Lat: 41.15, Lng: -8.61}
	w, err := sync.CreateAt(context.Background(), at,
		view.FormInput{Type: "running", Distance: "5", Duration: "30", Cadence: "160"})
	require.NoError(t, err)

	res := call(t, h.focusWorkout, map[string]any{"id": w.ID.String()})
	require.False(t, res.IsError)
	require.Equal(t, at.Pair(), markers.State().Center)

	res = call(t, h.deleteWorkout, map[string]any{"id": w.ID.String()})
	require.False(t, res.IsError)
	require.Empty(t, sync.Workouts())

	res = call(t, h.deleteWorkout, map[string]any{"id": w.ID.String()})
	require.True(t, res.IsError)
	require.True(t, strings.Contains(textOf(t, res), "not found"))

	res = call(t, h.getWorkout, map[string]any{"id": "nope"})
	require.True(t, res.IsError)
}

// TestDeleteAllRequiresConfirm verifies nothing is removed without an
// explicit confirmation.
func TestDeleteAllRequiresConfirm(t *testing.T) {
	sync, _ := newSync(t)
	h := &handlers{ds: LocalSource{Sync: sync}, log: discardLog()}
	for range 2 {
		_, err := sync.CreateAt(context.Background(), models.Coordinates{Lat: 1, Lng: 1},
			view.FormInput{Type: "running", Distance: "5", Duration: "30", Cadence: "160"})
		require.NoError(t, err)
	}

	res := call(t, h.deleteAllWorkouts, map[string]any{"confirm": false})
	require.True(t, res.IsError)
	require.Len(t, sync.Workouts(), 2)

	res = call(t, h.deleteAllWorkouts, map[string]any{"confirm": true})
	require.False(t, res.IsError)
	require.Equal(t, "Deleted 2 workouts.", textOf(t, res))
	require.Empty(t, sync.Workouts())
}

func TestStateResource(t *testing.T) {
	sync, _ := newSync(t)
	h := &handlers{ds: LocalSource{Sync: sync}, log: discardLog()}

	var req mcp.ReadResourceRequest
	req.Params.URI = "mapty://state"
	contents, err := h.stateResource(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	var st view.State
	require.NoError(t, json.Unmarshal([]byte(text.Text), &st))
	require.True(t, st.MapReady)
}

func TestNumberArg(t *testing.T) {
	var req mcp.CallToolRequest
	req.Params.Arguments = map[string]any{"a": 5.5, "b": "abc", "c": 3}
	require.Equal(t, "5.5", numberArg(req, "a"))
	require.Equal(t, "abc", numberArg(req, "b"))
	require.Equal(t, "3", numberArg(req, "c"))
	require.Equal(t, "", numberArg(req, "missing"))
}

func TestNew(t *testing.T) {
	sync, _ := newSync(t)
	s := New(LocalSource{Sync: sync}, "test", discardLog())
	require.NotNil(t, s)
}
