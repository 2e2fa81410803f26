package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/view"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// numberArg returns a numeric argument the way a form field would hold it.
// Absent arguments read as blank.
func numberArg(req mcp.CallToolRequest, name string) string {
	switch v := req.GetArguments()[name].(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	}
	return ""
}

func workoutIDArg(req mcp.CallToolRequest) (uuid.UUID, *mcp.CallToolResult) {
	raw, err := req.RequireString("id")
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError("id parameter is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError("invalid workout id: " + err.Error())
	}
	return id, nil
}

func formArgs(req mcp.CallToolRequest) view.FormInput {
	return view.FormInput{
		Type:      req.GetString("type", ""),
		Distance:  numberArg(req, "distance"),
		Duration:  numberArg(req, "duration"),
		Cadence:   numberArg(req, "cadence"),
		Elevation: numberArg(req, "elevation_gain"),
	}
}

// failure turns a tracker error into a tool error. Validation failures carry
// the message a user would see.
func (h *handlers) failure(tool string, err error) *mcp.CallToolResult {
	var ve *view.ValidationError
	if errors.As(err, &ve) {
		return mcp.NewToolResultError(ve.Error())
	}
	h.log.Warn("mcp "+tool, "error", err)
	return mcp.NewToolResultError(tool + " failed: " + err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed")
	}
	return result
}

// --- Tool definitions ---

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List all recorded workouts in creation order. Running workouts carry cadence (spm) and pace (min/mile); cycling workouts carry elevation gain (m) and speed (mile/h)."),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one workout by id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id (UUID)")),
)

var toolCreateWorkout = mcp.NewTool("create_workout",
	mcp.WithDescription("Record a workout at a map position. All numbers must be finite and non-zero; running inputs and cycling distance/duration must be positive. Cycling elevation gain may be negative."),
	mcp.WithString("type", mcp.Required(), mcp.Description("Workout type"), mcp.Enum(string(models.KindRunning), string(models.KindCycling))),
	mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude of the workout")),
	mcp.WithNumber("lng", mcp.Required(), mcp.Description("Longitude of the workout")),
	mcp.WithNumber("distance", mcp.Required(), mcp.Description("Distance in miles")),
	mcp.WithNumber("duration", mcp.Required(), mcp.Description("Duration in minutes")),
	mcp.WithNumber("cadence", mcp.Description("Steps per minute (running only)")),
	mcp.WithNumber("elevation_gain", mcp.Description("Elevation gain in meters (cycling only)")),
)

var toolUpdateWorkout = mcp.NewTool("update_workout",
	mcp.WithDescription("Edit a workout's distance, duration and cadence or elevation gain. Type, position and description never change. Derived pace or speed is recomputed."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id (UUID)")),
	mcp.WithNumber("distance", mcp.Required(), mcp.Description("Distance in miles")),
	mcp.WithNumber("duration", mcp.Required(), mcp.Description("Duration in minutes")),
	mcp.WithNumber("cadence", mcp.Description("Steps per minute (running only)")),
	mcp.WithNumber("elevation_gain", mcp.Description("Elevation gain in meters (cycling only)")),
)

var toolDeleteWorkout = mcp.NewTool("delete_workout",
	mcp.WithDescription("Delete one workout together with its map marker and list row."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id (UUID)")),
)

var toolDeleteAllWorkouts = mcp.NewTool("delete_all_workouts",
	mcp.WithDescription("Delete every workout and clear saved data. Irreversible; requires confirm=true."),
	mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true to proceed")),
)

var toolFocusWorkout = mcp.NewTool("focus_workout",
	mcp.WithDescription("Center the map on a workout."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id (UUID)")),
)

// --- Tool handlers ---

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workouts, err := h.ds.Workouts(ctx)
	if err != nil {
		return h.failure("list_workouts", err), nil
	}
	return jsonResult(workouts), nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := workoutIDArg(req)
	if bad != nil {
		return bad, nil
	}
	w, err := h.ds.Workout(ctx, id)
	if err != nil {
		return h.failure("get_workout", err), nil
	}
	return jsonResult(w), nil
}

func (h *handlers) createWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("type parameter is required"), nil
	}
	if _, err := models.ParseKind(kind); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lat, err := req.RequireFloat("lat")
	if err != nil {
		return mcp.NewToolResultError("lat parameter is required"), nil
	}
	lng, err := req.RequireFloat("lng")
	if err != nil {
		return mcp.NewToolResultError("lng parameter is required"), nil
	}

	w, err := h.ds.Create(ctx, models.Coordinates{Lat: lat, Lng: lng}, formArgs(req))
	if err != nil {
		return h.failure("create_workout", err), nil
	}
	return jsonResult(w), nil
}

func (h *handlers) updateWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := workoutIDArg(req)
	if bad != nil {
		return bad, nil
	}
	w, err := h.ds.Update(ctx, id, formArgs(req))
	if err != nil {
		return h.failure("update_workout", err), nil
	}
	return jsonResult(w), nil
}

func (h *handlers) deleteWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := workoutIDArg(req)
	if bad != nil {
		return bad, nil
	}
	if err := h.ds.Delete(ctx, id); err != nil {
		return h.failure("delete_workout", err), nil
	}
	return mcp.NewToolResultText("Workout successfully deleted!"), nil
}

func (h *handlers) deleteAllWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	confirm, err := req.RequireBool("confirm")
	if err != nil || !confirm {
		return mcp.NewToolResultError("delete_all_workouts requires confirm=true"), nil
	}
	n, err := h.ds.DeleteAll(ctx)
	if err != nil {
		return h.failure("delete_all_workouts", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %d workouts.", n)), nil
}

func (h *handlers) focusWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := workoutIDArg(req)
	if bad != nil {
		return bad, nil
	}
	w, err := h.ds.Focus(ctx, id)
	if err != nil {
		return h.failure("focus_workout", err), nil
	}
	return jsonResult(w), nil
}
