package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/view"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sync.State())
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		id = Identity{Login: "local", DisplayName: "Local User"}
	}
	writeJSON(w, http.StatusOK, id)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.markers.State())
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rows.Rows())
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sync.Workouts())
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := workoutID(w, r)
	if !ok {
		return
	}
	workout, err := s.sync.Workout(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

func (s *Server) handleMapClick(w http.ResponseWriter, r *http.Request) {
	var at models.Coordinates
	if err := json.NewDecoder(r.Body).Decode(&at); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := s.sync.MapClick(at); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sync.State())
}

func (s *Server) handleToggleType(w http.ResponseWriter, r *http.Request) {
	kind := s.sync.ToggleType()
	writeJSON(w, http.StatusOK, map[string]models.Kind{"type": kind})
}

func (s *Server) handleCancelCreate(w http.ResponseWriter, r *http.Request) {
	s.sync.CancelCreate()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeForm(w, r)
	if !ok {
		return
	}
	workout, err := s.sync.SubmitCreate(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, workout)
}

func (s *Server) handleOpenEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := workoutID(w, r)
	if !ok {
		return
	}
	form, err := s.sync.OpenEdit(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	s.sync.CancelEdit()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := workoutID(w, r)
	if !ok {
		return
	}
	in, ok := decodeForm(w, r)
	if !ok {
		return
	}
	workout, err := s.sync.SubmitEdit(r.Context(), id, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := workoutID(w, r)
	if !ok {
		return
	}
	if err := s.sync.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	id, ok := workoutID(w, r)
	if !ok {
		return
	}
	workout, err := s.sync.Focus(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

func (s *Server) handleRequestDeleteAll(w http.ResponseWriter, r *http.Request) {
	p := s.sync.RequestDeleteAll()
	writeJSON(w, http.StatusCreated, map[string]any{
		"token":    p.Token,
		"question": "Are you sure you want to delete all workouts?",
	})
}

func (s *Server) handleConfirmPrompt(w http.ResponseWriter, r *http.Request) {
	p, ok := s.prompt(w, r)
	if !ok {
		return
	}
	n, err := p.Confirm(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) handleCancelPrompt(w http.ResponseWriter, r *http.Request) {
	p, ok := s.prompt(w, r)
	if !ok {
		return
	}
	if err := p.Cancel(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) prompt(w http.ResponseWriter, r *http.Request) (*view.Prompt, bool) {
	token, err := uuid.Parse(chi.URLParam(r, "token"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt token"})
		return nil, false
	}
	p, err := s.sync.PendingPrompt(token)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return p, true
}

func workoutID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return uuid.Nil, false
	}
	return id, true
}

func decodeForm(w http.ResponseWriter, r *http.Request) (view.FormInput, bool) {
	var in view.FormInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return in, false
	}
	return in, true
}

// writeError maps domain errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ve *view.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": ve.Error(), "reason": string(ve.Reason)})
	case errors.Is(err, tracker.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
	case errors.Is(err, view.ErrPromptNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrUnknownKind):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, view.ErrMapUnavailable),
		errors.Is(err, view.ErrNoPendingLocation),
		errors.Is(err, view.ErrEditInProgress),
		errors.Is(err, view.ErrNotEditing),
		errors.Is(err, view.ErrPromptResolved):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		s.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
