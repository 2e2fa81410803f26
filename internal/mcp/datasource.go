package mcp

import (
	"context"
	"errors"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/view"
	"github.com/google/uuid"
)

// DataSource abstracts the tracker for MCP tools. Both LocalSource (in
// process) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	Workouts(ctx context.Context) ([]*models.Workout, error)
	Workout(ctx context.Context, id uuid.UUID) (*models.Workout, error)
	Create(ctx context.Context, at models.Coordinates, in view.FormInput) (*models.Workout, error)
	Update(ctx context.Context, id uuid.UUID, in view.FormInput) (*models.Workout, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int, error)
	Focus(ctx context.Context, id uuid.UUID) (*models.Workout, error)
	State(ctx context.Context) (view.State, error)
}

// LocalSource drives a view.Sync in the same process.
type LocalSource struct {
	Sync *view.Sync
}

// Compile-time check: LocalSource satisfies DataSource.
var _ DataSource = LocalSource{}

func (l LocalSource) Workouts(context.Context) ([]*models.Workout, error) {
	return l.Sync.Workouts(), nil
}

func (l LocalSource) Workout(_ context.Context, id uuid.UUID) (*models.Workout, error) {
	return l.Sync.Workout(id)
}

func (l LocalSource) Create(ctx context.Context, at models.Coordinates, in view.FormInput) (*models.Workout, error) {
	w, err := l.Sync.CreateAt(ctx, at, in)
	if err != nil {
		l.Sync.CancelCreate()
		return nil, err
	}
	return w, nil
}

// Update opens the edit form for id and submits it. A form this call opened
// is closed again if the submit fails.
func (l LocalSource) Update(ctx context.Context, id uuid.UUID, in view.FormInput) (*models.Workout, error) {
	opened := true
	if _, err := l.Sync.OpenEdit(id); err != nil {
		if !errors.Is(err, view.ErrEditInProgress) {
			return nil, err
		}
		opened = false
	}
	w, err := l.Sync.SubmitEdit(ctx, id, in)
	if err != nil {
		if opened {
			l.Sync.CancelEdit()
		}
		return nil, err
	}
	return w, nil
}

func (l LocalSource) Delete(ctx context.Context, id uuid.UUID) error {
	return l.Sync.Delete(ctx, id)
}

func (l LocalSource) DeleteAll(ctx context.Context) (int, error) {
	return l.Sync.RequestDeleteAll().Confirm(ctx)
}

func (l LocalSource) Focus(_ context.Context, id uuid.UUID) (*models.Workout, error) {
	return l.Sync.Focus(id)
}

func (l LocalSource) State(context.Context) (view.State, error) {
	return l.Sync.State(), nil
}
