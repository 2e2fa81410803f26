package view

import (
	"context"
	"errors"

	"github.com/claude/mapty/internal/events"
	"github.com/google/uuid"
)

var (
	// ErrPromptResolved is returned when a prompt has already been answered
	// or was superseded by a newer one.
	ErrPromptResolved = errors.New("prompt already resolved")
	// ErrPromptNotFound is returned for an unknown prompt token.
	ErrPromptNotFound = errors.New("prompt not found")
)

// Prompt is a pending "delete all workouts?" confirmation. Exactly one of
// Confirm or Cancel takes effect; both are inert afterwards.
type Prompt struct {
	Token    uuid.UUID `json:"token"`
	sync     *Sync
	resolved bool
}

// RequestDeleteAll opens the confirmation prompt. A prompt that is still
// pending is superseded.
func (s *Sync) RequestDeleteAll() *Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.prompt != nil {
		s.prompt.resolved = true
	}
	s.prompt = &Prompt{Token: uuid.New(), sync: s}
	return s.prompt
}

// PendingPrompt returns the open prompt with the given token.
func (s *Sync) PendingPrompt(token uuid.UUID) (*Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.prompt == nil || s.prompt.Token != token {
		return nil, ErrPromptNotFound
	}
	return s.prompt, nil
}

// Confirm deletes every workout, marker and row, clears storage and closes
// both forms. If storage cannot be cleared the prompt stays open and may be
// confirmed again.
func (p *Prompt) Confirm(ctx context.Context) (int, error) {
	s := p.sync
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.resolved {
		return 0, ErrPromptResolved
	}
	removed, err := s.store.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.resolveLocked(p); err != nil {
		return 0, err
	}
	for _, e := range removed {
		s.unmountLocked(e)
	}
	s.resetFormLocked()
	s.editing = uuid.Nil

	s.notifier.Show(msgDeletedAll, ColorSuccess)
	s.publishLocked(ctx, events.Event{Type: events.WorkoutsClear, Count: len(removed)})
	return len(removed), nil
}

// Cancel dismisses the prompt without deleting anything.
func (p *Prompt) Cancel() error {
	s := p.sync
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(p)
}

func (s *Sync) resolveLocked(p *Prompt) error {
	if p.resolved {
		return ErrPromptResolved
	}
	p.resolved = true
	if s.prompt == p {
		s.prompt = nil
	}
	return nil
}
