// Package editsession implements the single-slot inline edit buffer
// for existing slip records, independent of the capture review buffer.
package editsession

import (
	"context"
	"sync"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// Updater is the repository surface a saved draft is written through.
type Updater interface {
	Update(ctx context.Context, id string, s models.Slip) (models.Slip, error)
}

// Editor holds at most one edit draft at a time. The single draft slot
// makes a second concurrent edit structurally impossible rather than
// silently overwriting.
type Editor struct {
	mu    sync.Mutex
	draft *models.Slip
}

// New creates an editor with no open draft.
func New() *Editor {
	return &Editor{}
}

// Begin opens a draft as a field-wise copy of the given record.
func (e *Editor) Begin(s models.Slip) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft != nil {
		return apperr.ErrEditInProgress
	}
	copy := s
	e.draft = &copy
	return nil
}

// Draft returns the open draft, if any.
func (e *Editor) Draft() (models.Slip, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return models.Slip{}, false
	}
	return *e.draft, true
}

// Set replaces the draft fields. The record identity is fixed at Begin
// and preserved regardless of the incoming value.
func (e *Editor) Set(s models.Slip) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return apperr.ErrNoEdit
	}
	s.ID = e.draft.ID
	s.CreatedAt = e.draft.CreatedAt
	*e.draft = s
	return nil
}

// Save writes the draft back through the repository as a whole-record
// replace and closes the draft. The draft stays open on failure so the
// caller can retry or cancel.
func (e *Editor) Save(ctx context.Context, repo Updater) (models.Slip, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return models.Slip{}, apperr.ErrNoEdit
	}
	saved, err := repo.Update(ctx, e.draft.ID, *e.draft)
	if err != nil {
		return models.Slip{}, err
	}
	e.draft = nil
	return saved, nil
}

// Cancel discards the draft without touching the repository. A no-op
// when no draft is open.
func (e *Editor) Cancel() {
	e.mu.Lock()
	e.draft = nil
	e.mu.Unlock()
}
