// Package sliprepo owns the canonical in-memory slip collection.
package sliprepo

import (
	"strconv"
	"sync"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// Change kinds reported to the change callback.
const (
	ChangeCreated  = "created"
	ChangeUpdated  = "updated"
	ChangeDeleted  = "deleted"
	ChangeImported = "imported"
)

// Change describes one repository mutation.
type Change struct {
	Kind  string
	ID    string // empty for imports
	Count int    // rows added by an import
}

// ChangeFunc is called after each successful mutation, outside the
// repository lock.
type ChangeFunc func(Change)

// Repository holds the authoritative slip collection in insertion
// order. Identifiers are decimal strings of a monotonic counter seeded
// from wall-clock nanoseconds, so they stay unique for the lifetime of
// the repository even within a single batch insert.
type Repository struct {
	mu       sync.Mutex
	slips    []models.Slip
	nextID   int64
	onChange ChangeFunc
}

// New creates an empty repository.
func New() *Repository {
	return &Repository{nextID: time.Now().UnixNano()}
}

// OnChange registers cb to receive mutation notifications. Pass nil to
// disable.
func (r *Repository) OnChange(cb ChangeFunc) {
	r.mu.Lock()
	r.onChange = cb
	r.mu.Unlock()
}

func (r *Repository) notify(c Change) {
	r.mu.Lock()
	cb := r.onChange
	r.mu.Unlock()
	if cb != nil {
		cb(c)
	}
}

// allocID must be called with the lock held.
func (r *Repository) allocID() string {
	id := strconv.FormatInt(r.nextID, 10)
	r.nextID++
	return id
}

// Create allocates a fresh record of the given type with empty fields
// and today's date, inserts it, and returns it.
func (r *Repository) Create(t models.SlipType) models.Slip {
	r.mu.Lock()
	s := models.Slip{
		ID:        r.allocID(),
		Type:      t,
		Date:      models.Today(),
		CreatedAt: time.Now(),
	}
	r.slips = append(r.slips, s)
	r.mu.Unlock()

	r.notify(Change{Kind: ChangeCreated, ID: s.ID})
	return s
}

// Insert stores a prepared record, assigning a fresh identifier and
// creation timestamp. Used by the capture workflow's confirm path.
func (r *Repository) Insert(s models.Slip) models.Slip {
	r.mu.Lock()
	s.ID = r.allocID()
	s.CreatedAt = time.Now()
	r.slips = append(r.slips, s)
	r.mu.Unlock()

	r.notify(Change{Kind: ChangeCreated, ID: s.ID})
	return s
}

// InsertMany appends records in input order, assigning fresh
// identifiers and creation timestamps regardless of any identifier in
// the source data. A single "imported" change is reported for the
// whole batch.
func (r *Repository) InsertMany(records []models.Slip) {
	if len(records) == 0 {
		return
	}
	now := time.Now()
	r.mu.Lock()
	for _, s := range records {
		s.ID = r.allocID()
		s.CreatedAt = now
		r.slips = append(r.slips, s)
	}
	r.mu.Unlock()

	r.notify(Change{Kind: ChangeImported, Count: len(records)})
}

// Get returns the record with the given id.
func (r *Repository) Get(id string) (models.Slip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slips {
		if s.ID == id {
			return s, nil
		}
	}
	return models.Slip{}, apperr.ErrNotFound
}

// Update replaces the stored record with the given id by the supplied
// full record value. The identifier and creation timestamp are
// immutable and preserved from the stored record.
func (r *Repository) Update(id string, s models.Slip) (models.Slip, error) {
	r.mu.Lock()
	for i := range r.slips {
		if r.slips[i].ID == id {
			s.ID = id
			s.CreatedAt = r.slips[i].CreatedAt
			r.slips[i] = s
			r.mu.Unlock()
			r.notify(Change{Kind: ChangeUpdated, ID: id})
			return s, nil
		}
	}
	r.mu.Unlock()
	return models.Slip{}, apperr.ErrNotFound
}

// Delete removes the record with the given id. Deleting an absent id
// is a no-op.
func (r *Repository) Delete(id string) {
	r.mu.Lock()
	for i := range r.slips {
		if r.slips[i].ID == id {
			r.slips = append(r.slips[:i], r.slips[i+1:]...)
			r.mu.Unlock()
			r.notify(Change{Kind: ChangeDeleted, ID: id})
			return
		}
	}
	r.mu.Unlock()
}

// All returns a copy of the collection in insertion order.
func (r *Repository) All() []models.Slip {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Slip, len(r.slips))
	copy(out, r.slips)
	return out
}

// Len returns the number of stored records.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slips)
}
