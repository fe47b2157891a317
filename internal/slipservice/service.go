// Package slipservice coordinates the slip repository with the query,
// import, and export layers behind one surface the transports share.
package slipservice

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/sliprepo"
	"github.com/starford/raido/internal/xlsx"
)

// Service wraps the repository with filtering, aggregation, and
// workbook transfer.
type Service struct {
	repo *sliprepo.Repository
}

// NewService creates a new slip service.
func NewService(repo *sliprepo.Repository) *Service {
	return &Service{repo: repo}
}

// List returns the slips matching the filter, in repository order, with
// the summary computed over the same filtered set.
func (s *Service) List(_ context.Context, f query.Filter) ([]models.Slip, query.Summary) {
	matched := f.Apply(s.repo.All())
	return matched, query.Summarize(matched)
}

// SummaryByType aggregates the full collection per slip type, including
// zero rows.
func (s *Service) SummaryByType(_ context.Context) []query.TypeSummary {
	return query.SummarizeByType(s.repo.All())
}

// Create inserts a blank manual record of the given type.
func (s *Service) Create(_ context.Context, t models.SlipType) models.Slip {
	return s.repo.Create(t)
}

// Get returns a single record by identifier.
func (s *Service) Get(_ context.Context, id string) (models.Slip, error) {
	return s.repo.Get(id)
}

// Update replaces a record wholesale, preserving its identity.
func (s *Service) Update(_ context.Context, id string, slip models.Slip) (models.Slip, error) {
	return s.repo.Update(id, slip)
}

// Delete removes a record. Deleting an absent record is a no-op.
func (s *Service) Delete(_ context.Context, id string) {
	s.repo.Delete(id)
}

// ImportWorkbook parses a workbook and appends every row as a new
// record. The import is all-or-nothing: a parse failure leaves the
// collection untouched.
func (s *Service) ImportWorkbook(r io.Reader) (int, error) {
	slips, err := xlsx.Import(r)
	if err != nil {
		return 0, err
	}
	s.repo.InsertMany(slips)
	return len(slips), nil
}

// ExportWorkbook writes the full collection to w and returns the dated
// file name the download should carry.
func (s *Service) ExportWorkbook(w io.Writer) (string, error) {
	if err := xlsx.Export(s.repo.All(), w); err != nil {
		return "", fmt.Errorf("slipservice: export: %w", err)
	}
	return xlsx.Filename(time.Now()), nil
}
