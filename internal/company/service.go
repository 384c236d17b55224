// Package company answers list, search and filter queries over stored
// company records.
package company

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/sells-group/esg-cli/internal/esg"
	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/store"
)

// NotFoundError reports a slug with no stored record.
type NotFoundError struct {
	Slug string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("company %q not found", e.Slug)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Service reads and updates company records in a store.
type Service struct {
	store store.Store
	clock clockwork.Clock
}

// NewService creates a Service. A nil clock means the real clock.
func NewService(st store.Store, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: st, clock: clock}
}

// List returns every company ordered by overall score, highest first.
func (s *Service) List(ctx context.Context) ([]model.CompanyRecord, error) {
	return s.store.ListAll(ctx, "overallScore", true)
}

// Get returns the company stored under slug.
func (s *Service) Get(ctx context.Context, slug string) (*model.CompanyRecord, error) {
	rec, err := s.store.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &NotFoundError{Slug: slug}
	}
	return rec, nil
}

// SearchByName matches term as a case-insensitive substring of the company
// name. Results keep List order.
func (s *Service) SearchByName(ctx context.Context, term string) ([]model.CompanyRecord, error) {
	return s.Filter(ctx, FilterOptions{Search: term})
}

// ByCategory returns companies in one business category.
func (s *Service) ByCategory(ctx context.Context, cat model.BusinessCategory) ([]model.CompanyRecord, error) {
	recs, err := s.store.Query(ctx, "category", string(cat))
	if err != nil {
		return nil, err
	}
	sortRecords(recs, SortScoreDesc)
	return recs, nil
}

// Patch holds editable record fields. Nil fields are left unchanged. Name and
// slug are not editable since the slug is the storage key.
type Patch struct {
	OverallScore   *float64                `json:"overallScore,omitempty"`
	EScore         *float64                `json:"e_score,omitempty"`
	SScore         *float64                `json:"s_score,omitempty"`
	GScore         *float64                `json:"g_score,omitempty"`
	Category       *model.BusinessCategory `json:"category,omitempty"`
	SAPAViolations *float64                `json:"sapaViolations,omitempty"`
	Profit         *float64                `json:"profit,omitempty"`
	Emissions      *float64                `json:"emissions,omitempty"`
	DataSource     *string                 `json:"dataSource,omitempty"`
}

// Apply copies the set fields onto rec.
func (p Patch) Apply(rec *model.CompanyRecord) {
	setFloat := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setFloat(&rec.OverallScore, p.OverallScore)
	setFloat(&rec.EScore, p.EScore)
	setFloat(&rec.SScore, p.SScore)
	setFloat(&rec.GScore, p.GScore)
	setFloat(&rec.SAPAViolations, p.SAPAViolations)
	setFloat(&rec.Profit, p.Profit)
	setFloat(&rec.Emissions, p.Emissions)
	if p.Category != nil {
		rec.Category = *p.Category
	}
	if p.DataSource != nil {
		rec.DataSource = *p.DataSource
	}
}

// Update applies patch to the stored record and stamps lastUpdated.
func (s *Service) Update(ctx context.Context, slug string, patch Patch) (*model.CompanyRecord, error) {
	rec, err := s.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	patch.Apply(rec)
	esg.SanitizeRecord(rec)
	rec.LastUpdated = s.clock.Now().UTC()

	if err := s.store.Put(ctx, slug, rec); err != nil {
		return nil, err
	}
	zap.L().Info("company updated", zap.String("slug", slug))
	return rec, nil
}

// DetailedMetrics returns the company's metrics by ESG category.
func (s *Service) DetailedMetrics(ctx context.Context, slug string) (*model.DetailedMetrics, error) {
	rec, err := s.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &rec.DetailedMetrics, nil
}

// AllMetrics returns the company's metrics in import order.
func (s *Service) AllMetrics(ctx context.Context, slug string) ([]model.MetricRecord, error) {
	rec, err := s.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	if rec.AllMetrics == nil {
		return []model.MetricRecord{}, nil
	}
	return rec.AllMetrics, nil
}

// MetricMatch is a metric found by SearchMetrics, tagged with its company.
type MetricMatch struct {
	model.MetricRecord
	CompanyName string `json:"companyName"`
	CompanyID   string `json:"companyId"`
}

// SearchMetrics finds metrics whose name or description contains term,
// case-insensitively, across all companies. An empty category matches any.
func (s *Service) SearchMetrics(ctx context.Context, term string, cat model.ESGCategory) ([]MetricMatch, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(term)
	out := []MetricMatch{}
	for _, rec := range recs {
		for _, m := range rec.AllMetrics {
			if cat != "" && m.Category != cat {
				continue
			}
			if !strings.Contains(strings.ToLower(m.Name), needle) &&
				!strings.Contains(strings.ToLower(m.Description), needle) {
				continue
			}
			out = append(out, MetricMatch{MetricRecord: m, CompanyName: rec.CompanyName, CompanyID: rec.Slug})
		}
	}
	return out, nil
}
