package company

import (
	"context"
	"sort"
	"strings"

	"github.com/sells-group/esg-cli/internal/model"
)

// SortBy names a result ordering.
type SortBy string

const (
	SortScoreDesc      SortBy = "score-desc"
	SortScoreAsc       SortBy = "score-asc"
	SortNameAsc        SortBy = "name-asc"
	SortNameDesc       SortBy = "name-desc"
	SortViolationsAsc  SortBy = "violations-asc"
	SortViolationsDesc SortBy = "violations-desc"
)

// CategoryAll disables the category filter.
const CategoryAll = "all"

// FilterOptions narrows and orders a company listing. Zero values disable
// each filter.
type FilterOptions struct {
	Search        string
	Category      string
	MinScore      *float64
	MaxScore      *float64
	HasViolations *bool
	SortBy        SortBy
}

// Filter lists companies matching every set option. Unknown sort keys fall
// back to score-desc.
func (s *Service) Filter(ctx context.Context, opts FilterOptions) ([]model.CompanyRecord, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.CompanyRecord, 0, len(recs))
	for _, r := range recs {
		if opts.Matches(&r) {
			out = append(out, r)
		}
	}
	sortRecords(out, opts.SortBy)
	return out, nil
}

// Matches reports whether rec passes every set filter.
func (o FilterOptions) Matches(rec *model.CompanyRecord) bool {
	if o.Search != "" && !strings.Contains(strings.ToLower(rec.CompanyName), strings.ToLower(o.Search)) {
		return false
	}
	if o.Category != "" && o.Category != CategoryAll && string(rec.Category) != o.Category {
		return false
	}
	if o.MinScore != nil && rec.OverallScore < *o.MinScore {
		return false
	}
	if o.MaxScore != nil && rec.OverallScore > *o.MaxScore {
		return false
	}
	if o.HasViolations != nil && *o.HasViolations != (rec.SAPAViolations > 0) {
		return false
	}
	return true
}

// ParseSortBy maps a user-supplied key to a SortBy, defaulting to score-desc.
func ParseSortBy(s string) SortBy {
	switch SortBy(s) {
	case SortScoreDesc, SortScoreAsc, SortNameAsc, SortNameDesc, SortViolationsAsc, SortViolationsDesc:
		return SortBy(s)
	default:
		return SortScoreDesc
	}
}

// sortRecords orders recs stably so equal keys keep their incoming order.
func sortRecords(recs []model.CompanyRecord, by SortBy) {
	var less func(a, b *model.CompanyRecord) bool
	switch ParseSortBy(string(by)) {
	case SortScoreAsc:
		less = func(a, b *model.CompanyRecord) bool { return a.OverallScore < b.OverallScore }
	case SortNameAsc:
		less = func(a, b *model.CompanyRecord) bool { return foldLess(a.CompanyName, b.CompanyName) }
	case SortNameDesc:
		less = func(a, b *model.CompanyRecord) bool { return foldLess(b.CompanyName, a.CompanyName) }
	case SortViolationsAsc:
		less = func(a, b *model.CompanyRecord) bool { return a.SAPAViolations < b.SAPAViolations }
	case SortViolationsDesc:
		less = func(a, b *model.CompanyRecord) bool { return a.SAPAViolations > b.SAPAViolations }
	default:
		less = func(a, b *model.CompanyRecord) bool { return a.OverallScore > b.OverallScore }
	}
	sort.SliceStable(recs, func(i, j int) bool { return less(&recs[i], &recs[j]) })
}

func foldLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}
