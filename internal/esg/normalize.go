package esg

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/esg-cli/internal/model"
)

var (
	nonSlugRun    = regexp.MustCompile(`[^a-z0-9]+`)
	leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

var businessRules = []struct {
	category model.BusinessCategory
	keywords []string
}{
	{model.Construction, []string{"construction", "engineering", "e&c", "ec"}},
	{model.Residential, []string{"residential", "housing"}},
	{model.Commercial, []string{"commercial", "office"}},
	{model.Infrastructure, []string{"infrastructure", "civil"}},
	{model.Energy, []string{"energy", "power", "utility"}},
}

// Slug derives the persistence key of a company name.
func Slug(name string) string {
	s := nonSlugRun.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// ValidSlug returns the slug of name, or a ValidationError when the name has
// no ASCII letters or digits.
func ValidSlug(name string) (string, error) {
	s := Slug(name)
	if s == "" {
		return "", NewValidationError("companyName", "%q does not produce a slug", name)
	}
	return s, nil
}

// InferBusinessCategory matches name against ordered keyword lists. The
// keywords are substrings, so "ec" also matches names like "Electric".
func InferBusinessCategory(name string) model.BusinessCategory {
	n := strings.ToLower(name)
	for _, rule := range businessRules {
		for _, kw := range rule.keywords {
			if strings.Contains(n, kw) {
				return rule.category
			}
		}
	}
	return model.OtherBusiness
}

// ParseScore reads the leading number of s. Anything unparseable is 0.
func ParseScore(s string) float64 {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return Sanitize(v)
}

// Sanitize maps NaN and infinities to 0.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// NormalizeOptions carries the per-run values stamped on every record.
type NormalizeOptions struct {
	Now        time.Time
	DataSource string
}

// Normalize reduces an accumulator into the persisted company record.
func Normalize(acc *Accumulator, opts NormalizeOptions) (*model.CompanyRecord, error) {
	slug, err := ValidSlug(acc.CompanyName)
	if err != nil {
		return nil, err
	}
	agg := acc.Score()
	now := opts.Now.UTC()

	rec := &model.CompanyRecord{
		CompanyName:  acc.CompanyName,
		Slug:         slug,
		OverallScore: agg.Overall,
		EScore:       agg.E,
		SScore:       agg.S,
		GScore:       agg.G,
		ETotalScore:  agg.ETotal,
		STotalScore:  agg.STotal,
		GTotalScore:  agg.GTotal,
		Category:     InferBusinessCategory(acc.CompanyName),
		Profit:       agg.Profit,
		Emissions:    agg.Emissions,
		DetailedMetrics: model.DetailedMetrics{
			Environmental: cloneMetrics(acc.Buckets.Environmental),
			Social:        cloneMetrics(acc.Buckets.Social),
			Governance:    cloneMetrics(acc.Buckets.Governance),
			Other:         cloneMetrics(acc.Buckets.Other),
		},
		AllMetrics:  cloneMetrics(acc.Metrics),
		LastUpdated: now,
		CreatedAt:   now,
		ImportedAt:  now,
		DataSource:  opts.DataSource,
	}
	SanitizeRecord(rec)
	return rec, nil
}

// SanitizeRecord zeroes every non-finite number on rec and fills empty
// metric categories with Other.
func SanitizeRecord(rec *model.CompanyRecord) {
	for _, f := range []*float64{
		&rec.OverallScore, &rec.EScore, &rec.SScore, &rec.GScore,
		&rec.ETotalScore, &rec.STotalScore, &rec.GTotalScore,
		&rec.SAPAViolations, &rec.Profit, &rec.Emissions,
	} {
		*f = Sanitize(*f)
	}
	d := &rec.DetailedMetrics
	for _, ms := range [][]model.MetricRecord{d.Environmental, d.Social, d.Governance, d.Other, rec.AllMetrics} {
		for i := range ms {
			ms[i].Score = Sanitize(ms[i].Score)
			if ms[i].Category == "" {
				ms[i].Category = model.OtherESG
			}
		}
	}
}

// cloneMetrics returns an empty, non-nil slice for no metrics so records
// serialize with [] rather than null.
func cloneMetrics(in []model.MetricRecord) []model.MetricRecord {
	out := make([]model.MetricRecord, len(in))
	copy(out, in)
	return out
}
