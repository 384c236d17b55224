package esg

import (
	"strings"

	"github.com/sells-group/esg-cli/internal/model"
)

// Layout maps the logical columns of a score sheet to header positions.
// A position of -1 means the column is absent.
type Layout struct {
	Name        int
	Metric      int
	Score       int
	Description int
	Category    int
}

// ResolveLayout locates the logical columns in header.
//
// A column named "Category" is the category column. Without one, a header
// that repeats "Score" is the structured layout Name,Score,Metric,Score,
// Description: the first Score column holds the category code and the last
// holds the numeric score.
func ResolveLayout(header []string) Layout {
	l := Layout{
		Name:        findColumn(header, "name"),
		Metric:      findColumn(header, "metric"),
		Description: findColumn(header, "description"),
		Category:    exactColumns(header, "category").first(),
		Score:       -1,
	}

	scores := exactColumns(header, "score")
	switch {
	case l.Category < 0 && len(scores) > 1:
		l.Category = scores.first()
		l.Score = scores.last()
	case len(scores) > 0:
		l.Score = scores.last()
	default:
		l.Score = findColumn(header, "score")
	}
	return l
}

// Structured reports whether the layout carries an explicit category column.
func (l Layout) Structured() bool { return l.Category >= 0 }

type positions []int

func (p positions) first() int {
	if len(p) == 0 {
		return -1
	}
	return p[0]
}

func (p positions) last() int {
	if len(p) == 0 {
		return -1
	}
	return p[len(p)-1]
}

func exactColumns(header []string, name string) positions {
	var out positions
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			out = append(out, i)
		}
	}
	return out
}

// findColumn prefers an exact match and falls back to the first column whose
// name contains name.
func findColumn(header []string, name string) int {
	if p := exactColumns(header, name); len(p) > 0 {
		return p.first()
	}
	for i, h := range header {
		if strings.Contains(strings.ToLower(h), name) {
			return i
		}
	}
	return -1
}

// Schema is the per-row shape of a score sheet: either Structured, with an
// explicit category code, or Legacy, where the category is inferred from the
// metric name.
type Schema interface {
	schema()
}

// Structured is a row carrying an explicit category code such as "E" or
// "Total G".
type Structured struct {
	Code string
}

// Legacy is a row without a category code.
type Legacy struct{}

func (Structured) schema() {}
func (Legacy) schema()     {}

// DetectSchema decides the schema of one row.
func DetectSchema(l Layout, row RawRow) Schema {
	if code := row.Value(l.Category); code != "" {
		return Structured{Code: code}
	}
	return Legacy{}
}

// TotalSlot names which category total a structured total row sets.
type TotalSlot int

const (
	NoTotal TotalSlot = iota
	TotalE
	TotalS
	TotalG
)

// Classification is the outcome of classifying one metric row.
type Classification struct {
	Category         model.ESGCategory
	OriginalCategory string
	Total            TotalSlot
}

// Classify assigns an ESG category to a metric. Structured rows use their
// code; legacy rows fall back to ClassifyMetricName. It never fails.
func Classify(s Schema, metric string) Classification {
	switch v := s.(type) {
	case Structured:
		return Classification{
			Category:         categoryFromCode(v.Code),
			OriginalCategory: v.Code,
			Total:            totalSlot(v.Code, metric),
		}
	default:
		return Classification{Category: ClassifyMetricName(metric)}
	}
}

func categoryFromCode(code string) model.ESGCategory {
	c := strings.ToLower(strings.TrimSpace(code))
	switch {
	case c == "e" || strings.Contains(c, "total e"):
		return model.Environmental
	case c == "s" || strings.Contains(c, "total s"):
		return model.Social
	case c == "g" || strings.Contains(c, "total g"):
		return model.Governance
	default:
		return model.OtherESG
	}
}

// totalSlot checks E, then G, then S. A bare "Total" code is resolved by the
// metric name.
func totalSlot(code, metric string) TotalSlot {
	c := strings.ToLower(code)
	if !strings.Contains(c, "total") {
		return NoTotal
	}
	m := strings.ToLower(metric)
	switch {
	case strings.Contains(c, "total e") || strings.Contains(m, "e score"):
		return TotalE
	case strings.Contains(c, "total g") || strings.Contains(m, "g score"):
		return TotalG
	case strings.Contains(c, "total s") || strings.Contains(m, "s score"):
		return TotalS
	default:
		return NoTotal
	}
}

// KeywordRule maps any of its keywords to a category.
type KeywordRule struct {
	Category model.ESGCategory
	Keywords []string
}

// MetricRules are checked in order and the first rule with a matching keyword
// wins, so Environmental beats Social beats Governance.
var MetricRules = []KeywordRule{
	{model.Environmental, []string{
		"emissions", "carbon", "energy", "environmental", "climate",
		"renewable", "sustainability", "e score", "pollution", "waste",
	}},
	{model.Social, []string{
		"fatal", "safety", "labor", "worker", "employee", "community",
		"training", "health", "wellness", "diversity", "inclusion",
		"grievance", "union", "retention", "complaints", "engagement",
		"csr", "social", "s score", "human rights", "workplace",
	}},
	{model.Governance, []string{
		"board", "director", "independent", "audit", "governance",
		"shareholder", "executive", "compensation", "pay", "voting",
		"ethics", "corruption", "compliance", "whistleblower",
		"transparency", "disclosure", "g score", "committee",
	}},
}

// ClassifyMetricName infers a category from free-text metric names.
func ClassifyMetricName(metric string) model.ESGCategory {
	m := strings.ToLower(metric)
	for _, rule := range MetricRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(m, kw) {
				return rule.Category
			}
		}
	}
	return model.OtherESG
}
