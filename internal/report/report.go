// Package report renders company records as Markdown or XLSX documents and
// exports record sets as JSON, YAML or CSV.
package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/sells-group/esg-cli/internal/esg"
	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/narrative"
)

// Renderer writes one company report. Narratives are keyed by analysis kind
// (narrative.KindExplain and friends); missing keys are skipped.
type Renderer interface {
	Render(w io.Writer, c *model.CompanyRecord, narratives map[string]string) error
	ContentType() string
	Ext() string
}

// Report formats.
const (
	FormatMarkdown = "md"
	FormatXLSX     = "xlsx"
)

// New returns the renderer for format. A nil clock means the real clock.
func New(format string, clock clockwork.Clock) (Renderer, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	switch strings.ToLower(format) {
	case FormatMarkdown, "markdown":
		return &MarkdownRenderer{clock: clock}, nil
	case FormatXLSX:
		return &XLSXRenderer{clock: clock}, nil
	default:
		return nil, esg.NewValidationError("format", "unknown report format %q", format)
	}
}

// narrativeSection pairs an analysis kind with its heading, in report order.
type narrativeSection struct {
	Kind  string
	Title string
}

var narrativeSections = []narrativeSection{
	{narrative.KindExplain, "Score Explanation"},
	{narrative.KindCompare, "Peer Comparison"},
	{narrative.KindRecommend, "AI Investment Analysis"},
}

// ScoreDescription grades a 0-100 score.
func ScoreDescription(score float64) string {
	switch {
	case score >= 80:
		return "Excellent performance"
	case score >= 60:
		return "Good performance"
	case score >= 40:
		return "Needs improvement"
	default:
		return "Critical attention required"
	}
}

// IndustryPositioning places an overall score relative to the industry.
func IndustryPositioning(score float64) string {
	switch {
	case score >= 80:
		return "Industry leader"
	case score >= 60:
		return "Above average"
	case score >= 40:
		return "Below average"
	default:
		return "Requires significant improvement"
	}
}

// Recommendation maps an overall score to BUY, HOLD or CAUTION.
func Recommendation(overall float64) string {
	switch {
	case overall >= 80:
		return "BUY"
	case overall >= 60:
		return "HOLD"
	default:
		return "CAUTION"
	}
}

// Risk is one row of the risk assessment.
type Risk struct {
	Category    string
	Level       string
	Description string
}

// Risks assesses the category scores and the SAPA violation count.
func Risks(c *model.CompanyRecord) []Risk {
	level := func(score float64) string {
		switch {
		case score < 60:
			return "High"
		case score < 80:
			return "Medium"
		default:
			return "Low"
		}
	}
	sapa := "Low"
	switch {
	case c.SAPAViolations > 5:
		sapa = "High"
	case c.SAPAViolations > 2:
		sapa = "Medium"
	}
	return []Risk{
		{"Environmental Risk", level(c.EScore), "Climate change regulations and environmental compliance requirements"},
		{"Social Risk", level(c.SScore), "Worker safety incidents and community relations challenges"},
		{"Governance Risk", level(c.GScore), "Corporate governance and regulatory compliance issues"},
		{"SAPA Compliance Risk", sapa, num(c.SAPAViolations) + " recorded safety violations requiring attention"},
	}
}

func riskProfile(c *model.CompanyRecord) string {
	if c.SAPAViolations > 3 {
		return "Elevated"
	}
	return "Manageable"
}

// num formats v without trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
