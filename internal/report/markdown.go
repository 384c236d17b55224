package report

import (
	"io"
	"strings"
	"text/template"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-cli/internal/model"
)

const dateLayout = "January 2, 2006"

var markdownTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"num":    num,
	"grade":  ScoreDescription,
	"cell":   cell,
	"source": sourceCell,
}).Parse(`# ESG Analysis Report: {{.C.CompanyName}}

**Overall ESG Score: {{num .C.OverallScore}}/100**

- Environmental: {{num .C.EScore}}/100
- Social: {{num .C.SScore}}/100
- Governance: {{num .C.GScore}}/100

Business category: {{.C.Category}}. Generated on {{.Generated}}.

## Executive Summary

{{.C.CompanyName}} demonstrates an overall ESG score of {{num .C.OverallScore}}/100.

Key performance indicators:

{{range .Pillars}}- {{.Name}} Score: {{num .Score}}/100 - {{grade .Score}}
{{end}}
SAPA violations: {{num .C.SAPAViolations}} recorded incidents

## ESG Score Breakdown

| Pillar | Score | Metric total | Scope |
|---|---|---|---|
{{range .Pillars}}| {{.Name}} ({{.Letter}}) | {{num .Score}}/100 | {{num .Total}} | {{.Scope}} |
{{end}}{{range .Tables}}
### {{.Title}} metrics ({{len .Metrics}})

| Metric | Score | Source | Evidence |
|---|---|---|---|
{{range .Metrics}}| {{cell .Name}} | {{num .Score}} | {{source .}} | {{cell .Evidence}} |
{{end}}{{end}}
## Risk Assessment

| Risk | Level | Notes |
|---|---|---|
{{range .Risks}}| {{.Category}} | {{.Level}} | {{.Description}} |
{{end}}
## Investment Recommendation

**Recommendation: {{.Recommendation}}**

- Overall ESG Score: {{num .C.OverallScore}}/100
- Industry positioning: {{.Positioning}}
- Risk profile: {{.RiskProfile}}
{{range .Narratives}}
## {{.Title}}

{{.Text}}
{{end}}`))

type pillar struct {
	Name   string
	Letter string
	Score  float64
	Total  float64
	Scope  string
}

type metricTable struct {
	Title   string
	Metrics []model.MetricRecord
}

type narrativeBlock struct {
	Title string
	Text  string
}

type markdownData struct {
	C              *model.CompanyRecord
	Generated      string
	Pillars        []pillar
	Tables         []metricTable
	Risks          []Risk
	Recommendation string
	Positioning    string
	RiskProfile    string
	Narratives     []narrativeBlock
}

// MarkdownRenderer renders a report as GitHub-flavored Markdown.
type MarkdownRenderer struct {
	clock clockwork.Clock
}

func (r *MarkdownRenderer) ContentType() string { return "text/markdown; charset=utf-8" }
func (r *MarkdownRenderer) Ext() string         { return ".md" }

func (r *MarkdownRenderer) Render(w io.Writer, c *model.CompanyRecord, narratives map[string]string) error {
	if c == nil {
		return eris.New("report: nil company")
	}
	data := markdownData{
		C:              c,
		Generated:      r.clock.Now().UTC().Format(dateLayout),
		Pillars:        pillars(c),
		Tables:         metricTables(c),
		Risks:          Risks(c),
		Recommendation: Recommendation(c.OverallScore),
		Positioning:    IndustryPositioning(c.OverallScore),
		RiskProfile:    riskProfile(c),
		Narratives:     narrativeBlocks(narratives),
	}
	return eris.Wrap(markdownTmpl.Execute(w, data), "report: render markdown")
}

func pillars(c *model.CompanyRecord) []pillar {
	return []pillar{
		{"Environmental", "E", c.EScore, c.ETotalScore, "Climate impact, resource management, waste reduction"},
		{"Social", "S", c.SScore, c.STotalScore, "Worker safety, community impact, labor practices"},
		{"Governance", "G", c.GScore, c.GTotalScore, "Board structure, ethics, transparency, compliance"},
	}
}

// metricTables lists the non-empty ESG buckets in category order.
func metricTables(c *model.CompanyRecord) []metricTable {
	var out []metricTable
	for _, cat := range model.ESGCategories {
		ms := c.DetailedMetrics.Bucket(cat)
		if len(ms) == 0 {
			continue
		}
		out = append(out, metricTable{Title: string(cat), Metrics: ms})
	}
	return out
}

func narrativeBlocks(narratives map[string]string) []narrativeBlock {
	var out []narrativeBlock
	for _, s := range narrativeSections {
		text := strings.TrimSpace(narratives[s.Kind])
		if text == "" {
			continue
		}
		out = append(out, narrativeBlock{Title: s.Title, Text: text})
	}
	return out
}

// cell makes s safe inside a Markdown table cell.
func cell(s string) string {
	s = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ").Replace(s)
	return strings.TrimSpace(s)
}

func sourceCell(m model.MetricRecord) string {
	switch {
	case m.SourceURL != "" && m.Source != "":
		return "[" + cell(m.Source) + "](" + m.SourceURL + ")"
	case m.SourceURL != "":
		return m.SourceURL
	default:
		return cell(m.Source)
	}
}
