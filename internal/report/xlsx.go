package report

import (
	"io"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/esg-cli/internal/model"
)

// Sheet names written by XLSXRenderer.
const (
	SheetSummary  = "Summary"
	SheetMetrics  = "Metrics"
	SheetAnalysis = "Analysis"
)

// MetricsHeader is the first row of the Metrics sheet.
var MetricsHeader = []string{"Category", "Metric", "Score", "Description", "Source", "Source URL", "Evidence", "Original Category"}

// XLSXRenderer renders a report as a workbook with Summary and Metrics
// sheets, plus an Analysis sheet when narratives are present.
type XLSXRenderer struct {
	clock clockwork.Clock
}

func (r *XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (r *XLSXRenderer) Ext() string { return ".xlsx" }

func (r *XLSXRenderer) Render(w io.Writer, c *model.CompanyRecord, narratives map[string]string) error {
	if c == nil {
		return eris.New("report: nil company")
	}
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	addStrings(summary, "Field", "Value")
	addString(summary, "Company", c.CompanyName)
	addString(summary, "Slug", c.Slug)
	addString(summary, "Business Category", string(c.Category))
	addFloat(summary, "Overall Score", c.OverallScore)
	addFloat(summary, "Environmental Score", c.EScore)
	addFloat(summary, "Social Score", c.SScore)
	addFloat(summary, "Governance Score", c.GScore)
	addFloat(summary, "Environmental Total", c.ETotalScore)
	addFloat(summary, "Social Total", c.STotalScore)
	addFloat(summary, "Governance Total", c.GTotalScore)
	addFloat(summary, "SAPA Violations", c.SAPAViolations)
	addFloat(summary, "Profit", c.Profit)
	addFloat(summary, "Emissions", c.Emissions)
	addString(summary, "Recommendation", Recommendation(c.OverallScore))
	addString(summary, "Industry Positioning", IndustryPositioning(c.OverallScore))
	addString(summary, "Data Source", c.DataSource)
	addString(summary, "Last Updated", c.LastUpdated.UTC().Format(dateLayout))
	addString(summary, "Generated", r.clock.Now().UTC().Format(dateLayout))

	metrics, err := f.AddSheet(SheetMetrics)
	if err != nil {
		return eris.Wrap(err, "report: add metrics sheet")
	}
	addStrings(metrics, MetricsHeader...)
	for _, cat := range model.ESGCategories {
		for _, m := range c.DetailedMetrics.Bucket(cat) {
			row := metrics.AddRow()
			row.AddCell().SetString(string(cat))
			row.AddCell().SetString(m.Name)
			row.AddCell().SetFloat(m.Score)
			row.AddCell().SetString(m.Description)
			row.AddCell().SetString(m.Source)
			row.AddCell().SetString(m.SourceURL)
			row.AddCell().SetString(m.Evidence)
			row.AddCell().SetString(m.OriginalCategory)
		}
	}

	if blocks := narrativeBlocks(narratives); len(blocks) > 0 {
		analysis, err := f.AddSheet(SheetAnalysis)
		if err != nil {
			return eris.Wrap(err, "report: add analysis sheet")
		}
		addStrings(analysis, "Section", "Text")
		for _, b := range blocks {
			addStrings(analysis, b.Title, b.Text)
		}
	}

	return eris.Wrap(f.Write(w), "report: write xlsx")
}

func addStrings(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addString(sheet *xlsx.Sheet, label, value string) {
	addStrings(sheet, label, value)
}

func addFloat(sheet *xlsx.Sheet, label string, value float64) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetFloat(value)
}
