package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/esg-cli/internal/esg"
	"github.com/sells-group/esg-cli/internal/model"
)

// Export formats.
const (
	ExportJSON = "json"
	ExportYAML = "yaml"
	ExportCSV  = "csv"
)

// ExportHeader is the header row of a CSV export.
var ExportHeader = []string{
	"companyName", "slug", "category", "overallScore", "e_score", "s_score", "g_score",
	"e_total_score", "s_total_score", "g_total_score", "sapaViolations", "profit", "emissions",
	"metricCount", "dataSource", "lastUpdated",
}

// Export writes recs in the given format. JSON and YAML carry full documents;
// CSV has one summary row per company.
func Export(w io.Writer, recs []model.CompanyRecord, format string) error {
	if recs == nil {
		recs = []model.CompanyRecord{}
	}
	switch strings.ToLower(format) {
	case ExportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(recs), "export: encode json")
	case ExportYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(recs); err != nil {
			return eris.Wrap(err, "export: encode yaml")
		}
		return eris.Wrap(enc.Close(), "export: close yaml")
	case ExportCSV:
		return exportCSV(w, recs)
	default:
		return esg.NewValidationError("format", "unknown export format %q", format)
	}
}

func exportCSV(w io.Writer, recs []model.CompanyRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for i := range recs {
		c := &recs[i]
		row := []string{
			c.CompanyName, c.Slug, string(c.Category),
			num(c.OverallScore), num(c.EScore), num(c.SScore), num(c.GScore),
			num(c.ETotalScore), num(c.STotalScore), num(c.GTotalScore),
			num(c.SAPAViolations), num(c.Profit), num(c.Emissions),
			strconv.Itoa(len(c.AllMetrics)), c.DataSource, formatTime(c.LastUpdated),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", c.Slug)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
