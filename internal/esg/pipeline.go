package esg

import (
	"github.com/sells-group/esg-cli/internal/model"
)

// BuildMetrics turns the rows of a sheet into classified metrics. Rows with
// no company name or no metric name are skipped.
func BuildMetrics(sheet *Sheet) []Metric {
	l := sheet.Layout
	out := make([]Metric, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		company := row.Value(l.Name)
		name := row.Value(l.Metric)
		if company == "" || name == "" {
			continue
		}

		schema := DetectSchema(l, row)
		class := Classify(schema, name)
		desc := row.Value(l.Description)
		ev := Extract(desc)

		out = append(out, Metric{
			Company: company,
			Schema:  schema,
			Total:   class.Total,
			Record: model.MetricRecord{
				Name:             name,
				Score:            ParseScore(row.Value(l.Score)),
				Description:      desc,
				Source:           ev.Source,
				SourceURL:        ev.SourceURL,
				Evidence:         ev.Evidence,
				Category:         class.Category,
				OriginalCategory: class.OriginalCategory,
			},
		})
	}
	return out
}

// Aggregate parses text and groups its metrics per company.
func Aggregate(text string) ([]*Accumulator, error) {
	sheet, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return Group(BuildMetrics(sheet)), nil
}

// Transform runs the full pipeline over text and returns one record per
// distinct company name. It stops at the first company that fails
// validation.
func Transform(text string, opts NormalizeOptions) ([]*model.CompanyRecord, error) {
	accs, err := Aggregate(text)
	if err != nil {
		return nil, err
	}
	out := make([]*model.CompanyRecord, 0, len(accs))
	for _, acc := range accs {
		rec, err := Normalize(acc, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
