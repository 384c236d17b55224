package esg

import (
	"math"
	"strings"

	"github.com/sells-group/esg-cli/internal/model"
)

// Metric is a classified metric tagged with the company it belongs to.
type Metric struct {
	Company string
	Record  model.MetricRecord
	Schema  Schema
	Total   TotalSlot
}

// TotalScores holds the explicit category totals from structured sheets.
// A nil pointer means no total row was seen for that category.
type TotalScores struct {
	E *float64
	S *float64
	G *float64
}

// Any reports whether at least one total is present.
func (t TotalScores) Any() bool { return t.E != nil || t.S != nil || t.G != nil }

func (t *TotalScores) set(slot TotalSlot, v float64) {
	switch slot {
	case TotalE:
		t.E = &v
	case TotalS:
		t.S = &v
	case TotalG:
		t.G = &v
	}
}

// Accumulator collects the metrics of one company in input order.
type Accumulator struct {
	CompanyName string
	Metrics     []model.MetricRecord
	Buckets     model.DetailedMetrics
	Totals      TotalScores
}

// Aggregates is the score summary of one company.
type Aggregates struct {
	Overall                float64
	E, S, G                float64
	ETotal, STotal, GTotal float64
	Profit, Emissions      float64
}

// Group collects metrics per raw company name, keeping first-seen order of
// companies and input order of metrics. Names are not normalized: two
// spellings of one company are two companies.
func Group(metrics []Metric) []*Accumulator {
	var order []*Accumulator
	byName := make(map[string]*Accumulator)
	for _, m := range metrics {
		acc, ok := byName[m.Company]
		if !ok {
			acc = &Accumulator{CompanyName: m.Company}
			byName[m.Company] = acc
			order = append(order, acc)
		}
		acc.Metrics = append(acc.Metrics, m.Record)
		acc.Buckets.Add(m.Record)
		if m.Total != NoTotal {
			acc.Totals.set(m.Total, m.Record.Score)
		}
	}
	return order
}

// Score reduces the accumulator. A category with an explicit total uses it
// as-is; any other category averages its metrics, rounded to one decimal.
// The overall score is the rounded mean of the three category scores.
func (a *Accumulator) Score() Aggregates {
	env := a.Buckets.Environmental
	soc := a.Buckets.Social
	gov := a.Buckets.Governance

	agg := Aggregates{
		E:      categoryScore(a.Totals.E, env),
		S:      categoryScore(a.Totals.S, soc),
		G:      categoryScore(a.Totals.G, gov),
		ETotal: sum(env),
		STotal: sum(soc),
		GTotal: sum(gov),
	}
	agg.Overall = Round1((agg.E + agg.S + agg.G) / 3)

	if m, ok := firstMetric(a.Metrics, isProfit); ok {
		agg.Profit = m.Score
	}
	if m, ok := firstMetric(a.Metrics, isEmissions); ok {
		agg.Emissions = m.Score
	}
	return agg
}

func categoryScore(total *float64, metrics []model.MetricRecord) float64 {
	if total != nil {
		return *total
	}
	return average(metrics)
}

func average(metrics []model.MetricRecord) float64 {
	if len(metrics) == 0 {
		return 0
	}
	return Round1(sum(metrics) / float64(len(metrics)))
}

func sum(metrics []model.MetricRecord) float64 {
	var total float64
	for _, m := range metrics {
		total += m.Score
	}
	return total
}

func isProfit(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "profit") && !strings.Contains(n, "/")
}

func isEmissions(name string) bool {
	return strings.Contains(strings.ToLower(name), "emissions")
}

func firstMetric(metrics []model.MetricRecord, match func(string) bool) (model.MetricRecord, bool) {
	for _, m := range metrics {
		if match(m.Name) {
			return m, true
		}
	}
	return model.MetricRecord{}, false
}

// Round1 rounds half away from zero to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
