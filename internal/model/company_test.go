package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetailedMetrics_AddAndBucket(t *testing.T) {
	var d DetailedMetrics
	d.Add(MetricRecord{Name: "Carbon", Category: Environmental})
	d.Add(MetricRecord{Name: "Safety", Category: Social})
	d.Add(MetricRecord{Name: "Board", Category: Governance})
	d.Add(MetricRecord{Name: "Misc", Category: OtherESG})
	d.Add(MetricRecord{Name: "Unknown", Category: "weird"})

	assert.Len(t, d.Bucket(Environmental), 1)
	assert.Len(t, d.Bucket(Social), 1)
	assert.Len(t, d.Bucket(Governance), 1)
	require.Len(t, d.Bucket(OtherESG), 2)
	assert.Equal(t, "Unknown", d.Other[1].Name)
}

func TestCompanyRecord_ScoreFor(t *testing.T) {
	c := CompanyRecord{EScore: 81, SScore: 70, GScore: 65}
	assert.Equal(t, 81.0, c.ScoreFor(Environmental))
	assert.Equal(t, 70.0, c.ScoreFor(Social))
	assert.Equal(t, 65.0, c.ScoreFor(Governance))
	assert.Zero(t, c.ScoreFor(OtherESG))
}

func TestCompanyRecord_JSONFieldNames(t *testing.T) {
	c := CompanyRecord{CompanyName: "Acme", Slug: "acme", EScore: 1, ETotalScore: 2}
	b, err := json.Marshal(c)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	for _, k := range []string{"companyName", "slug", "overallScore", "e_score", "e_total_score", "detailedMetrics", "allMetrics", "lastUpdated"} {
		assert.Contains(t, raw, k)
	}
	assert.NotContains(t, raw, "dataSource")
}

func TestImportResult_Add(t *testing.T) {
	var r ImportResult
	r.Add(ImportItem{Success: true, Company: "A", ID: "a"})
	r.Add(ImportItem{Success: false, Company: "B", Error: "boom"})
	r.Add(ImportItem{Success: true, Company: "C", ID: "c"})

	assert.Equal(t, 2, r.Successful)
	assert.Equal(t, 1, r.Failed)
	assert.Len(t, r.Results, 3)
}
