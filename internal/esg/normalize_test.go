package esg

import (
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-cli/internal/model"
)

var slugShape = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Acme", "acme"},
		{"GS E&C", "gs-e-c"},
		{"GS  E&C!!", "gs-e-c"},
		{"  --Hyundai Engineering & Construction-- ", "hyundai-engineering-construction"},
		{"Samsung C&T", "samsung-c-t"},
		{"POSCO E&C 2024", "posco-e-c-2024"},
		{"대우건설 Daewoo", "daewoo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slug(tt.name)
			assert.Equal(t, tt.want, got)
			assert.Regexp(t, slugShape, got)
		})
	}
}

func TestValidSlug_Empty(t *testing.T) {
	for _, name := range []string{"", "!!!", "대우건설", " - "} {
		_, err := ValidSlug(name)
		require.Error(t, err, name)
		assert.True(t, IsValidation(err))
	}
}

func TestInferBusinessCategory(t *testing.T) {
	tests := []struct {
		name string
		want model.BusinessCategory
	}{
		{"Hyundai Engineering", model.Construction},
		{"GS E&C", model.Construction},
		{"Samsung Electronics", model.Construction},
		{"Lotte Housing", model.Residential},
		{"Prime Office REIT", model.Commercial},
		{"Korea Civil Works", model.Infrastructure},
		{"KEPCO Power", model.Energy},
		{"Acme", model.OtherBusiness},
		{"Daewoo Residential Construction", model.Construction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferBusinessCategory(tt.name))
		})
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"8.9", 8.9},
		{" 42 ", 42},
		{"-3.5", -3.5},
		{".5", 0.5},
		{"1e2", 100},
		{"7 points", 7},
		{"1,000", 1},
		{"", 0},
		{"-", 0},
		{"NaN", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseScore(tt.in))
		})
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, 0.0, Sanitize(math.NaN()))
	assert.Equal(t, 0.0, Sanitize(math.Inf(1)))
	assert.Equal(t, 0.0, Sanitize(math.Inf(-1)))
	assert.Equal(t, 1.5, Sanitize(1.5))
}

func TestNormalize_Timestamps(t *testing.T) {
	now := time.Date(2026, time.March, 2, 9, 30, 0, 0, time.FixedZone("KST", 9*3600))
	acc := &Accumulator{CompanyName: "Acme"}
	rec, err := Normalize(acc, NormalizeOptions{Now: now, DataSource: model.SourceCSV})
	require.NoError(t, err)

	assert.Equal(t, now.UTC(), rec.LastUpdated)
	assert.Equal(t, rec.LastUpdated, rec.CreatedAt)
	assert.Equal(t, rec.LastUpdated, rec.ImportedAt)
	assert.Equal(t, model.SourceCSV, rec.DataSource)
	assert.Equal(t, 0.0, rec.SAPAViolations)
	assert.NotNil(t, rec.AllMetrics)
	assert.NotNil(t, rec.DetailedMetrics.Other)
}

func TestNormalize_EmptySlug(t *testing.T) {
	_, err := Normalize(&Accumulator{CompanyName: "???"}, NormalizeOptions{Now: time.Now()})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestSanitizeRecord(t *testing.T) {
	rec := &model.CompanyRecord{
		OverallScore:   math.NaN(),
		EScore:         math.Inf(1),
		SAPAViolations: math.NaN(),
		AllMetrics:     []model.MetricRecord{{Name: "x", Score: math.NaN()}},
		DetailedMetrics: model.DetailedMetrics{
			Social: []model.MetricRecord{{Name: "y", Score: math.Inf(-1), Category: model.Social}},
		},
	}
	SanitizeRecord(rec)

	assert.Equal(t, 0.0, rec.OverallScore)
	assert.Equal(t, 0.0, rec.EScore)
	assert.Equal(t, 0.0, rec.SAPAViolations)
	assert.Equal(t, 0.0, rec.AllMetrics[0].Score)
	assert.Equal(t, model.OtherESG, rec.AllMetrics[0].Category)
	assert.Equal(t, 0.0, rec.DetailedMetrics.Social[0].Score)
	assert.Equal(t, model.Social, rec.DetailedMetrics.Social[0].Category)
}
