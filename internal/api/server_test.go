package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/esg-cli/internal/company"
	"github.com/sells-group/esg-cli/internal/esg"
	"github.com/sells-group/esg-cli/internal/importer"
	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/narrative"
	"github.com/sells-group/esg-cli/internal/store"
)

var testNow = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

const seedCSV = `Name,Metric,Score,Description
Acme Construction,Carbon emissions,80,"Source: Annual Report 2024, https://acme.example/esg, cut 20%"
Acme Construction,Safety training,60,
Acme Construction,Board independence,70,
Beta Housing,Energy use,40,carbon intensity
Beta Housing,Worker safety,30,
`

type testEnv struct {
	store   *store.SQLiteStore
	handler http.Handler
	client  *mockAnthropicClient
}

func newTestEnv(t *testing.T, withNarrative bool) *testEnv {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "esg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	clock := clockwork.NewFakeClockAt(testNow)
	imp := importer.New(st, importer.Options{Clock: clock})
	_, err = imp.ImportCSV(context.Background(), "seed.csv", seedCSV)
	require.NoError(t, err)

	env := &testEnv{store: st}
	deps := Deps{
		Store:     st,
		Companies: company.NewService(st, clock),
		Importer:  imp,
		Clock:     clock,
	}
	if withNarrative {
		env.client = &mockAnthropicClient{}
		deps.Narrative = narrative.New(env.client, nil, narrative.Config{Model: "claude-test"}, clock)
	}
	env.handler = New(deps).Routes(nil)
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	rr := env.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	body := decode[map[string]string](t, rr)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "2026-04-01T08:00:00Z", body["time"])
}

func TestListCompanies(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(t, http.MethodGet, "/companies", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	recs := decode[[]model.CompanyRecord](t, rr)
	require.Len(t, recs, 2)
	assert.Equal(t, "acme-construction", recs[0].Slug)
	assert.InDelta(t, 70, recs[0].OverallScore, 0.001)

	rr = env.do(t, http.MethodGet, "/companies?category=Residential&sortBy=name-asc", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	recs = decode[[]model.CompanyRecord](t, rr)
	require.Len(t, recs, 1)
	assert.Equal(t, "beta-housing", recs[0].Slug)

	rr = env.do(t, http.MethodGet, "/companies?minScore=90", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestListCompanies_BadQuery(t *testing.T) {
	env := newTestEnv(t, false)
	for _, q := range []string{"minScore=high", "maxScore=x", "hasViolations=maybe"} {
		rr := env.do(t, http.MethodGet, "/companies?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestFilterFromQuery(t *testing.T) {
	opts, err := FilterFromQuery(map[string][]string{
		"search":        {" acme "},
		"category":      {"all"},
		"minScore":      {"0"},
		"hasViolations": {"false"},
		"sortBy":        {"violations-desc"},
	})
	require.NoError(t, err)
	assert.Equal(t, "acme", opts.Search)
	assert.Equal(t, company.CategoryAll, opts.Category)
	require.NotNil(t, opts.MinScore)
	assert.Zero(t, *opts.MinScore)
	assert.Nil(t, opts.MaxScore)
	require.NotNil(t, opts.HasViolations)
	assert.False(t, *opts.HasViolations)
	assert.Equal(t, company.SortViolationsDesc, opts.SortBy)
}

func TestGetCompany(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(t, http.MethodGet, "/companies/beta-housing", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rec := decode[model.CompanyRecord](t, rr)
	assert.Equal(t, "Beta Housing", rec.CompanyName)
	assert.Equal(t, model.Residential, rec.Category)

	rr = env.do(t, http.MethodGet, "/companies/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "not found")
}

func TestPatchCompany(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(t, http.MethodPatch, "/companies/acme-construction", []byte(`{"sapaViolations": 2, "category": "Infrastructure"}`))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rec := decode[model.CompanyRecord](t, rr)
	assert.InDelta(t, 2, rec.SAPAViolations, 0.001)
	assert.Equal(t, model.Infrastructure, rec.Category)

	rr = env.do(t, http.MethodGet, "/companies?hasViolations=true", nil)
	recs := decode[[]model.CompanyRecord](t, rr)
	require.Len(t, recs, 1)
	assert.Equal(t, "acme-construction", recs[0].Slug)

	rr = env.do(t, http.MethodPatch, "/companies/acme-construction", []byte(`{"companyName": "Renamed"}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPatch, "/companies/nobody", []byte(`{}`))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCompanyMetrics(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(t, http.MethodGet, "/companies/acme-construction/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	d := decode[model.DetailedMetrics](t, rr)
	require.Len(t, d.Environmental, 1)
	assert.Equal(t, "https://acme.example/esg", d.Environmental[0].SourceURL)
	assert.Equal(t, "cut 20%", d.Environmental[0].Evidence)

	rr = env.do(t, http.MethodGet, "/companies/acme-construction/metrics?view=all", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	all := decode[[]model.MetricRecord](t, rr)
	require.Len(t, all, 3)
	assert.Equal(t, "Safety training", all[1].Name)

	rr = env.do(t, http.MethodGet, "/companies/acme-construction/metrics?view=pie", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSearchMetrics(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(t, http.MethodGet, "/metrics/search?q=safety", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	matches := decode[[]company.MetricMatch](t, rr)
	require.Len(t, matches, 2)
	assert.Equal(t, "acme-construction", matches[0].CompanyID)
	assert.Equal(t, "Beta Housing", matches[1].CompanyName)

	rr = env.do(t, http.MethodGet, "/metrics/search?q=carbon&category=Environmental", nil)
	matches = decode[[]company.MetricMatch](t, rr)
	assert.Len(t, matches, 2)

	rr = env.do(t, http.MethodGet, "/metrics/search", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAnalysis_NotConfigured(t *testing.T) {
	env := newTestEnv(t, false)
	rr := env.do(t, http.MethodGet, "/companies/acme-construction/analysis", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAnalysis_Explain(t *testing.T) {
	env := newTestEnv(t, true)
	env.client.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("Acme leads on emissions."), nil).Once()

	rr := env.do(t, http.MethodGet, "/companies/acme-construction/analysis?kind=explain", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[narrative.Result](t, rr)
	assert.True(t, res.Success)
	assert.Equal(t, "Acme leads on emissions.", res.Text)
	env.client.AssertExpectations(t)
}

func TestAnalysis_All(t *testing.T) {
	env := newTestEnv(t, true)
	env.client.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("ok"), nil).Times(3)

	rr := env.do(t, http.MethodGet, "/companies/beta-housing/analysis", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	a := decode[narrative.Analysis](t, rr)
	assert.Equal(t, "Beta Housing", a.Company)
	assert.Equal(t, 2, a.Peers.Rank)
	assert.Equal(t, 2, a.Peers.Count)
	assert.True(t, a.Comparison.Success)
	env.client.AssertExpectations(t)
}

func TestAnalysis_Failure(t *testing.T) {
	env := newTestEnv(t, true)
	env.client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	rr := env.do(t, http.MethodGet, "/companies/acme-construction/analysis?kind=recommend", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[narrative.Result](t, rr)
	assert.False(t, res.Success)
	assert.Equal(t, narrative.Placeholder, res.Text)

	rr = env.do(t, http.MethodGet, "/companies/acme-construction/analysis?kind=poem", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/companies/nobody/analysis", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReport_Markdown(t *testing.T) {
	env := newTestEnv(t, true)
	env.client.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("Narrative text."), nil).Times(3)

	rr := env.do(t, http.MethodGet, "/companies/acme-construction/report?analysis=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="acme-construction-esg-report.md"`)
	body := rr.Body.String()
	assert.Contains(t, body, "# ESG Analysis Report: Acme Construction")
	assert.Contains(t, body, "Generated on April 1, 2026.")
	assert.Contains(t, body, "## Peer Comparison\n\nNarrative text.")
	env.client.AssertExpectations(t)
}

func TestReport_XLSX(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(t, http.MethodGet, "/companies/beta-housing/report?format=xlsx&analysis=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "spreadsheetml")

	f, err := xlsx.OpenBinary(rr.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, f.Sheets, 2, "no analysis sheet without a narrative service")
}

func TestReport_Errors(t *testing.T) {
	env := newTestEnv(t, false)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/companies/acme-construction/report?format=pdf", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/companies/nobody/report", nil).Code)
}

func TestImportCSV(t *testing.T) {
	env := newTestEnv(t, false)

	csv := "Name,Metric,Score,Description\nGamma Power,Renewable share,90,\n"
	rr := env.do(t, http.MethodPost, "/imports/csv?source=upload.csv", []byte("\ufeff"+csv))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[model.ImportResult](t, rr)
	assert.Equal(t, "upload.csv", res.Source)
	assert.Equal(t, 1, res.Successful)

	rr = env.do(t, http.MethodGet, "/companies/gamma-power", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rec := decode[model.CompanyRecord](t, rr)
	assert.Equal(t, model.Energy, rec.Category)
	assert.Equal(t, model.SourceCSV, rec.DataSource)

	rr = env.do(t, http.MethodPost, "/imports/csv", []byte("Company,Value\nx,1\n"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/imports/csv?charset=klingon", []byte(csv))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestImportJSON(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(t, http.MethodPost, "/imports/json", []byte(`[{"companyName": "Delta Office REIT", "overallScore": 55}]`))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[model.ImportResult](t, rr)
	assert.Equal(t, "api upload", res.Source)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "delta-office-reit", res.Results[0].ID)

	rr = env.do(t, http.MethodPost, "/imports/json", []byte(`{"companyName": "x"}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestImportXLSX(t *testing.T) {
	env := newTestEnv(t, false)

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Scores")
	require.NoError(t, err)
	for _, row := range [][]string{
		{"Name", "Metric", "Score", "Description"},
		{"Epsilon Civil", "Board independence", "65", "Source: audit committee"},
	} {
		r := sheet.AddRow()
		for _, v := range row {
			r.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rr := env.do(t, http.MethodPost, "/imports/xlsx?sheet=Scores", buf.Bytes())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[model.ImportResult](t, rr)
	assert.Equal(t, 1, res.Successful)

	rr = env.do(t, http.MethodPost, "/imports/xlsx", []byte("not a workbook"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListImports(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(t, http.MethodGet, "/imports?limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	runs := decode[[]model.ImportRun](t, rr)
	require.Len(t, runs, 1)
	assert.Equal(t, "seed.csv", runs[0].Source)
	assert.Equal(t, model.FormatCSV, runs[0].Format)
	assert.Equal(t, 2, runs[0].Successful)

	rr = env.do(t, http.MethodGet, "/imports?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStoreFailure(t *testing.T) {
	env := newTestEnv(t, false)
	require.NoError(t, env.store.Close())

	rr := env.do(t, http.MethodGet, "/companies", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/companies", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(esg.NewFormatError("bad")))
	assert.Equal(t, http.StatusBadRequest, StatusFor(esg.NewValidationError("f", "bad")))
	assert.Equal(t, http.StatusNotFound, StatusFor(&company.NotFoundError{Slug: "x"}))
	assert.Equal(t, http.StatusBadGateway, StatusFor(esg.NewExternalError("store", errors.New("down"))))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("other")))
}
