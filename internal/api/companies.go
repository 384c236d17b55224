package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-cli/internal/company"
	"github.com/sells-group/esg-cli/internal/esg"
	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/narrative"
	"github.com/sells-group/esg-cli/internal/report"
)

// FilterFromQuery reads FilterOptions from URL query parameters: search,
// category, minScore, maxScore, hasViolations and sortBy.
func FilterFromQuery(q map[string][]string) (company.FilterOptions, error) {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	opts := company.FilterOptions{
		Search:   get("search"),
		Category: get("category"),
		SortBy:   company.ParseSortBy(get("sortBy")),
	}
	for _, f := range []struct {
		key string
		dst **float64
	}{{"minScore", &opts.MinScore}, {"maxScore", &opts.MaxScore}} {
		raw := get(f.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return opts, esg.NewValidationError(f.key, "%q is not a number", raw)
		}
		*f.dst = &v
	}
	if raw := get("hasViolations"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, esg.NewValidationError("hasViolations", "%q is not a boolean", raw)
		}
		opts.HasViolations = &v
	}
	return opts, nil
}

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	opts, err := FilterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	recs, err := s.companies.Filter(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []model.CompanyRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) getCompany(w http.ResponseWriter, r *http.Request) {
	rec, err := s.companies.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) patchCompany(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var patch company.Patch
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, esg.NewValidationError("body", "invalid patch: %v", err))
		return
	}
	rec, err := s.companies.Update(r.Context(), chi.URLParam(r, "slug"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// companyMetrics returns detailed metrics by default and the flat list with
// view=all.
func (s *Server) companyMetrics(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	switch view := r.URL.Query().Get("view"); view {
	case "", "detailed":
		d, err := s.companies.DetailedMetrics(r.Context(), slug)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	case "all":
		ms, err := s.companies.AllMetrics(r.Context(), slug)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ms)
	default:
		writeError(w, esg.NewValidationError("view", "unknown view %q", view))
	}
}

func (s *Server) searchMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := strings.TrimSpace(q.Get("q"))
	if term == "" {
		writeError(w, esg.NewValidationError("q", "search term is required"))
		return
	}
	matches, err := s.companies.SearchMetrics(r.Context(), term, model.ESGCategory(q.Get("category")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// companyAnalysis runs one analysis with kind=explain|compare|recommend, or
// all three by default.
func (s *Server) companyAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.narrative == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "analysis is not configured"})
		return
	}
	ctx := r.Context()
	rec, err := s.companies.Get(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	kind := r.URL.Query().Get("kind")
	if kind == narrative.KindExplain {
		writeJSON(w, http.StatusOK, s.narrative.ExplainScore(ctx, rec))
		return
	}
	peers, err := s.companies.List(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	switch kind {
	case "", "all":
		writeJSON(w, http.StatusOK, s.narrative.Analyze(ctx, rec, peers))
	case narrative.KindCompare:
		writeJSON(w, http.StatusOK, s.narrative.ComparePeers(ctx, rec, peers))
	case narrative.KindRecommend:
		writeJSON(w, http.StatusOK, s.narrative.RecommendInvestment(ctx, rec, peers))
	default:
		writeError(w, esg.NewValidationError("kind", "unknown analysis %q", kind))
	}
}

// companyReport renders format=md (default) or xlsx. analysis=true includes
// the narratives when the narrative service is configured.
func (s *Server) companyReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = report.FormatMarkdown
	}
	renderer, err := report.New(format, s.clock)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.companies.Get(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	var blocks map[string]string
	if withAnalysis, _ := strconv.ParseBool(q.Get("analysis")); withAnalysis && s.narrative != nil {
		peers, err := s.companies.List(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		blocks = s.narrative.Analyze(ctx, rec, peers).Blocks()
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, rec, blocks); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+rec.Slug+"-esg-report"+renderer.Ext()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(http.MaxBytesReader(w, r.Body, maxBodyBytes)); err != nil {
		return nil, eris.Wrap(err, "api: read body")
	}
	return buf.Bytes(), nil
}
