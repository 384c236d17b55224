// Package api serves company records, analyses, reports and imports over
// HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/sells-group/esg-cli/internal/company"
	"github.com/sells-group/esg-cli/internal/esg"
	"github.com/sells-group/esg-cli/internal/importer"
	"github.com/sells-group/esg-cli/internal/narrative"
	"github.com/sells-group/esg-cli/internal/store"
)

// maxBodyBytes caps import and patch request bodies.
const maxBodyBytes = 10 << 20

// Deps are the services behind the API. Narrative may be nil, in which case
// analysis endpoints answer 503.
type Deps struct {
	Store     store.Store
	Companies *company.Service
	Importer  *importer.Importer
	Narrative *narrative.Service
	Clock     clockwork.Clock
}

// Server holds the handlers.
type Server struct {
	store     store.Store
	companies *company.Service
	importer  *importer.Importer
	narrative *narrative.Service
	clock     clockwork.Clock
}

// New creates a Server.
func New(d Deps) *Server {
	clock := d.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Server{
		store:     d.Store,
		companies: d.Companies,
		importer:  d.Importer,
		narrative: d.Narrative,
		clock:     clock,
	}
}

// Routes returns the router. An empty origins list allows any origin.
func (s *Server) Routes(origins []string) chi.Router {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/companies", func(r chi.Router) {
		r.Get("/", s.listCompanies)
		r.Route("/{slug}", func(r chi.Router) {
			r.Get("/", s.getCompany)
			r.Patch("/", s.patchCompany)
			r.Get("/metrics", s.companyMetrics)
			r.Get("/analysis", s.companyAnalysis)
			r.Get("/report", s.companyReport)
		})
	})
	r.Get("/metrics/search", s.searchMetrics)

	r.Route("/imports", func(r chi.Router) {
		r.Get("/", s.listImports)
		r.Post("/csv", s.importCSV)
		r.Post("/json", s.importJSON)
		r.Post("/xlsx", s.importXLSX)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   s.clock.Now().UTC().Format(time.RFC3339),
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var mbe *http.MaxBytesError
	switch {
	case esg.IsFormat(err), esg.IsValidation(err):
		return http.StatusBadRequest
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case company.IsNotFound(err):
		return http.StatusNotFound
	case esg.IsExternal(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
