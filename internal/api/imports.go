package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/sells-group/esg-cli/internal/esg"
	"github.com/sells-group/esg-cli/internal/fetcher"
	"github.com/sells-group/esg-cli/internal/model"
)

// importSource labels an upload in the import history. The source query
// parameter overrides the default.
func importSource(r *http.Request) string {
	if src := r.URL.Query().Get("source"); src != "" {
		return src
	}
	return "api upload"
}

// importCSV decodes the body with the charset query parameter (UTF-8 by
// default) before parsing.
func (s *Server) importCSV(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	text, err := fetcher.ReadText(bytes.NewReader(body), r.URL.Query().Get("charset"))
	if err != nil {
		writeError(w, esg.NewValidationError("charset", "%v", err))
		return
	}
	res, err := s.importer.ImportCSV(r.Context(), importSource(r), text)
	s.writeImport(w, res, err)
}

func (s *Server) importJSON(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.importer.ImportJSON(r.Context(), importSource(r), body)
	s.writeImport(w, res, err)
}

// importXLSX reads the workbook in the body. sheet selects a sheet by name.
func (s *Server) importXLSX(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := fetcher.ReadXLSXFrom(bytes.NewReader(body), fetcher.XLSXOptions{SheetName: r.URL.Query().Get("sheet")})
	if err != nil {
		writeError(w, esg.NewFormatError("%v", err))
		return
	}
	res, err := s.importer.ImportXLSX(r.Context(), importSource(r), rows)
	s.writeImport(w, res, err)
}

func (s *Server) writeImport(w http.ResponseWriter, res *model.ImportResult, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listImports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, esg.NewValidationError("limit", "%q is not a non-negative integer", raw))
			return
		}
		limit = n
	}
	runs, err := s.store.ListImports(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []model.ImportRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}
