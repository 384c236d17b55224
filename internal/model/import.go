package model

import "time"

// ImportFormat names the input format of an import run.
type ImportFormat string

const (
	FormatCSV  ImportFormat = "csv"
	FormatXLSX ImportFormat = "xlsx"
	FormatJSON ImportFormat = "json"
)

// ImportItem reports the outcome of persisting one company.
type ImportItem struct {
	Success bool   `json:"success"`
	Company string `json:"company"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ImportResult summarizes an import. It is returned even when some
// companies failed to persist.
type ImportResult struct {
	RunID      string       `json:"runId"`
	Source     string       `json:"source,omitempty"`
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []ImportItem `json:"results"`
}

// Add records one item and updates the counters.
func (r *ImportResult) Add(item ImportItem) {
	r.Results = append(r.Results, item)
	if item.Success {
		r.Successful++
	} else {
		r.Failed++
	}
}

// ImportRun is the stored history entry of an import.
type ImportRun struct {
	ID         string       `json:"id"`
	Source     string       `json:"source"`
	Format     ImportFormat `json:"format"`
	DryRun     bool         `json:"dry_run"`
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}
