// Package importer runs score sheets and JSON payloads through the ESG
// pipeline and persists the resulting company records.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esg-cli/internal/esg"
	"github.com/sells-group/esg-cli/internal/fetcher"
	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/store"
)

// Options configures an Importer.
type Options struct {
	// DryRun runs the pipeline and reports results without writing records.
	// The run itself is still recorded.
	DryRun bool

	// Clock stamps record and run timestamps. Nil means the real clock.
	Clock clockwork.Clock
}

// Importer persists company records one at a time. A failed write is
// recorded in the result and the next company is still attempted.
type Importer struct {
	store  store.Store
	clock  clockwork.Clock
	dryRun bool
	newID  func() string
}

// New creates an Importer writing to st.
func New(st store.Store, opts Options) *Importer {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Importer{
		store:  st,
		clock:  clock,
		dryRun: opts.DryRun,
		newID:  func() string { return uuid.New().String() },
	}
}

// ImportCSV runs text through the pipeline. A FormatError fails the whole
// import; per-company failures are collected.
func (im *Importer) ImportCSV(ctx context.Context, source, text string) (*model.ImportResult, error) {
	return im.importSheet(ctx, source, model.FormatCSV, model.SourceCSV, text)
}

// ImportXLSX imports spreadsheet rows using the same rules as ImportCSV.
func (im *Importer) ImportXLSX(ctx context.Context, source string, rows [][]string) (*model.ImportResult, error) {
	return im.importSheet(ctx, source, model.FormatXLSX, model.SourceXLSX, fetcher.RowsToText(rows))
}

func (im *Importer) importSheet(ctx context.Context, source string, format model.ImportFormat, dataSource, text string) (*model.ImportResult, error) {
	accs, err := esg.Aggregate(text)
	if err != nil {
		return nil, err
	}

	run := im.begin(source, format)
	opts := esg.NormalizeOptions{Now: run.StartedAt, DataSource: dataSource}
	res := &model.ImportResult{RunID: run.ID, Source: source, Total: len(accs)}

	for _, acc := range accs {
		rec, err := esg.Normalize(acc, opts)
		if err != nil {
			im.fail(res, acc.CompanyName, err)
			continue
		}
		im.persist(ctx, res, rec)
	}

	im.finish(ctx, run, res)
	return res, nil
}

// ImportJSON imports a JSON array of company records, bypassing the CSV
// pipeline. A payload that is not an array is a ValidationError.
func (im *Importer) ImportJSON(ctx context.Context, source string, data []byte) (*model.ImportResult, error) {
	items, err := decodeArray(data)
	if err != nil {
		return nil, err
	}

	run := im.begin(source, model.FormatJSON)
	res := &model.ImportResult{RunID: run.ID, Source: source, Total: len(items)}

	for i, raw := range items {
		var rec model.CompanyRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			im.fail(res, "", esg.NewValidationError("item", "element %d: %v", i, err))
			continue
		}
		if err := prepareJSONRecord(&rec, run.StartedAt); err != nil {
			im.fail(res, rec.CompanyName, err)
			continue
		}
		im.persist(ctx, res, &rec)
	}

	im.finish(ctx, run, res)
	return res, nil
}

func decodeArray(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, esg.NewValidationError("payload", "JSON data must be an array of companies")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, esg.NewValidationError("payload", "invalid JSON array: %v", err)
	}
	return items, nil
}

// prepareJSONRecord fills the fields the CSV pipeline would have derived.
// Unknown JSON fields were already dropped by decoding.
func prepareJSONRecord(rec *model.CompanyRecord, now time.Time) error {
	slug, err := esg.ValidSlug(rec.CompanyName)
	if err != nil {
		return err
	}
	rec.Slug = slug
	if rec.Category == "" {
		rec.Category = esg.InferBusinessCategory(rec.CompanyName)
	}
	if rec.DataSource == "" {
		rec.DataSource = model.SourceJSON
	}
	rec.DetailedMetrics = model.DetailedMetrics{
		Environmental: nonNil(rec.DetailedMetrics.Environmental),
		Social:        nonNil(rec.DetailedMetrics.Social),
		Governance:    nonNil(rec.DetailedMetrics.Governance),
		Other:         nonNil(rec.DetailedMetrics.Other),
	}
	rec.AllMetrics = nonNil(rec.AllMetrics)
	now = now.UTC()
	rec.LastUpdated, rec.CreatedAt, rec.ImportedAt = now, now, now
	esg.SanitizeRecord(rec)
	return nil
}

func nonNil(ms []model.MetricRecord) []model.MetricRecord {
	if ms == nil {
		return []model.MetricRecord{}
	}
	return ms
}

func (im *Importer) begin(source string, format model.ImportFormat) *model.ImportRun {
	run := &model.ImportRun{
		ID:        im.newID(),
		Source:    source,
		Format:    format,
		DryRun:    im.dryRun,
		StartedAt: im.clock.Now().UTC(),
	}
	zap.L().Info("import started",
		zap.String("run_id", run.ID),
		zap.String("source", source),
		zap.String("format", string(format)),
		zap.Bool("dry_run", im.dryRun),
	)
	return run
}

func (im *Importer) persist(ctx context.Context, res *model.ImportResult, rec *model.CompanyRecord) {
	if !im.dryRun {
		if err := im.store.Put(ctx, rec.Slug, rec); err != nil {
			im.fail(res, rec.CompanyName, err)
			return
		}
	}
	res.Add(model.ImportItem{Success: true, Company: rec.CompanyName, ID: rec.Slug})
	zap.L().Debug("company imported",
		zap.String("company", rec.CompanyName),
		zap.String("slug", rec.Slug),
		zap.Float64("overall_score", rec.OverallScore),
	)
}

func (im *Importer) fail(res *model.ImportResult, company string, err error) {
	res.Add(model.ImportItem{Success: false, Company: company, Error: err.Error()})
	zap.L().Warn("company import failed",
		zap.String("run_id", res.RunID),
		zap.String("company", company),
		zap.Error(err),
	)
}

// finish records the run. A history write failure is logged and does not
// change the result.
func (im *Importer) finish(ctx context.Context, run *model.ImportRun, res *model.ImportResult) {
	run.Total = res.Total
	run.Successful = res.Successful
	run.Failed = res.Failed
	run.FinishedAt = im.clock.Now().UTC()

	if err := im.store.RecordImport(ctx, run); err != nil {
		zap.L().Error("record import run", zap.String("run_id", run.ID), zap.Error(eris.Wrap(err, "importer: record run")))
	}
	zap.L().Info("import finished",
		zap.String("run_id", run.ID),
		zap.Int("total", res.Total),
		zap.Int("successful", res.Successful),
		zap.Int("failed", res.Failed),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)),
	)
}
