package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/esg-cli/internal/esg"
	"github.com/sells-group/esg-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite with JSON text
// documents.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	slug       TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	format      TEXT NOT NULL,
	dry_run     INTEGER NOT NULL DEFAULT 0,
	total       INTEGER NOT NULL DEFAULT 0,
	successful  INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_import_runs_started ON import_runs (started_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Put(ctx context.Context, key string, rec *model.CompanyRecord) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal company")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO companies (slug, doc, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (slug) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		key, string(doc), time.Now().UTC(),
	)
	if err != nil {
		return esg.NewExternalError("store", eris.Wrapf(err, "sqlite: put %s", key))
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*model.CompanyRecord, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM companies WHERE slug = ?`, key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, esg.NewExternalError("store", eris.Wrapf(err, "sqlite: get %s", key))
	}
	return decodeCompany([]byte(doc))
}

// ListAll orders by json_extract of the field. SQLite sorts NULL first, so
// documents missing the field go last explicitly.
func (s *SQLiteStore) ListAll(ctx context.Context, orderBy string, desc bool) ([]model.CompanyRecord, error) {
	if err := ValidateField(orderBy); err != nil {
		return nil, err
	}
	path := "$." + orderBy
	q := fmt.Sprintf(`SELECT doc FROM companies
		ORDER BY json_extract(doc, '%s') IS NULL, json_extract(doc, '%s') %s, slug`, path, path, direction(desc))
	return s.queryDocs(ctx, q)
}

func (s *SQLiteStore) Query(ctx context.Context, field string, equals any) ([]model.CompanyRecord, error) {
	if err := ValidateField(field); err != nil {
		return nil, err
	}
	if b, ok := equals.(bool); ok {
		// json_extract yields 1/0 for JSON booleans.
		equals = 0
		if b {
			equals = 1
		}
	}
	return s.queryDocs(ctx,
		`SELECT doc FROM companies WHERE json_extract(doc, ?) = ? ORDER BY slug`,
		"$."+field, equals,
	)
}

func (s *SQLiteStore) queryDocs(ctx context.Context, q string, args ...any) ([]model.CompanyRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, esg.NewExternalError("store", eris.Wrap(err, "sqlite: query companies"))
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CompanyRecord
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		rec, err := decodeCompany([]byte(doc))
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate companies")
}

func (s *SQLiteStore) RecordImport(ctx context.Context, run *model.ImportRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, source, format, dry_run, total, successful, failed, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET total = excluded.total, successful = excluded.successful,
		   failed = excluded.failed, finished_at = excluded.finished_at`,
		run.ID, run.Source, string(run.Format), run.DryRun,
		run.Total, run.Successful, run.Failed, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return esg.NewExternalError("store", eris.Wrapf(err, "sqlite: record import %s", run.ID))
	}
	return nil
}

func (s *SQLiteStore) ListImports(ctx context.Context, limit int) ([]model.ImportRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, format, dry_run, total, successful, failed, started_at, finished_at
		 FROM import_runs ORDER BY started_at DESC LIMIT ?`,
		importLimit(limit),
	)
	if err != nil {
		return nil, esg.NewExternalError("store", eris.Wrap(err, "sqlite: list imports"))
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ImportRun
	for rows.Next() {
		var r model.ImportRun
		var format string
		if err := rows.Scan(&r.ID, &r.Source, &format, &r.DryRun, &r.Total, &r.Successful, &r.Failed, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan import")
		}
		r.Format = model.ImportFormat(format)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate imports")
}
