package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-cli/internal/db"
	"github.com/sells-group/esg-cli/internal/esg"
	"github.com/sells-group/esg-cli/internal/model"
)

// PostgresStore implements Store on a JSONB document table.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var (
	companyUpsert = db.UpsertConfig{
		Table:        "companies",
		Columns:      []string{"slug", "doc", "updated_at"},
		ConflictKeys: []string{"slug"},
		Casts:        map[string]string{"doc": "jsonb"},
	}
	importUpsert = db.UpsertConfig{
		Table:        "import_runs",
		Columns:      []string{"id", "source", "format", "dry_run", "total", "successful", "failed", "started_at", "finished_at"},
		ConflictKeys: []string{"id"},
	}
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, esg.NewExternalError("store", eris.Wrap(err, "postgres: ping"))
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	slug       TEXT PRIMARY KEY,
	doc        JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_companies_doc ON companies USING GIN (doc jsonb_path_ops);
CREATE INDEX IF NOT EXISTS idx_companies_overall ON companies ((doc->'overallScore') DESC);

CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	format      TEXT NOT NULL,
	dry_run     BOOLEAN NOT NULL DEFAULT false,
	total       INTEGER NOT NULL DEFAULT 0,
	successful  INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_import_runs_started ON import_runs (started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, rec *model.CompanyRecord) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal company")
	}
	if _, err := db.Upsert(ctx, s.pool, companyUpsert, key, string(doc), time.Now().UTC()); err != nil {
		return esg.NewExternalError("store", eris.Wrapf(err, "postgres: put %s", key))
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*model.CompanyRecord, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM companies WHERE slug = $1`, key).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, esg.NewExternalError("store", eris.Wrapf(err, "postgres: get %s", key))
	}
	return decodeCompany(doc)
}

// ListAll orders by the JSONB value of the field, so numbers compare
// numerically and strings lexically. Slug breaks ties.
func (s *PostgresStore) ListAll(ctx context.Context, orderBy string, desc bool) ([]model.CompanyRecord, error) {
	if err := ValidateField(orderBy); err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT doc FROM companies ORDER BY doc->'%s' %s NULLS LAST, slug`, orderBy, direction(desc))
	return s.queryDocs(ctx, q)
}

// Query matches documents whose field equals the given JSON value.
func (s *PostgresStore) Query(ctx context.Context, field string, equals any) ([]model.CompanyRecord, error) {
	if err := ValidateField(field); err != nil {
		return nil, err
	}
	probe, err := json.Marshal(map[string]any{field: equals})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal query")
	}
	return s.queryDocs(ctx, `SELECT doc FROM companies WHERE doc @> $1::jsonb ORDER BY slug`, string(probe))
}

func (s *PostgresStore) queryDocs(ctx context.Context, q string, args ...any) ([]model.CompanyRecord, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, esg.NewExternalError("store", eris.Wrap(err, "postgres: query companies"))
	}
	defer rows.Close()

	var out []model.CompanyRecord
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		rec, err := decodeCompany(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, esg.NewExternalError("store", eris.Wrap(err, "postgres: iterate companies"))
	}
	return out, nil
}

func (s *PostgresStore) RecordImport(ctx context.Context, run *model.ImportRun) error {
	_, err := db.Upsert(ctx, s.pool, importUpsert,
		run.ID, run.Source, string(run.Format), run.DryRun,
		run.Total, run.Successful, run.Failed, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return esg.NewExternalError("store", eris.Wrapf(err, "postgres: record import %s", run.ID))
	}
	return nil
}

func (s *PostgresStore) ListImports(ctx context.Context, limit int) ([]model.ImportRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, format, dry_run, total, successful, failed, started_at, finished_at
		 FROM import_runs ORDER BY started_at DESC LIMIT $1`,
		importLimit(limit),
	)
	if err != nil {
		return nil, esg.NewExternalError("store", eris.Wrap(err, "postgres: list imports"))
	}
	defer rows.Close()

	var out []model.ImportRun
	for rows.Next() {
		var r model.ImportRun
		var format string
		if err := rows.Scan(&r.ID, &r.Source, &format, &r.DryRun, &r.Total, &r.Successful, &r.Failed, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan import")
		}
		r.Format = model.ImportFormat(format)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate imports")
}

func decodeCompany(doc []byte) (*model.CompanyRecord, error) {
	var rec model.CompanyRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal company")
	}
	return &rec, nil
}

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}
