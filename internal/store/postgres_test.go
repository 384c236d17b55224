package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-cli/internal/esg"
	"github.com/sells-group/esg-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func companyDoc(t *testing.T, rec *model.CompanyRecord) []byte {
	t.Helper()
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	return b
}

func TestPostgresStore_Put(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	rec := testCompany("Acme", "acme", 33.3, model.Construction)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "companies" ("slug", "doc", "updated_at") VALUES ($1, $2::jsonb, $3)`)).
		WithArgs("acme", string(companyDoc(t, rec)), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Put(context.Background(), "acme", rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Put_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO "companies"`).
		WillReturnError(errors.New("connection reset"))

	err := s.Put(context.Background(), "acme", testCompany("Acme", "acme", 1, model.Construction))
	require.Error(t, err)
	assert.True(t, esg.IsExternal(err))
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	rec := testCompany("Acme", "acme", 33.3, model.Construction)

	mock.ExpectQuery(`SELECT doc FROM companies WHERE slug = \$1`).
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(companyDoc(t, rec)))

	got, err := s.Get(context.Background(), "acme")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.CompanyName)
	assert.InDelta(t, 33.3, got.OverallScore, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM companies WHERE slug = \$1`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAll(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM companies ORDER BY doc->'overallScore' DESC NULLS LAST, slug`)).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).
			AddRow(companyDoc(t, testCompany("Alpha", "a", 42, model.Construction))).
			AddRow(companyDoc(t, testCompany("Beta", "b", 5, model.Energy))))

	got, err := s.ListAll(context.Background(), "overallScore", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, names(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAll_InvalidField(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	_, err := s.ListAll(context.Background(), "score' OR 1=1", false)
	require.Error(t, err)
	assert.True(t, esg.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Query(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM companies WHERE doc @> $1::jsonb`)).
		WithArgs(`{"category":"Energy"}`).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).
			AddRow(companyDoc(t, testCompany("Beta", "b", 5, model.Energy))))

	got, err := s.Query(context.Background(), "category", "Energy")
	require.NoError(t, err)
	assert.Equal(t, []string{"Beta"}, names(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Query_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM companies`).
		WillReturnError(errors.New("timeout"))

	_, err := s.Query(context.Background(), "category", "Energy")
	require.Error(t, err)
	assert.True(t, esg.IsExternal(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordImport(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	run := &model.ImportRun{
		ID: "r1", Source: "esg.csv", Format: model.FormatCSV,
		Total: 2, Successful: 1, Failed: 1,
		StartedAt: started, FinishedAt: started.Add(time.Second),
	}

	mock.ExpectExec(`INSERT INTO "import_runs"`).
		WithArgs("r1", "esg.csv", "csv", false, 2, 1, 1, run.StartedAt, run.FinishedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.RecordImport(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListImports(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, source, format, dry_run, total, successful, failed, started_at, finished_at\s+FROM import_runs`).
		WithArgs(DefaultImportLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "source", "format", "dry_run", "total", "successful", "failed", "started_at", "finished_at"}).
			AddRow("r1", "esg.json", "json", true, 4, 3, 1, started, started.Add(time.Minute)))

	runs, err := s.ListImports(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.FormatJSON, runs[0].Format)
	assert.True(t, runs[0].DryRun)
	assert.Equal(t, 3, runs[0].Successful)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS companies`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
