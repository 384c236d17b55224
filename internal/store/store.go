package store

import (
	"context"
	"regexp"

	"github.com/sells-group/esg-cli/internal/esg"
	"github.com/sells-group/esg-cli/internal/model"
)

// Store is the keyed document collection holding company records.
//
// Get returns (nil, nil) when the key is absent. Fields named in ListAll and
// Query are top-level document fields such as "overallScore" or "category".
type Store interface {
	// Companies
	Put(ctx context.Context, key string, rec *model.CompanyRecord) error
	Get(ctx context.Context, key string) (*model.CompanyRecord, error)
	ListAll(ctx context.Context, orderBy string, desc bool) ([]model.CompanyRecord, error)
	Query(ctx context.Context, field string, equals any) ([]model.CompanyRecord, error)

	// Import history
	RecordImport(ctx context.Context, run *model.ImportRun) error
	ListImports(ctx context.Context, limit int) ([]model.ImportRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// DefaultImportLimit caps ListImports when no positive limit is given.
const DefaultImportLimit = 50

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateField rejects document field names that are not plain identifiers.
// Field names are interpolated into SQL, so this is the only guard.
func ValidateField(field string) error {
	if !fieldName.MatchString(field) {
		return esg.NewValidationError("field", "%q is not a valid document field", field)
	}
	return nil
}

func importLimit(limit int) int {
	if limit <= 0 {
		return DefaultImportLimit
	}
	return limit
}
