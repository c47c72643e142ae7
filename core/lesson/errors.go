package lesson

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/lessondesk/core/sheet"
)

var (
	ErrNoClassSelected  = errors.New("no class selected")
	ErrIdentityNotFound = errors.New("student not found in ledger")
	ErrNotConfirmed     = errors.New("operation cancelled")
	// ErrRateLimitExceeded is returned when the store's write-throughput ceiling is hit during a batch write.
	ErrRateLimitExceeded = sheet.ErrRateLimited
)

// MissingDependencyError is returned when an expected table (or one of its columns) is absent.
type MissingDependencyError struct {
	Table  string
	Column string
}

func (e *MissingDependencyError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("table %q has no %q column", e.Table, e.Column)
	}
	return fmt.Sprintf("table %q not found", e.Table)
}

func missingTable(table string) error {
	return &MissingDependencyError{Table: table}
}

// IsMissingDependency reports whether err (or its cause) is a *MissingDependencyError.
func IsMissingDependency(err error) bool {
	var mdErr *MissingDependencyError
	return errors.As(err, &mdErr)
}
