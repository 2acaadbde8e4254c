package dataprocessing

import (
	"errors"
	"fmt"
	"strings"

	"sheetpulse/pkg/contracts/domain"
)

// Error codes surfaced in per-file diagnostics and API problem documents
const (
	CodeSchemaMismatch = "SCHEMA_MISMATCH"
	CodeMissingColumns = "MISSING_COLUMNS"
	CodeNoNumericData  = "NO_NUMERIC_DATA"
	CodeUnreadable     = "UNREADABLE_FILE"
)

var (
	// ErrMixedRecordTypes is returned when combined statistics are requested
	// over tables of different record types
	ErrMixedRecordTypes = errors.New("tables have different record types")

	// ErrNoTables is returned when combined statistics get an empty collection
	ErrNoTables = errors.New("no tables to combine")

	// ErrEmptyWorkbook is returned when a workbook has no header row
	ErrEmptyWorkbook = errors.New("workbook has no header row")
)

// SchemaMismatchError reports a table whose header matches no known schema.
// The file is skipped and the user is shown the columns that were found.
type SchemaMismatchError struct {
	Found []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("columns match neither packet nor invoice schema (found: %s)", strings.Join(e.Found, ", "))
}

// MissingColumnsError reports hard-required columns absent from a table
type MissingColumnsError struct {
	Type    domain.RecordType
	Missing []string
	Found   []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s table is missing required columns: %s (found: %s)",
		e.Type, strings.Join(e.Missing, ", "), strings.Join(e.Found, ", "))
}

// NoNumericDataError reports a packet table without any usable month column
type NoNumericDataError struct {
	Table string
}

func (e *NoNumericDataError) Error() string {
	if e.Table == "" {
		return "no numeric month columns found"
	}
	return fmt.Sprintf("no numeric month columns found in %s", e.Table)
}

// ErrorCode maps a file-level pipeline error to its diagnostic code
func ErrorCode(err error) string {
	var schemaErr *SchemaMismatchError
	var missingErr *MissingColumnsError
	var numericErr *NoNumericDataError
	switch {
	case errors.As(err, &schemaErr):
		return CodeSchemaMismatch
	case errors.As(err, &missingErr):
		return CodeMissingColumns
	case errors.As(err, &numericErr):
		return CodeNoNumericData
	default:
		return CodeUnreadable
	}
}
