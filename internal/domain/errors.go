package domain

import (
	"fmt"
	"strings"
)

// ConnectionError indicates that an endpoint could not be reached or
// rejected the credentials. It is fatal for the whole run.
type ConnectionError struct {
	Endpoint string // "source" or "destination"
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// MetadataError indicates that column discovery failed for one table.
type MetadataError struct {
	Table TableIdentifier
	Err   error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("list columns of %s: %v", e.Table, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// ExportError indicates that a table could not be exported to its file.
// Stage is "query" or "write".
type ExportError struct {
	Table TableIdentifier
	Stage string
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s (%s): %v", e.Table, e.Stage, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// DuplicateColumnError is returned when a row set carries the same column
// name more than once and the exporter is configured to refuse it.
type DuplicateColumnError struct {
	Table   TableIdentifier
	Columns []string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("duplicate column names in %s: %s", e.Table, strings.Join(e.Columns, ", "))
}

// DDLError indicates that the destination rejected a table's DDL.
type DDLError struct {
	Table TableIdentifier
	Err   error
}

func (e *DDLError) Error() string {
	return fmt.Sprintf("create table for %s: %v", e.Table, e.Err)
}

func (e *DDLError) Unwrap() error { return e.Err }

// StageError indicates that a table's file could not be staged.
type StageError struct {
	Table TableIdentifier
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Table, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// LoadError indicates that the bulk load of a staged file failed.
type LoadError struct {
	Table TableIdentifier
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ValidationError indicates invalid input or configuration.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConnection wraps err as a ConnectionError for the given endpoint.
func ErrConnection(endpoint string, err error) *ConnectionError {
	return &ConnectionError{Endpoint: endpoint, Err: err}
}
