package ingest

import (
	"fmt"
	"path/filepath"
)

// UnreadableFileError means the file could not be opened as a spreadsheet at all.
type UnreadableFileError struct {
	Path string
	Err  error
}

func (e *UnreadableFileError) Error() string {
	return fmt.Sprintf("%s: unreadable spreadsheet: %v", filepath.Base(e.Path), e.Err)
}

func (e *UnreadableFileError) Unwrap() error { return e.Err }

// MalformedGradebookError means the workbook opened but a template cell was
// missing or held the wrong kind of value.
type MalformedGradebookError struct {
	Path   string
	Field  string
	Reason string
}

func (e *MalformedGradebookError) Error() string {
	name := filepath.Base(e.Path)
	if e.Path == "" {
		name = "gradebook"
	}
	return fmt.Sprintf("%s: malformed gradebook: %s: %s", name, e.Field, e.Reason)
}

func malformed(field, format string, args ...interface{}) *MalformedGradebookError {
	return &MalformedGradebookError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a failed store transaction. Nothing from the record
// was committed when it is returned.
type PersistenceError struct {
	Course     string
	Instructor string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting %q (%s): %v", e.Course, e.Instructor, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
