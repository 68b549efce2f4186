package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNilClient is returned when a document backend is constructed
	// without a client.
	ErrNilClient = errors.New("document client is nil")
	// ErrNilBackend is returned when a codec is constructed without a
	// backend.
	ErrNilBackend = errors.New("backend is nil")
	// ErrNilRegistry is returned when a codec is constructed without a
	// registry.
	ErrNilRegistry = errors.New("registry is nil")
	// ErrNilRecord is returned when a nil record is passed to a write
	// operation.
	ErrNilRecord = errors.New("record is nil")
	// ErrTargetNil is returned when the decode target, which should be a
	// pointer, is passed as a nil value.
	ErrTargetNil = errors.New("target interface is nil")
	// ErrScanBeforeNext is returned when calling Stream.Scan before
	// calling Stream.Next.
	ErrScanBeforeNext = errors.New("called Scan before calling Next")
	// ErrStreamClosed is returned when trying to read from a closed
	// Stream.
	ErrStreamClosed = errors.New("stream is closed")
)

// ErrDatabaseName represents an invalid database name, usually because the
// resulting directory would collide with the suffix reserved for crash
// backup files.
type ErrDatabaseName struct {
	Name string
}

func (e ErrDatabaseName) Error() string {
	return fmt.Sprintf("the database name %q can't end with a ~, which is reserved for crash safe backup files", e.Name)
}

// ErrMalformedLine is returned when a record line in a data file cannot be
// parsed during an update, delete or scan. The engine has no recovery path:
// skipping an unparseable line would silently drop records.
type ErrMalformedLine struct {
	File string
	Line string
	Err  error
}

func (e ErrMalformedLine) Error() string {
	return fmt.Sprintf("malformed record line in %s: %q", e.File, e.Line)
}

func (e ErrMalformedLine) Unwrap() error { return e.Err }

// ErrUnknownType is returned when a record type has not been registered.
type ErrUnknownType struct {
	Name string
}

func (e ErrUnknownType) Error() string {
	return fmt.Sprintf("record type %q is not registered", e.Name)
}

// ErrUnknownField is returned when a stored row references a field the
// record type does not declare.
type ErrUnknownField struct {
	Type  string
	Field string
}

func (e ErrUnknownField) Error() string {
	return fmt.Sprintf("record type %q declares no field %q", e.Type, e.Field)
}

// ErrRecordType is returned when a value cannot be used as a record: not a
// pointer to a registered struct type, or declared in an unsupported shape.
type ErrRecordType struct {
	Detail string
}

func (e ErrRecordType) Error() string {
	return "invalid record type: " + e.Detail
}

// ErrIDType is returned when an identifier value cannot be used with the
// selected backend, for example a string identifier against the integer-keyed
// file backend during a write.
type ErrIDType struct {
	ID any
}

func (e ErrIDType) Error() string {
	return fmt.Sprintf("identifier %v (%T) is not valid for this backend", e.ID, e.ID)
}

// ErrCannotCompare is returned when Comparer.Compare is called with two
// values that cannot be ordered relative to each other.
type ErrCannotCompare struct {
	A any
	B any
}

func (e ErrCannotCompare) Error() string {
	return fmt.Sprintf("cannot compare %T with %T", e.A, e.B)
}

// ErrFlushToStorage wraps fsync failures during atomic file replacement.
type ErrFlushToStorage struct {
	ErrorOnFsync error
	ErrorOnClose error
}

func (e ErrFlushToStorage) Error() string {
	err := e.ErrorOnFsync
	if err == nil {
		err = e.ErrorOnClose
	}
	return fmt.Sprint("storage flush error:", err.Error())
}
