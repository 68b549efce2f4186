// Package domain contains domain-specific interfaces and option types for
// RecDB.
//
// This package defines the core interfaces that must be implemented by
// adapters, as well as functional options for configuring the database, its
// backends, the codec and result streams.
package domain

import (
	"context"
	"io"
	"iter"
	"os"
)

// Backend is the storage capability a database is built on. Rows are keyed by
// record type and identifier. Identifiers are opaque to callers: the file
// backend uses monotonic integers, the document backend uses generated
// strings.
type Backend interface {
	// Record returns the flat row of the given type with the given
	// identifier, or nil if no such row exists. An absent row is not an
	// error.
	Record(ctx context.Context, recordType string, id any) (Row, error)

	// Records returns a lazy sequence over all rows of the given type.
	Records(ctx context.Context, recordType string) (iter.Seq2[Row, error], error)

	// ContainsID reports whether an identifier has ever been allocated
	// for the given type.
	ContainsID(ctx context.Context, id any, recordType string) (bool, error)

	// NextID allocates a new identifier for the given type. It never
	// returns a value equal to a previously returned one for the same
	// type.
	NextID(ctx context.Context, recordType string) (any, error)

	// Add inserts previously-unseen rows. Behavior for a colliding
	// identifier is backend-defined; callers must not add an existing id.
	Add(ctx context.Context, batch Batch) error

	// Update replaces existing rows matching (type, id). Rows not already
	// present are silently ignored, not inserted.
	Update(ctx context.Context, batch Batch) error

	// Delete removes rows of the given type. Absent ids are no-ops.
	Delete(ctx context.Context, recordType string, ids ...any) error
}

// Registry is the object-model capability the codec consumes. It describes
// record types, reads and writes their fields, and constructs empty
// instances. Records are pointers to registered struct types; the identifier
// attribute is the struct field tagged `recdb:"_id"`.
type Registry interface {
	// Register adds the sample values' types, and any nested record types
	// reachable from them, to the registry.
	Register(samples ...any) error

	// Fields enumerates a type's declared fields in stable declared
	// order, each tagged scalar, nested-single or nested-list.
	Fields(recordType string) ([]FieldDescriptor, error)

	// New constructs an empty instance of the given type.
	New(recordType string) (any, error)

	// TypeName returns the registered type name of a record instance.
	TypeName(record any) (string, error)

	// Get reads a named field. Unset nested fields yield nil; list fields
	// are read as []any of record instances.
	Get(record any, field string) (any, error)

	// Set writes a named field, coercing the value to the declared field
	// type where needed.
	Set(record any, field string, value any) error

	// NewList builds a typed list value for a nested-list field of the
	// given element type from record instances.
	NewList(recordType string, elems ...any) (any, error)

	// ID reads the record's identifier attribute. A zero identifier
	// reads as nil, meaning none has been assigned yet.
	ID(record any) (any, error)

	// SetID writes the record's identifier attribute.
	SetID(record any, id any) error
}

// Codec converts nested record trees to and from the flat identifier-keyed
// representation a Backend understands. It owns identifier assignment and
// recursive reconstruction.
type Codec interface {
	// Flatten converts one record tree into an ordered list of typed flat
	// rows, nested rows first, assigning identifiers as a side effect.
	Flatten(ctx context.Context, record any) ([]TypedRow, error)

	// FlattenAll flattens every input record and groups the resulting
	// rows by type. Instances shared between inputs yield one row.
	FlattenAll(ctx context.Context, records ...any) (Batch, error)

	// WriteMany flattens every input record and, per row, decides add
	// versus update by asking the backend whether the identifier is
	// known. An identifier already classified earlier in the same call is
	// not re-classified.
	WriteMany(ctx context.Context, records ...any) error

	// Reconstruct builds a record instance of the given type from its
	// flat row, recursively fetching referenced sub-records through the
	// backend. A nil row yields a nil record, not an error.
	Reconstruct(ctx context.Context, recordType string, row Row) (any, error)
}

// Stream is a lazy, forward-only view over a sequence of reconstructed
// records. Consuming a stream is destructive: there is no rewind and no
// random access.
type Stream interface {
	// Next advances to the next record, returning true if one is
	// available.
	Next() bool

	// Value returns the current record.
	Value() any

	// Scan decodes the current record into the target.
	Scan(target any) error

	// Err returns any error that occurred during iteration.
	Err() error

	// Close releases the underlying producer.
	Close() error

	// Filtered returns a new stream that lazily skips records the
	// predicate rejects, without materializing the source.
	Filtered(pred func(any) bool) Stream

	// Sorted drains the stream into memory, sorts by the given key and
	// returns a stream over the sorted records. The original producer is
	// exhausted afterwards and must not be reused.
	Sorted(key func(any) any) Stream

	// All drains the remaining records into a slice.
	All() ([]any, error)
}

// Database composes a Codec and a Backend to persist and reconstruct record
// trees.
type Database interface {
	// Write persists the given record trees, choosing add or update per
	// flattened row. Identifiers are assigned to new records as a side
	// effect.
	Write(ctx context.Context, records ...any) error

	// Add inserts the given record trees without checking for existing
	// identifiers. Callers must not add records already in the store.
	Add(ctx context.Context, records ...any) error

	// Update persists the given record trees; rows for unknown
	// identifiers are added, known ones replaced. Equivalent to Write.
	Update(ctx context.Context, records ...any) error

	// Delete removes records of the given type by identifier. Nested
	// records are not cascaded.
	Delete(ctx context.Context, recordType string, ids ...any) error

	// Record returns the reconstructed record of the given type and
	// identifier, or nil if absent.
	Record(ctx context.Context, recordType string, id any) (any, error)

	// Records returns a lazy stream over all reconstructed records of the
	// given type.
	Records(ctx context.Context, recordType string) (Stream, error)
}

// Serializer converts rows to bytes for storage.
type Serializer interface {
	// Serialize converts a value to bytes for persistence.
	Serialize(context.Context, any) ([]byte, error)
}

// Deserializer converts bytes back to rows.
type Deserializer interface {
	// Deserialize converts bytes back to a value.
	Deserialize(context.Context, []byte, any) error
}

// Decoder converts between different data representations.
type Decoder interface {
	// Decode converts from one data format to another.
	Decode(src any, tgt any) error
}

// Comparer provides ordering for the value types a row can hold.
type Comparer interface {
	// Compare returns -1, 0, or 1 based on the comparison of two values.
	Compare(a any, b any) (int, error)
}

// Storage provides low-level file operations for the file backend.
type Storage interface {
	// AppendFile appends data to a file, creating it if necessary.
	AppendFile(string, os.FileMode, []byte) (int, error)
	// Exists checks if a file exists.
	Exists(string) (bool, error)
	// EnsureDirectoryExists creates the directory if needed.
	EnsureDirectoryExists(string, os.FileMode) error
	// ReadFileStream opens a file for streaming reads.
	ReadFileStream(string, os.FileMode) (io.ReadCloser, error)
	// WriteFileStream opens a file for streaming writes, truncating it.
	WriteFileStream(string, os.FileMode) (io.WriteCloser, error)
	// WriteFile writes a whole file at once.
	WriteFile(string, []byte, os.FileMode) error
	// TruncateTail removes the final n bytes of a file and returns the
	// new final byte, or zero if the file became empty.
	TruncateTail(string, int64, os.FileMode) (byte, error)
	// ReplaceFile atomically replaces a file with a previously written
	// temporary file, flushing both to storage.
	ReplaceFile(tempname string, filename string, dirMode os.FileMode, fileMode os.FileMode) error
	// Remove deletes a file.
	Remove(string) error
}

// DocumentClient is the boundary to an external document database. The
// document backend is a thin pass-through over these primitives; wire-level
// behavior is delegated entirely to the implementation.
type DocumentClient interface {
	// FindOne returns the row with the given identifier, or nil if
	// absent.
	FindOne(ctx context.Context, database string, collection string, id any) (Row, error)
	// Find returns a lazy sequence over all rows of a collection.
	Find(ctx context.Context, database string, collection string) (iter.Seq2[Row, error], error)
	// Exists reports whether a row with the given identifier exists.
	Exists(ctx context.Context, database string, collection string, id any) (bool, error)
	// InsertMany inserts new rows; a duplicate identifier is an error.
	InsertMany(ctx context.Context, database string, collection string, rows []Row) error
	// UpdateOne replaces the row with the given identifier, if present.
	UpdateOne(ctx context.Context, database string, collection string, id any, row Row) error
	// DeleteMany removes the rows with the given identifiers.
	DeleteMany(ctx context.Context, database string, collection string, ids []any) error
}
