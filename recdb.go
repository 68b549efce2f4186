// Package recdb provides an embedded persistence layer for nested Go record
// trees.
//
// Records are plain structs whose fields may point to other records. On
// write, a tree is flattened into flat rows, one per record, with nested
// records replaced by their identifiers; on read, the tree is reconstructed
// recursively. Rows are stored either in per-type line-oriented JSON files on
// disk or in an external document database behind a [DocumentClient].
//
// The basic usage starts with creating a new [RecDB] instance, which can be
// done by calling [NewDB].
package recdb

import (
	"context"
	"iter"
	"log/slog"
	"os"

	"github.com/vinicius-lino-figueiredo/recdb/domain"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/database"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/docstore"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/jsonstore"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/registry"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/stream"
)

var (
	// ErrNilClient is returned when a document backend is requested without
	// providing a [DocumentClient].
	ErrNilClient = domain.ErrNilClient
	// ErrNilRecord is returned when a nil record is passed to a write
	// operation.
	ErrNilRecord = domain.ErrNilRecord
	// ErrTargetNil is returned when user provides a nil value as a target
	// to decode data, for example, calling [Stream.Scan].
	ErrTargetNil = domain.ErrTargetNil
	// ErrScanBeforeNext is returned when calling [Stream.Scan] before
	// calling [Stream.Next].
	ErrScanBeforeNext = domain.ErrScanBeforeNext
	// ErrStreamClosed is returned when trying to read from a closed
	// [Stream].
	ErrStreamClosed = domain.ErrStreamClosed
)

// ErrDatabaseName represents an invalid database name. That usually happens
// when the name ends with the suffix reserved for crash backup files.
type ErrDatabaseName = domain.ErrDatabaseName

// ErrMalformedLine is returned when a record line in a data file cannot be
// parsed back into a single row during an update, delete or scan.
type ErrMalformedLine = domain.ErrMalformedLine

// ErrUnknownType is returned when a record type was never registered.
type ErrUnknownType = domain.ErrUnknownType

// ErrUnknownField is returned when a stored row carries a field its record
// type does not declare.
type ErrUnknownField = domain.ErrUnknownField

// ErrRecordType is returned when a value cannot be used as a record, for
// example a non-struct or a nested record declared by value instead of by
// pointer.
type ErrRecordType = domain.ErrRecordType

// ErrIDType is returned when an identifier value cannot be used with the
// selected backend.
type ErrIDType = domain.ErrIDType

// ErrCannotCompare is returned when [Comparer.Compare] is called with two
// values that cannot be ordered relative to each other.
type ErrCannotCompare = domain.ErrCannotCompare

// NewDB creates a new RecDB instance with the provided configuration options:
//
// - [WithName]: sets the database name.
//
// - [WithRoot]: sets the directory database files are created under.
//
// - [WithTypes]: registers record types at construction.
//
// - [WithDocumentClient]: selects the document backend with the given client.
//
// - [WithBackend]: sets a custom storage backend.
//
// - [WithRegistry]: sets the object-model registry.
//
// - [WithLogger]: sets the logger for structured diagnostics.
//
// - [WithFileMode]: sets the file permissions for database files.
//
// - [WithDirMode]: sets the directory permissions for database directories.
//
// - [WithStorage]: sets the storage implementation for file operations.
//
// - [WithSerializer]: sets the serializer for converting rows to bytes.
//
// - [WithDeserializer]: sets the deserializer for converting bytes to rows.
//
// - [WithDecoder]: sets the decoder for data format conversions.
//
// - [WithComparer]: sets the comparer used when sorting streams.
func NewDB(options ...Option) (RecDB, error) {
	return database.NewDatabase(options...)
}

// RecDB defines the main interface for persisting and reconstructing record
// trees.
//
// Records handed to the write methods are pointers to registered struct
// types. Identifiers are assigned in place as a side effect of writing, so a
// record written once and written again updates rather than duplicates.
type RecDB interface {
	// Write persists the given record trees, choosing add or update per
	// flattened row.
	Write(ctx context.Context, records ...any) error

	// Add inserts the given record trees without checking for existing
	// identifiers. Callers must not add records already in the store.
	Add(ctx context.Context, records ...any) error

	// Update persists the given record trees; rows for unknown
	// identifiers are added, known ones replaced.
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

// Backend is the storage capability a database is built on.
type Backend = domain.Backend

// Registry describes record types and accesses their fields.
type Registry = domain.Registry

// Stream provides lazy, forward-only iteration over query results.
type Stream = domain.Stream

// Row is the flat, identifier-keyed representation of one record.
type Row = domain.Row

// Batch maps record type names to ordered sequences of flat rows.
type Batch = domain.Batch

// Serializer converts rows to bytes for storage.
type Serializer = domain.Serializer

// Deserializer converts bytes back to rows.
type Deserializer = domain.Deserializer

// Storage provides low-level file operations with crash-safety guarantees.
type Storage = domain.Storage

// Decoder converts between different data representations.
type Decoder = domain.Decoder

// Comparer provides ordering and comparison for different data types.
type Comparer = domain.Comparer

// DocumentClient is the boundary to an external document database.
type DocumentClient = domain.DocumentClient

// NewRegistry creates a standalone registry, useful when registering types
// once and sharing them between databases.
func NewRegistry(options ...RegistryOption) Registry {
	return registry.NewRegistry(options...)
}

// NewFileBackend creates the line-oriented JSON file backend directly,
// bypassing the database facade.
func NewFileBackend(options ...StoreOption) (Backend, error) {
	return jsonstore.NewStore(options...)
}

// NewDocumentBackend creates the document-database backend directly,
// bypassing the database facade.
func NewDocumentBackend(options ...DocStoreOption) (Backend, error) {
	return docstore.NewDocStore(options...)
}

// NewStream creates a stream over an arbitrary producer sequence.
func NewStream(seq iter.Seq2[any, error], options ...StreamOption) Stream {
	return stream.NewStream(seq, options...)
}

// Option configures database behavior through the functional options pattern.
type Option = domain.DatabaseOption

// WithName sets the database name. The file backend stores its files in a
// directory with this name.
func WithName(n string) Option {
	return domain.WithName(n)
}

// WithRoot sets the directory the database directory is created under.
func WithRoot(r string) Option {
	return domain.WithRoot(r)
}

// WithBackend sets a custom storage backend.
func WithBackend(b Backend) Option {
	return domain.WithBackend(b)
}

// WithDocumentClient selects the document backend with the given client.
func WithDocumentClient(c DocumentClient) Option {
	return domain.WithDocumentClient(c)
}

// WithRegistry sets the object-model registry.
func WithRegistry(r Registry) Option {
	return domain.WithRegistry(r)
}

// WithTypes registers the sample records' types at construction.
func WithTypes(samples ...any) Option {
	return domain.WithTypes(samples...)
}

// WithLogger sets the logger for structured diagnostics.
func WithLogger(l *slog.Logger) Option {
	return domain.WithLogger(l)
}

// WithFileMode sets the file permissions for database files.
func WithFileMode(m os.FileMode) Option {
	return domain.WithFileMode(m)
}

// WithDirMode sets the directory permissions for database directories.
func WithDirMode(m os.FileMode) Option {
	return domain.WithDirMode(m)
}

// WithStorage sets the storage implementation for low-level file operations.
func WithStorage(s Storage) Option {
	return domain.WithStorage(s)
}

// WithSerializer sets the serializer for converting rows to bytes.
func WithSerializer(s Serializer) Option {
	return domain.WithSerializer(s)
}

// WithDeserializer sets the deserializer for converting bytes to rows.
func WithDeserializer(d Deserializer) Option {
	return domain.WithDeserializer(d)
}

// WithDecoder sets the decoder for data format conversions.
func WithDecoder(d Decoder) Option {
	return domain.WithDecoder(d)
}

// WithComparer sets the comparer used when sorting streams.
func WithComparer(c Comparer) Option {
	return domain.WithComparer(c)
}

// StoreOption configures the file backend through the functional options
// pattern.
type StoreOption = domain.StoreOption

// WithStoreDir sets the directory holding the per-type data and ledger files.
func WithStoreDir(d string) StoreOption {
	return domain.WithStoreDir(d)
}

// WithStoreFileMode sets the file permissions for data and ledger files.
func WithStoreFileMode(m os.FileMode) StoreOption {
	return domain.WithStoreFileMode(m)
}

// WithStoreDirMode sets the directory permissions.
func WithStoreDirMode(m os.FileMode) StoreOption {
	return domain.WithStoreDirMode(m)
}

// WithStoreStorage sets the storage implementation for low-level file
// operations.
func WithStoreStorage(s Storage) StoreOption {
	return domain.WithStoreStorage(s)
}

// WithStoreSerializer sets the row serializer.
func WithStoreSerializer(s Serializer) StoreOption {
	return domain.WithStoreSerializer(s)
}

// WithStoreDeserializer sets the row deserializer.
func WithStoreDeserializer(d Deserializer) StoreOption {
	return domain.WithStoreDeserializer(d)
}

// WithStoreLogger sets the file backend's logger.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return domain.WithStoreLogger(l)
}

// DocStoreOption configures the document backend through the functional
// options pattern.
type DocStoreOption = domain.DocStoreOption

// WithDocStoreClient sets the external document database client.
func WithDocStoreClient(c DocumentClient) DocStoreOption {
	return domain.WithDocStoreClient(c)
}

// WithDocStoreDatabase sets the database name passed through to the client.
func WithDocStoreDatabase(d string) DocStoreOption {
	return domain.WithDocStoreDatabase(d)
}

// WithDocStoreLogger sets the document backend's logger.
func WithDocStoreLogger(l *slog.Logger) DocStoreOption {
	return domain.WithDocStoreLogger(l)
}

// StreamOption configures result streams through the functional options
// pattern.
type StreamOption = domain.StreamOption

// WithStreamDecoder sets the decoder used by [Stream.Scan].
func WithStreamDecoder(d Decoder) StreamOption {
	return domain.WithStreamDecoder(d)
}

// WithStreamComparer sets the comparer used by [Stream.Sorted].
func WithStreamComparer(c Comparer) StreamOption {
	return domain.WithStreamComparer(c)
}

// RegistryOption configures the registry through the functional options
// pattern.
type RegistryOption = domain.RegistryOption

// WithRegistryDecoder sets the decoder used to coerce stored values into
// declared field types.
func WithRegistryDecoder(d Decoder) RegistryOption {
	return domain.WithRegistryDecoder(d)
}
