package domain

import (
	"log/slog"
	"os"
)

// DatabaseOption configures database construction through the functional
// options pattern.
type DatabaseOption func(*DatabaseOptions)

// DatabaseOptions contains parameters for constructing a database.
type DatabaseOptions struct {
	// Name is the database name. The file backend stores its files in a
	// directory with this name.
	Name string
	// Root is the directory the file backend's database directory is
	// created under.
	Root string
	// Backend overrides the storage backend.
	Backend Backend
	// Client selects the document backend when no Backend is given.
	Client DocumentClient
	// Registry overrides the object-model registry.
	Registry Registry
	// Types are sample records registered at construction.
	Types []any
	// Logger receives structured diagnostics. Defaults to a discard
	// logger.
	Logger *slog.Logger
	// FileMode sets the permissions for database files.
	FileMode os.FileMode
	// DirMode sets the permissions for database directories.
	DirMode os.FileMode
	// Storage overrides the file backend's low-level file operations.
	Storage Storage
	// Serializer overrides the row serializer.
	Serializer Serializer
	// Deserializer overrides the row deserializer.
	Deserializer Deserializer
	// Decoder overrides the field decoder.
	Decoder Decoder
	// Comparer overrides the comparer used for sorting streams.
	Comparer Comparer
}

// WithName sets the database name.
func WithName(n string) DatabaseOption {
	return func(o *DatabaseOptions) { o.Name = n }
}

// WithRoot sets the directory the database directory is created under.
func WithRoot(r string) DatabaseOption {
	return func(o *DatabaseOptions) { o.Root = r }
}

// WithBackend sets the storage backend.
func WithBackend(b Backend) DatabaseOption {
	return func(o *DatabaseOptions) { o.Backend = b }
}

// WithDocumentClient selects the document backend with the given client.
func WithDocumentClient(c DocumentClient) DatabaseOption {
	return func(o *DatabaseOptions) { o.Client = c }
}

// WithRegistry sets the object-model registry.
func WithRegistry(r Registry) DatabaseOption {
	return func(o *DatabaseOptions) { o.Registry = r }
}

// WithTypes registers the sample records' types at construction.
func WithTypes(samples ...any) DatabaseOption {
	return func(o *DatabaseOptions) { o.Types = append(o.Types, samples...) }
}

// WithLogger sets the logger for structured diagnostics.
func WithLogger(l *slog.Logger) DatabaseOption {
	return func(o *DatabaseOptions) { o.Logger = l }
}

// WithFileMode sets the file permissions for database files.
func WithFileMode(m os.FileMode) DatabaseOption {
	return func(o *DatabaseOptions) { o.FileMode = m }
}

// WithDirMode sets the directory permissions for database directories.
func WithDirMode(m os.FileMode) DatabaseOption {
	return func(o *DatabaseOptions) { o.DirMode = m }
}

// WithStorage sets the low-level file operations implementation.
func WithStorage(s Storage) DatabaseOption {
	return func(o *DatabaseOptions) { o.Storage = s }
}

// WithSerializer sets the row serializer.
func WithSerializer(s Serializer) DatabaseOption {
	return func(o *DatabaseOptions) { o.Serializer = s }
}

// WithDeserializer sets the row deserializer.
func WithDeserializer(d Deserializer) DatabaseOption {
	return func(o *DatabaseOptions) { o.Deserializer = d }
}

// WithDecoder sets the field decoder.
func WithDecoder(d Decoder) DatabaseOption {
	return func(o *DatabaseOptions) { o.Decoder = d }
}

// WithComparer sets the comparer used for sorting streams.
func WithComparer(c Comparer) DatabaseOption {
	return func(o *DatabaseOptions) { o.Comparer = c }
}

// StoreOption configures the file backend through the functional options
// pattern.
type StoreOption func(*StoreOptions)

// StoreOptions contains parameters for constructing the file backend.
type StoreOptions struct {
	// Dir is the database directory holding the per-type data and ledger
	// files.
	Dir string
	// FileMode sets the permissions for data and ledger files.
	FileMode os.FileMode
	// DirMode sets the permissions for the database directory.
	DirMode os.FileMode
	// Storage provides the low-level file operations.
	Storage Storage
	// Serializer converts rows to record-line bodies.
	Serializer Serializer
	// Deserializer parses record-line bodies back to rows.
	Deserializer Deserializer
	// Logger receives structured diagnostics.
	Logger *slog.Logger
}

// WithStoreDir sets the database directory.
func WithStoreDir(d string) StoreOption {
	return func(o *StoreOptions) { o.Dir = d }
}

// WithStoreFileMode sets the file permissions for data and ledger files.
func WithStoreFileMode(m os.FileMode) StoreOption {
	return func(o *StoreOptions) { o.FileMode = m }
}

// WithStoreDirMode sets the directory permissions.
func WithStoreDirMode(m os.FileMode) StoreOption {
	return func(o *StoreOptions) { o.DirMode = m }
}

// WithStoreStorage sets the low-level file operations implementation.
func WithStoreStorage(s Storage) StoreOption {
	return func(o *StoreOptions) { o.Storage = s }
}

// WithStoreSerializer sets the row serializer.
func WithStoreSerializer(s Serializer) StoreOption {
	return func(o *StoreOptions) { o.Serializer = s }
}

// WithStoreDeserializer sets the row deserializer.
func WithStoreDeserializer(d Deserializer) StoreOption {
	return func(o *StoreOptions) { o.Deserializer = d }
}

// WithStoreLogger sets the logger.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(o *StoreOptions) { o.Logger = l }
}

// DocStoreOption configures the document backend through the functional
// options pattern.
type DocStoreOption func(*DocStoreOptions)

// DocStoreOptions contains parameters for constructing the document backend.
type DocStoreOptions struct {
	// Client is the external document database client.
	Client DocumentClient
	// Database is the database name passed through to the client.
	Database string
	// Logger receives structured diagnostics.
	Logger *slog.Logger
}

// WithDocStoreClient sets the external document database client.
func WithDocStoreClient(c DocumentClient) DocStoreOption {
	return func(o *DocStoreOptions) { o.Client = c }
}

// WithDocStoreDatabase sets the database name passed through to the client.
func WithDocStoreDatabase(d string) DocStoreOption {
	return func(o *DocStoreOptions) { o.Database = d }
}

// WithDocStoreLogger sets the logger.
func WithDocStoreLogger(l *slog.Logger) DocStoreOption {
	return func(o *DocStoreOptions) { o.Logger = l }
}

// CodecOption configures the codec through the functional options pattern.
type CodecOption func(*CodecOptions)

// CodecOptions contains parameters for constructing the codec.
type CodecOptions struct {
	// Backend is asked for identifiers and referenced sub-records.
	Backend Backend
	// Registry describes record types and accesses their fields.
	Registry Registry
	// Logger receives structured diagnostics, notably dangling reference
	// warnings.
	Logger *slog.Logger
}

// WithCodecBackend sets the backend the codec allocates identifiers from and
// fetches sub-records through.
func WithCodecBackend(b Backend) CodecOption {
	return func(o *CodecOptions) { o.Backend = b }
}

// WithCodecRegistry sets the object-model registry.
func WithCodecRegistry(r Registry) CodecOption {
	return func(o *CodecOptions) { o.Registry = r }
}

// WithCodecLogger sets the logger.
func WithCodecLogger(l *slog.Logger) CodecOption {
	return func(o *CodecOptions) { o.Logger = l }
}

// StreamOption configures result streams through the functional options
// pattern.
type StreamOption func(*StreamOptions)

// StreamOptions contains parameters for constructing a result stream.
type StreamOptions struct {
	// Decoder decodes records in Scan.
	Decoder Decoder
	// Comparer orders sort keys in Sorted.
	Comparer Comparer
}

// WithStreamDecoder sets the decoder used by Scan.
func WithStreamDecoder(d Decoder) StreamOption {
	return func(o *StreamOptions) { o.Decoder = d }
}

// WithStreamComparer sets the comparer used by Sorted.
func WithStreamComparer(c Comparer) StreamOption {
	return func(o *StreamOptions) { o.Comparer = c }
}

// RegistryOption configures the registry through the functional options
// pattern.
type RegistryOption func(*RegistryOptions)

// RegistryOptions contains parameters for constructing the registry.
type RegistryOptions struct {
	// Decoder coerces stored values into declared field types.
	Decoder Decoder
}

// WithRegistryDecoder sets the decoder used to coerce stored values into
// declared field types.
func WithRegistryDecoder(d Decoder) RegistryOption {
	return func(o *RegistryOptions) { o.Decoder = d }
}
