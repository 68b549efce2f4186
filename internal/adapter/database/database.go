// Package database contains the default [domain.Database] implementation,
// composing a registry, a codec and a storage backend into the persistence
// facade callers interact with.
package database

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/vinicius-lino-figueiredo/recdb/domain"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/codec"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/docstore"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/jsonstore"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/registry"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/stream"
)

// Database implements domain.Database.
type Database struct {
	backend  domain.Backend
	registry domain.Registry
	codec    domain.Codec
	decoder  domain.Decoder
	comparer domain.Comparer
	logger   *slog.Logger
}

// NewDatabase returns a new implementation of domain.Database. Without an
// explicit backend one is selected from the options: a document backend when
// a client is given, the file backend otherwise.
func NewDatabase(options ...domain.DatabaseOption) (domain.Database, error) {
	opts := domain.DatabaseOptions{
		Name:     "recdb",
		FileMode: jsonstore.DefaultFileMode,
		DirMode:  jsonstore.DefaultDirMode,
		Logger:   slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.Decoder == nil {
		opts.Decoder = decoder.NewDecoder()
	}
	if opts.Comparer == nil {
		opts.Comparer = comparer.NewComparer()
	}
	if opts.Registry == nil {
		opts.Registry = registry.NewRegistry(domain.WithRegistryDecoder(opts.Decoder))
	}
	if err := opts.Registry.Register(opts.Types...); err != nil {
		return nil, err
	}

	backend, err := selectBackend(&opts)
	if err != nil {
		return nil, err
	}
	c, err := codec.NewCodec(
		domain.WithCodecBackend(backend),
		domain.WithCodecRegistry(opts.Registry),
		domain.WithCodecLogger(opts.Logger),
	)
	if err != nil {
		return nil, err
	}

	return &Database{
		backend:  backend,
		registry: opts.Registry,
		codec:    c,
		decoder:  opts.Decoder,
		comparer: opts.Comparer,
		logger:   opts.Logger,
	}, nil
}

func selectBackend(opts *domain.DatabaseOptions) (domain.Backend, error) {
	if opts.Backend != nil {
		return opts.Backend, nil
	}
	if opts.Client != nil {
		return docstore.NewDocStore(
			domain.WithDocStoreClient(opts.Client),
			domain.WithDocStoreDatabase(opts.Name),
			domain.WithDocStoreLogger(opts.Logger),
		)
	}
	storeOptions := []domain.StoreOption{
		domain.WithStoreDir(filepath.Join(opts.Root, opts.Name)),
		domain.WithStoreFileMode(opts.FileMode),
		domain.WithStoreDirMode(opts.DirMode),
		domain.WithStoreLogger(opts.Logger),
	}
	if opts.Storage != nil {
		storeOptions = append(storeOptions, domain.WithStoreStorage(opts.Storage))
	}
	if opts.Serializer != nil {
		storeOptions = append(storeOptions, domain.WithStoreSerializer(opts.Serializer))
	}
	if opts.Deserializer != nil {
		storeOptions = append(storeOptions, domain.WithStoreDeserializer(opts.Deserializer))
	}
	return jsonstore.NewStore(storeOptions...)
}

// Write implements domain.Database.
func (d *Database) Write(ctx context.Context, records ...any) error {
	return d.codec.WriteMany(ctx, records...)
}

// Add implements domain.Database. Rows are flattened and inserted without
// consulting the backend for existing identifiers, so this is the fast path
// for records known to be new.
func (d *Database) Add(ctx context.Context, records ...any) error {
	batch, err := d.codec.FlattenAll(ctx, records...)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	return d.backend.Add(ctx, batch)
}

// Update implements domain.Database. A record tree typically mixes rows that
// already exist with freshly reachable ones, so the classification runs per
// row rather than per tree.
func (d *Database) Update(ctx context.Context, records ...any) error {
	return d.codec.WriteMany(ctx, records...)
}

// Delete implements domain.Database.
func (d *Database) Delete(ctx context.Context, recordType string, ids ...any) error {
	return d.backend.Delete(ctx, recordType, ids...)
}

// Record implements domain.Database.
func (d *Database) Record(ctx context.Context, recordType string, id any) (any, error) {
	row, err := d.backend.Record(ctx, recordType, id)
	if err != nil {
		return nil, err
	}
	return d.codec.Reconstruct(ctx, recordType, row)
}

// Records implements domain.Database. Rows are reconstructed one by one as
// the stream is pulled, so the cost of a partial read stays proportional to
// what was consumed.
func (d *Database) Records(ctx context.Context, recordType string) (domain.Stream, error) {
	rows, err := d.backend.Records(ctx, recordType)
	if err != nil {
		return nil, err
	}
	seq := func(yield func(any, error) bool) {
		for row, err := range rows {
			if err != nil {
				yield(nil, err)
				return
			}
			record, err := d.codec.Reconstruct(ctx, recordType, row)
			if !yield(record, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
	return stream.NewStream(seq,
		domain.WithStreamDecoder(d.decoder),
		domain.WithStreamComparer(d.comparer),
	), nil
}
