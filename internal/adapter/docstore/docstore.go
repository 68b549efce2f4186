// Package docstore contains the document-database implementation of
// [domain.Backend]: a thin pass-through mapping record types to collections
// and delegating row storage to an external [domain.DocumentClient].
//
// Unlike the file backend, the client's own semantics govern atomicity and
// durability. Identifiers are generated strings, so existence checks consult
// the collection itself rather than a ledger.
package docstore

import (
	"context"
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vinicius-lino-figueiredo/recdb/domain"
)

// DocStore implements domain.Backend.
type DocStore struct {
	client   domain.DocumentClient
	database string
	logger   *slog.Logger
}

// NewDocStore returns a new document-database implementation of
// domain.Backend.
func NewDocStore(options ...domain.DocStoreOption) (domain.Backend, error) {
	opts := domain.DocStoreOptions{
		Database: "recdb",
		Logger:   slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Client == nil {
		return nil, domain.ErrNilClient
	}
	return &DocStore{
		client:   opts.Client,
		database: opts.Database,
		logger:   opts.Logger,
	}, nil
}

// NextID implements domain.Backend. Identifiers are random, so allocation
// needs no per-type state and no coordination with other writers.
func (d *DocStore) NextID(ctx context.Context, recordType string) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return uuid.NewString(), nil
}

// ContainsID implements domain.Backend.
func (d *DocStore) ContainsID(ctx context.Context, id any, recordType string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	return d.client.Exists(ctx, d.database, recordType, id)
}

// Add implements domain.Backend.
func (d *DocStore) Add(ctx context.Context, batch domain.Batch) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	for recordType, rows := range batch {
		if len(rows) == 0 {
			continue
		}
		if err := d.client.InsertMany(ctx, d.database, recordType, rows); err != nil {
			return err
		}
	}
	return nil
}

// Update implements domain.Backend.
func (d *DocStore) Update(ctx context.Context, batch domain.Batch) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	for recordType, rows := range batch {
		for _, row := range rows {
			if err := d.client.UpdateOne(ctx, d.database, recordType, row.ID(), row); err != nil {
				return err
			}
		}
	}
	return nil
}

// Delete implements domain.Backend.
func (d *DocStore) Delete(ctx context.Context, recordType string, ids ...any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if len(ids) == 0 {
		return nil
	}
	return d.client.DeleteMany(ctx, d.database, recordType, ids)
}

// Record implements domain.Backend.
func (d *DocStore) Record(ctx context.Context, recordType string, id any) (domain.Row, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return d.client.FindOne(ctx, d.database, recordType, id)
}

// Records implements domain.Backend.
func (d *DocStore) Records(ctx context.Context, recordType string) (iter.Seq2[domain.Row, error], error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return d.client.Find(ctx, d.database, recordType)
}
