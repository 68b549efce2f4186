// Package codec contains the default [domain.Codec] implementation: the
// graph-normalization codec that flattens nested record trees into flat,
// identifier-keyed rows and reconstructs them on read.
//
// Flattening walks an assumed-acyclic record graph. An identity-keyed
// per-call set makes shared sub-records safe: a record referenced by two
// parents within one pass yields exactly one row and one identifier. True
// reference cycles are not detected and cause unbounded recursion.
package codec

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vinicius-lino-figueiredo/recdb/domain"
)

// Codec implements domain.Codec.
type Codec struct {
	backend  domain.Backend
	registry domain.Registry
	logger   *slog.Logger
}

// NewCodec returns a new implementation of domain.Codec.
func NewCodec(options ...domain.CodecOption) (domain.Codec, error) {
	opts := domain.CodecOptions{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Backend == nil {
		return nil, domain.ErrNilBackend
	}
	if opts.Registry == nil {
		return nil, domain.ErrNilRegistry
	}
	return &Codec{
		backend:  opts.Backend,
		registry: opts.Registry,
		logger:   opts.Logger,
	}, nil
}

// Flatten implements domain.Codec.
func (c *Codec) Flatten(ctx context.Context, record any) ([]domain.TypedRow, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return c.flatten(ctx, record, make(map[any]bool))
}

// flatten emits the rows for record and everything reachable from it, nested
// rows first. seen carries the instances already emitted in this pass; a
// repeated instance contributes its identifier but no second row.
func (c *Codec) flatten(ctx context.Context, record any, seen map[any]bool) ([]domain.TypedRow, error) {
	if record == nil {
		return nil, domain.ErrNilRecord
	}
	recordType, err := c.registry.TypeName(record)
	if err != nil {
		return nil, err
	}
	id, err := c.ensureID(ctx, recordType, record)
	if err != nil {
		return nil, err
	}
	if seen[record] {
		return nil, nil
	}
	seen[record] = true

	row := domain.Row{"_id": id}
	var out []domain.TypedRow

	fields, err := c.registry.Fields(recordType)
	if err != nil {
		return nil, err
	}
	for _, field := range fields {
		value, err := c.registry.Get(record, field.Name)
		if err != nil {
			return nil, err
		}
		if value == nil {
			continue
		}
		switch field.Kind {
		case domain.KindRecord:
			sub, err := c.flatten(ctx, value, seen)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			subID, err := c.registry.ID(value)
			if err != nil {
				return nil, err
			}
			row[field.Name] = subID
		case domain.KindList:
			elems, ok := value.([]any)
			if !ok {
				return nil, domain.ErrRecordType{Detail: fmt.Sprintf("list field %s.%s read as %T", recordType, field.Name, value)}
			}
			ids := make([]any, 0, len(elems))
			for _, elem := range elems {
				sub, err := c.flatten(ctx, elem, seen)
				if err != nil {
					return nil, err
				}
				out = append(out, sub...)
				subID, err := c.registry.ID(elem)
				if err != nil {
					return nil, err
				}
				ids = append(ids, subID)
			}
			// An empty resulting list is indistinguishable from an
			// unset field.
			if len(ids) > 0 {
				row[field.Name] = ids
			}
		default:
			row[field.Name] = value
		}
	}

	// The record's own row goes after every nested row, so batches can be
	// applied type by type in any order.
	return append(out, domain.TypedRow{Type: recordType, Row: row}), nil
}

func (c *Codec) ensureID(ctx context.Context, recordType string, record any) (any, error) {
	id, err := c.registry.ID(record)
	if err != nil {
		return nil, err
	}
	if id != nil {
		return id, nil
	}
	id, err = c.backend.NextID(ctx, recordType)
	if err != nil {
		return nil, err
	}
	if err := c.registry.SetID(record, id); err != nil {
		return nil, err
	}
	return id, nil
}

// FlattenAll implements domain.Codec.
func (c *Codec) FlattenAll(ctx context.Context, records ...any) (domain.Batch, error) {
	rows, err := c.flattenMany(ctx, records)
	if err != nil {
		return nil, err
	}
	batch := make(domain.Batch)
	for _, tr := range rows {
		batch[tr.Type] = append(batch[tr.Type], tr.Row)
	}
	return batch, nil
}

func (c *Codec) flattenMany(ctx context.Context, records []any) ([]domain.TypedRow, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	seen := make(map[any]bool)
	var rows []domain.TypedRow
	for _, record := range records {
		out, err := c.flatten(ctx, record, seen)
		if err != nil {
			return nil, err
		}
		rows = append(rows, out...)
	}
	return rows, nil
}

// WriteMany implements domain.Codec. Every row is classified add or update by
// asking the backend whether its identifier is already known; an identifier
// claimed earlier in the same call keeps its first classification, so a
// record referenced by two parents is not added once and updated again.
func (c *Codec) WriteMany(ctx context.Context, records ...any) error {
	rows, err := c.flattenMany(ctx, records)
	if err != nil {
		return err
	}

	adds := make(domain.Batch)
	updates := make(domain.Batch)
	claimed := make(map[string]map[string]bool)

	for _, tr := range rows {
		key := fmt.Sprint(tr.Row.ID())
		if claimed[tr.Type][key] {
			continue
		}
		if claimed[tr.Type] == nil {
			claimed[tr.Type] = make(map[string]bool)
		}
		claimed[tr.Type][key] = true

		exists, err := c.backend.ContainsID(ctx, tr.Row.ID(), tr.Type)
		if err != nil {
			return err
		}
		if exists {
			updates[tr.Type] = append(updates[tr.Type], tr.Row)
		} else {
			adds[tr.Type] = append(adds[tr.Type], tr.Row)
		}
	}

	if len(adds) > 0 {
		if err := c.backend.Add(ctx, adds); err != nil {
			return err
		}
	}
	if len(updates) > 0 {
		if err := c.backend.Update(ctx, updates); err != nil {
			return err
		}
	}
	return nil
}

// Reconstruct implements domain.Codec. Nested references whose target row is
// absent reconstruct to nil and, for list fields, are dropped from the list;
// each skip is logged as a dangling reference.
func (c *Codec) Reconstruct(ctx context.Context, recordType string, row domain.Row) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if row == nil {
		return nil, nil
	}

	record, err := c.registry.New(recordType)
	if err != nil {
		return nil, err
	}
	fields, err := c.registry.Fields(recordType)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]domain.FieldDescriptor, len(fields))
	for _, field := range fields {
		byName[field.Name] = field
	}

	for key, value := range row {
		if key == "_id" {
			if err := c.registry.SetID(record, value); err != nil {
				return nil, err
			}
			continue
		}
		field, ok := byName[key]
		if !ok {
			return nil, domain.ErrUnknownField{Type: recordType, Field: key}
		}
		switch field.Kind {
		case domain.KindRecord:
			sub, err := c.fetch(ctx, field.Elem, value)
			if err != nil {
				return nil, err
			}
			if sub == nil {
				continue
			}
			if err := c.registry.Set(record, key, sub); err != nil {
				return nil, err
			}
		case domain.KindList:
			ids, ok := value.([]any)
			if !ok {
				return nil, domain.ErrRecordType{Detail: fmt.Sprintf("list field %s.%s stored as %T", recordType, key, value)}
			}
			elems := make([]any, 0, len(ids))
			for _, id := range ids {
				sub, err := c.fetch(ctx, field.Elem, id)
				if err != nil {
					return nil, err
				}
				if sub == nil {
					continue
				}
				elems = append(elems, sub)
			}
			if len(elems) == 0 {
				continue
			}
			list, err := c.registry.NewList(field.Elem, elems...)
			if err != nil {
				return nil, err
			}
			if err := c.registry.Set(record, key, list); err != nil {
				return nil, err
			}
		default:
			if err := c.registry.Set(record, key, value); err != nil {
				return nil, err
			}
		}
	}
	return record, nil
}

// fetch resolves one nested reference: point lookup plus recursive
// reconstruction. An absent target yields nil.
func (c *Codec) fetch(ctx context.Context, recordType string, id any) (any, error) {
	subRow, err := c.backend.Record(ctx, recordType, id)
	if err != nil {
		return nil, err
	}
	sub, err := c.Reconstruct(ctx, recordType, subRow)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		c.logger.Warn("dangling record reference", "type", recordType, "id", id)
	}
	return sub, nil
}
