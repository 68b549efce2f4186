// Package stream contains the default [domain.Stream] implementation: a lazy,
// forward-only view over a sequence of reconstructed records.
//
// Records are pulled from the producer one at a time, so filtering never
// materializes the source. Sorting has to: Sorted drains what remains into
// memory, orders it and hands back a stream over the slice. Either way,
// consumption is destructive; a drained stream yields nothing on a second
// pass.
package stream

import (
	"iter"
	"sort"

	"github.com/vinicius-lino-figueiredo/recdb/domain"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/decoder"
)

// Stream implements domain.Stream.
type Stream struct {
	pull     func() (any, error, bool)
	stop     func()
	decoder  domain.Decoder
	comparer domain.Comparer

	current any
	started bool
	closed  bool
	err     error
}

// NewStream returns a new implementation of domain.Stream over the given
// producer sequence.
func NewStream(seq iter.Seq2[any, error], options ...domain.StreamOption) domain.Stream {
	opts := domain.StreamOptions{
		Decoder:  decoder.NewDecoder(),
		Comparer: comparer.NewComparer(),
	}
	for _, option := range options {
		option(&opts)
	}
	next, stop := iter.Pull2(seq)
	return &Stream{
		pull: func() (any, error, bool) {
			record, err, ok := next()
			return record, err, ok
		},
		stop:     stop,
		decoder:  opts.Decoder,
		comparer: opts.Comparer,
	}
}

// Next implements domain.Stream.
func (s *Stream) Next() bool {
	if s.closed || s.err != nil {
		return false
	}
	record, err, ok := s.pull()
	if !ok {
		return false
	}
	if err != nil {
		s.err = err
		return false
	}
	s.current = record
	s.started = true
	return true
}

// Value implements domain.Stream.
func (s *Stream) Value() any {
	return s.current
}

// Scan implements domain.Stream.
func (s *Stream) Scan(target any) error {
	if s.closed {
		return domain.ErrStreamClosed
	}
	if !s.started {
		return domain.ErrScanBeforeNext
	}
	if target == nil {
		return domain.ErrTargetNil
	}
	return s.decoder.Decode(s.current, target)
}

// Err implements domain.Stream.
func (s *Stream) Err() error {
	return s.err
}

// Close implements domain.Stream.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.stop()
	return nil
}

// Filtered implements domain.Stream. The returned stream shares the producer:
// records the predicate rejects are pulled and discarded on demand, never
// buffered.
func (s *Stream) Filtered(pred func(any) bool) domain.Stream {
	return &Stream{
		pull: func() (any, error, bool) {
			for {
				record, err, ok := s.pull()
				if !ok || err != nil {
					return record, err, ok
				}
				if pred(record) {
					return record, nil, true
				}
			}
		},
		stop:     s.stop,
		decoder:  s.decoder,
		comparer: s.comparer,
	}
}

// Sorted implements domain.Stream. Incomparable or failing keys leave the
// records in their drained order and surface the first error through Err.
func (s *Stream) Sorted(key func(any) any) domain.Stream {
	records, err := s.All()
	out := &Stream{
		stop:     func() {},
		decoder:  s.decoder,
		comparer: s.comparer,
		err:      err,
	}
	if err == nil {
		sort.SliceStable(records, func(i, j int) bool {
			if out.err != nil {
				return false
			}
			c, cmpErr := s.comparer.Compare(key(records[i]), key(records[j]))
			if cmpErr != nil {
				out.err = cmpErr
				return false
			}
			return c < 0
		})
	}
	i := 0
	out.pull = func() (any, error, bool) {
		if out.err != nil || i >= len(records) {
			return nil, nil, false
		}
		record := records[i]
		i++
		return record, nil, true
	}
	return out
}

// All implements domain.Stream.
func (s *Stream) All() ([]any, error) {
	var out []any
	for s.Next() {
		out = append(out, s.Value())
	}
	if s.err != nil {
		return nil, s.err
	}
	return out, nil
}
