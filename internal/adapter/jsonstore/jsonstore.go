// Package jsonstore contains the line-oriented file implementation of
// [domain.Backend].
//
// Each record type gets one data file, `<Type>.json`, inside the database
// directory: an opening `{` line, the record lines, and a closing `}` line.
// Every record line holds exactly one `"<id>": {...}` entry, comma-terminated
// except the last, so the file as a whole always reads as a single JSON
// object. A companion `<Type>_ids` ledger file holds one allocated identifier
// per line, append-only; it is the source for identifier allocation and
// membership checks, and it keeps every identifier ever allocated, including
// those of deleted records.
//
// Add is an append-only fast path that never reads existing lines. Update and
// delete stream the whole file into a crash-backup temporary file and
// atomically rename it into place, so their cost is linear in file size
// regardless of how many rows change. The store keeps per-type caches (file
// names, ledger state) as instance fields; it is built for a single writing
// process and performs no locking.
package jsonstore

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dolmen-go/contextio"
	"github.com/vinicius-lino-figueiredo/bst"
	bstcomparer "github.com/vinicius-lino-figueiredo/bst/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/bst/adapter/unbalanced"

	"github.com/vinicius-lino-figueiredo/recdb/domain"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/deserializer"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/storage"
)

const (
	DefaultDirMode  os.FileMode = 0o755
	DefaultFileMode os.FileMode = 0o644
)

const (
	dataExtension   = ".json"
	ledgerExtension = "_ids"
	// emptyBody is the content of a freshly initialised data file: the two
	// markers with nothing between them.
	emptyBody = "{\n\n}"
)

// ledger is the cached state of one type's id ledger file: the highest
// identifier seen plus a search tree over every allocated identifier. Loaded
// lazily, once per type per store instance.
type ledger struct {
	max int64
	ids bst.BST[int64, int64]
}

// Store implements domain.Backend on top of per-type data and ledger files.
type Store struct {
	dir          string
	fileMode     os.FileMode
	dirMode      os.FileMode
	storage      domain.Storage
	serializer   domain.Serializer
	deserializer domain.Deserializer
	logger       *slog.Logger

	files   map[string]string
	ledgers map[string]*ledger
}

// NewStore returns a new file-backed implementation of domain.Backend,
// creating the database directory if needed.
func NewStore(options ...domain.StoreOption) (domain.Backend, error) {
	opts := domain.StoreOptions{
		Dir:          "recdb",
		FileMode:     DefaultFileMode,
		DirMode:      DefaultDirMode,
		Storage:      storage.NewStorage(),
		Serializer:   serializer.NewSerializer(),
		Deserializer: deserializer.NewDeserializer(),
		Logger:       slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(&opts)
	}

	if strings.HasSuffix(opts.Dir, "~") {
		return nil, domain.ErrDatabaseName{Name: opts.Dir}
	}
	if err := opts.Storage.EnsureDirectoryExists(opts.Dir, opts.DirMode); err != nil {
		return nil, err
	}

	return &Store{
		dir:          opts.Dir,
		fileMode:     opts.FileMode,
		dirMode:      opts.DirMode,
		storage:      opts.Storage,
		serializer:   opts.Serializer,
		deserializer: opts.Deserializer,
		logger:       opts.Logger,
		files:        make(map[string]string),
		ledgers:      make(map[string]*ledger),
	}, nil
}

// NextID implements domain.Backend. The first call for a type scans its
// ledger file for the maximum; later calls increment the cached value in
// memory. The ledger itself is appended to as a side effect of Add.
func (s *Store) NextID(ctx context.Context, recordType string) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	l, err := s.ledgerFor(recordType)
	if err != nil {
		return nil, err
	}
	l.max++
	return l.max, nil
}

// ContainsID implements domain.Backend. Identifiers of deleted records still
// count as contained: deletion never releases an identifier.
func (s *Store) ContainsID(ctx context.Context, id any, recordType string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	n, ok := asInt64(id)
	if !ok {
		return false, nil
	}
	l, err := s.ledgerFor(recordType)
	if err != nil {
		return false, err
	}
	node, err := l.ids.Search(n)
	if err != nil {
		return false, err
	}
	return node != nil, nil
}

// Add implements domain.Backend. Existing lines are never read or rewritten:
// the closing marker is truncated away, a comma continuation is written if
// the file already held records, and the new record lines plus the marker are
// appended. Adding an identifier that already exists corrupts the file;
// callers are expected to classify rows through ContainsID first.
func (s *Store) Add(ctx context.Context, batch domain.Batch) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	for recordType, rows := range batch {
		if len(rows) == 0 {
			continue
		}
		if err := s.appendLedger(ctx, recordType, rows); err != nil {
			return err
		}
		if err := s.appendRows(ctx, recordType, rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) appendLedger(ctx context.Context, recordType string, rows []domain.Row) error {
	l, err := s.ledgerFor(recordType)
	if err != nil {
		return err
	}
	buf := new(bytes.Buffer)
	w := contextio.NewWriter(ctx, buf)
	for _, row := range rows {
		id, ok := asInt64(row.ID())
		if !ok {
			return domain.ErrIDType{ID: row.ID()}
		}
		if _, err := fmt.Fprintf(w, "%d\n", id); err != nil {
			return err
		}
		l.max = max(l.max, id)
		// A duplicate insert only means the id was already allocated.
		_ = l.ids.Insert(id, id)
	}
	_, err = s.storage.AppendFile(s.ledgerFile(recordType), s.fileMode, buf.Bytes())
	return err
}

func (s *Store) appendRows(ctx context.Context, recordType string, rows []domain.Row) error {
	path, err := s.dataFile(recordType)
	if err != nil {
		return err
	}

	// Serialize every row before touching the file, so a marshaling
	// failure cannot leave the file without its closing marker.
	buf := new(bytes.Buffer)
	w := contextio.NewWriter(ctx, buf)
	for n, row := range rows {
		line, err := s.marshalLine(ctx, row)
		if err != nil {
			return err
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
		separator := "\n"
		if n < len(rows)-1 {
			separator = ",\n"
		}
		if _, err := io.WriteString(w, separator); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "}"); err != nil {
		return err
	}

	// Drop the final "\n}" so new lines can be appended. The new final
	// byte tells whether the file already held records: a fresh file ends
	// in the opening marker's newline, a populated one in a row's brace.
	last, err := s.storage.TruncateTail(path, 2, s.fileMode)
	if err != nil {
		return err
	}
	out := buf.Bytes()
	if populated := last != '\n' && last != 0; populated {
		out = append([]byte(",\n"), out...)
	}
	_, err = s.storage.AppendFile(path, s.fileMode, out)
	return err
}

// Update implements domain.Backend. The data file is streamed line by line
// into a temporary file: marker lines pass through, record lines matching a
// pending row are replaced preserving their trailing-comma convention, and
// the temporary file atomically replaces the original. Rows whose identifier
// is not in the file are silently ignored.
func (s *Store) Update(ctx context.Context, batch domain.Batch) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	for recordType, rows := range batch {
		if len(rows) == 0 {
			continue
		}
		pending := make(map[string]domain.Row, len(rows))
		for _, row := range rows {
			key, ok := idKey(row.ID())
			if !ok {
				return domain.ErrIDType{ID: row.ID()}
			}
			pending[key] = row
		}
		seen := 0
		err := s.rewrite(ctx, recordType, func(ctx context.Context, w io.Writer, key string, content []byte, hadComma bool) error {
			seen++
			row, ok := pending[key]
			if !ok {
				return writeRecordLine(w, content, hadComma)
			}
			delete(pending, key)
			line, err := s.marshalLine(ctx, row)
			if err != nil {
				return err
			}
			return writeRecordLine(w, line, hadComma)
		}, withClose(func(w io.Writer) error {
			if seen > 0 {
				return nil
			}
			// An empty file keeps the fresh marker shape.
			_, err := io.WriteString(w, "\n")
			return err
		}))
		if err != nil {
			return err
		}
	}
	return nil
}

// Delete implements domain.Backend. Matching record lines are dropped and the
// separator convention renormalized: a kept line is only finalized once it is
// known whether another kept line follows, so every line but the last ends in
// a comma. Absent identifiers are no-ops. The ledger is left untouched.
func (s *Store) Delete(ctx context.Context, recordType string, ids ...any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if key, ok := idKey(id); ok {
			drop[key] = true
		}
	}

	var prev []byte
	kept := 0
	err := s.rewrite(ctx, recordType, func(ctx context.Context, w io.Writer, key string, content []byte, hadComma bool) error {
		if drop[key] {
			return nil
		}
		if prev != nil {
			if err := writeRecordLine(w, prev, true); err != nil {
				return err
			}
		}
		prev = bytes.Clone(content)
		kept++
		return nil
	}, withClose(func(w io.Writer) error {
		if prev != nil {
			if err := writeRecordLine(w, prev, false); err != nil {
				return err
			}
		}
		if kept == 0 {
			// An emptied file regains the fresh marker shape.
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		return nil
	}))
	if err != nil {
		return err
	}
	s.logger.Debug("deleted records", "type", recordType, "requested", len(ids), "kept", kept)
	return nil
}

// Record implements domain.Backend. A missing identifier yields nil, not an
// error.
func (s *Store) Record(ctx context.Context, recordType string, id any) (domain.Row, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	want, ok := idKey(id)
	if !ok {
		return nil, nil
	}
	var found domain.Row
	err := s.scan(ctx, recordType, func(key string, row domain.Row) (bool, error) {
		if key != want {
			return true, nil
		}
		found = row
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Records implements domain.Backend. The file is read lazily, one record
// line per pull.
func (s *Store) Records(ctx context.Context, recordType string) (iter.Seq2[domain.Row, error], error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	// Resolve (and initialise) the file eagerly so construction failures
	// surface here rather than mid-iteration.
	if _, err := s.dataFile(recordType); err != nil {
		return nil, err
	}
	return func(yield func(domain.Row, error) bool) {
		err := s.scan(ctx, recordType, func(key string, row domain.Row) (bool, error) {
			return yield(row, nil), nil
		})
		if err != nil {
			yield(nil, err)
		}
	}, nil
}

// scan walks a type's record lines, skipping markers and blanks, until the
// callback asks to stop. Unparseable record lines abort the scan.
func (s *Store) scan(ctx context.Context, recordType string, fn func(key string, row domain.Row) (bool, error)) error {
	path, err := s.dataFile(recordType)
	if err != nil {
		return err
	}
	in, err := s.storage.ReadFileStream(path, s.fileMode)
	if err != nil {
		return err
	}
	defer in.Close()

	lines := bufio.NewScanner(in)
	for lines.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := lines.Bytes()
		if isMarker(line) {
			continue
		}
		key, row, _, err := s.parseLine(ctx, path, line)
		if err != nil {
			return err
		}
		cont, err := fn(key, row)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return lines.Err()
}

type rewriteOptions struct {
	close func(w io.Writer) error
}

type rewriteOption func(*rewriteOptions)

func withClose(fn func(w io.Writer) error) rewriteOption {
	return func(o *rewriteOptions) { o.close = fn }
}

// rewrite streams a type's data file into a crash-backup temporary file and
// atomically replaces the original. The opening marker is written first and
// the closing marker last, with the optional close hook running in between;
// every record line in the source is handed to fn, which decides what to
// emit. Cost is linear in file size.
func (s *Store) rewrite(ctx context.Context, recordType string, fn func(ctx context.Context, w io.Writer, key string, content []byte, hadComma bool) error, options ...rewriteOption) error {
	opts := rewriteOptions{}
	for _, option := range options {
		option(&opts)
	}

	path, err := s.dataFile(recordType)
	if err != nil {
		return err
	}
	tempname := path + "~"

	in, err := s.storage.ReadFileStream(path, s.fileMode)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := s.storage.WriteFileStream(tempname, s.fileMode)
	if err != nil {
		return err
	}
	w := contextio.NewWriter(ctx, out)

	run := func() error {
		if _, err := io.WriteString(w, "{\n"); err != nil {
			return err
		}
		lines := bufio.NewScanner(in)
		for lines.Scan() {
			line := lines.Bytes()
			if isMarker(line) {
				continue
			}
			key, _, hadComma, err := s.parseLine(ctx, path, line)
			if err != nil {
				return err
			}
			content := bytes.TrimSuffix(bytes.TrimRight(line, "\r"), []byte(","))
			if err := fn(ctx, w, key, content, hadComma); err != nil {
				return err
			}
		}
		if err := lines.Err(); err != nil {
			return err
		}
		if opts.close != nil {
			if err := opts.close(w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "}")
		return err
	}

	if err := run(); err != nil {
		out.Close()
		if rmErr := s.storage.Remove(tempname); rmErr != nil {
			s.logger.Warn("leaving crash backup behind", "file", tempname, "error", rmErr)
		}
		return err
	}
	in.Close()
	if err := out.Close(); err != nil {
		return err
	}
	return s.storage.ReplaceFile(tempname, path, s.dirMode, s.fileMode)
}

// writeRecordLine emits one record line, comma-terminated unless it is known
// to be the last.
func writeRecordLine(w io.Writer, content []byte, comma bool) error {
	if _, err := w.Write(content); err != nil {
		return err
	}
	separator := "\n"
	if comma {
		separator = ",\n"
	}
	_, err := io.WriteString(w, separator)
	return err
}

// isMarker reports whether a physical line is one of the two enclosing
// markers or the blank line of a fresh file.
func isMarker(line []byte) bool {
	trimmed := bytes.TrimSpace(line)
	return len(trimmed) == 0 || trimmed[0] == '{' || trimmed[0] == '}'
}

// marshalLine serializes one flat row into its record-line form,
// `"<id>": {...}`, without separator.
func (s *Store) marshalLine(ctx context.Context, row domain.Row) ([]byte, error) {
	key, ok := idKey(row.ID())
	if !ok {
		return nil, domain.ErrIDType{ID: row.ID()}
	}
	body, err := s.serializer.Serialize(ctx, row)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "%q: %s", key, body), nil
}

// parseLine parses one record line back into its identifier key and row. The
// line is re-wrapped into a standalone object, so the stored text must parse
// as JSON; a line that does not is fatal for the calling operation.
func (s *Store) parseLine(ctx context.Context, path string, line []byte) (string, domain.Row, bool, error) {
	trimmed := bytes.TrimRight(line, "\r")
	hadComma := bytes.HasSuffix(trimmed, []byte(","))
	trimmed = bytes.TrimSuffix(trimmed, []byte(","))

	wrapped := make([]byte, 0, len(trimmed)+2)
	wrapped = append(wrapped, '{')
	wrapped = append(wrapped, trimmed...)
	wrapped = append(wrapped, '}')

	entry := make(map[string]domain.Row, 1)
	if err := s.deserializer.Deserialize(ctx, wrapped, &entry); err != nil {
		return "", nil, false, domain.ErrMalformedLine{File: path, Line: string(line), Err: err}
	}
	if len(entry) != 1 {
		return "", nil, false, domain.ErrMalformedLine{File: path, Line: string(line)}
	}
	for key, row := range entry {
		return key, row, hadComma, nil
	}
	return "", nil, false, domain.ErrMalformedLine{File: path, Line: string(line)}
}

// dataFile resolves (and caches) a type's data file path, initialising a
// fresh file holding just the two markers on first touch.
func (s *Store) dataFile(recordType string) (string, error) {
	if path, ok := s.files[recordType]; ok {
		return path, nil
	}
	path := filepath.Join(s.dir, recordType+dataExtension)
	exists, err := s.storage.Exists(path)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := s.storage.WriteFile(path, []byte(emptyBody), s.fileMode); err != nil {
			return "", err
		}
	}
	s.files[recordType] = path
	return path, nil
}

func (s *Store) ledgerFile(recordType string) string {
	return filepath.Join(s.dir, recordType+ledgerExtension)
}

// ledgerFor loads (and caches) a type's ledger state: one scan of the ledger
// file builds both the allocation high-water mark and the membership tree.
func (s *Store) ledgerFor(recordType string) (*ledger, error) {
	if l, ok := s.ledgers[recordType]; ok {
		return l, nil
	}
	l := &ledger{
		ids: unbalanced.NewBST[int64, int64](true, 0, bstcomparer.NewComparer[int64, int64]()),
	}

	path := s.ledgerFile(recordType)
	exists, err := s.storage.Exists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		in, err := s.storage.ReadFileStream(path, s.fileMode)
		if err != nil {
			return nil, err
		}
		defer in.Close()
		lines := bufio.NewScanner(in)
		for lines.Scan() {
			line := strings.TrimSpace(lines.Text())
			if line == "" {
				continue
			}
			id, err := strconv.ParseInt(line, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("ledger %s: %w", path, err)
			}
			l.max = max(l.max, id)
			_ = l.ids.Insert(id, id)
		}
		if err := lines.Err(); err != nil {
			return nil, err
		}
	}

	s.ledgers[recordType] = l
	return l, nil
}

// asInt64 normalizes the identifier representations this backend accepts:
// native integers and the float64 form they take after a JSON round trip.
func asInt64(id any) (int64, bool) {
	switch t := id.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case uint64:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// idKey renders an identifier in the canonical decimal form used as the
// record-line key.
func idKey(id any) (string, bool) {
	n, ok := asInt64(id)
	if !ok {
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}
