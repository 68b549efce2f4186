package jsonstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/recdb/domain"
)

type JSONStoreTestSuite struct {
	suite.Suite
	dir   string
	store *Store
	ctx   context.Context
}

func (s *JSONStoreTestSuite) SetupTest() {
	s.dir = filepath.Join(s.T().TempDir(), "testdb")
	backend, err := NewStore(domain.WithStoreDir(s.dir))
	s.Require().NoError(err)
	s.store = backend.(*Store)
	s.ctx = context.Background()
}

func (s *JSONStoreTestSuite) row(id int64, extra map[string]any) domain.Row {
	row := domain.Row{"_id": id}
	for k, v := range extra {
		row[k] = v
	}
	return row
}

func (s *JSONStoreTestSuite) add(recordType string, rows ...domain.Row) {
	s.Require().NoError(s.store.Add(s.ctx, domain.Batch{recordType: rows}))
}

func (s *JSONStoreTestSuite) fileContent(recordType string) string {
	data, err := os.ReadFile(filepath.Join(s.dir, recordType+dataExtension))
	s.Require().NoError(err)
	return string(data)
}

// parseFile checks the whole-file invariant: the data file must always parse
// as one JSON object mapping identifier keys to rows.
func (s *JSONStoreTestSuite) parseFile(recordType string) map[string]domain.Row {
	out := map[string]domain.Row{}
	s.Require().NoError(json.Unmarshal([]byte(s.fileContent(recordType)), &out))
	return out
}

func (s *JSONStoreTestSuite) TestNameCannotEndInTilde() {
	_, err := NewStore(domain.WithStoreDir(s.dir + "~"))
	s.ErrorAs(err, &domain.ErrDatabaseName{})
}

// Identifiers are monotonic from one, independently per type.
func (s *JSONStoreTestSuite) TestNextID() {
	for want := int64(1); want <= 3; want++ {
		id, err := s.store.NextID(s.ctx, "Compound")
		s.NoError(err)
		s.Equal(want, id)
	}
	id, err := s.store.NextID(s.ctx, "Spectrum")
	s.NoError(err)
	s.Equal(int64(1), id)
}

// A fresh instance picks allocation up where the ledger left off.
func (s *JSONStoreTestSuite) TestNextIDSurvivesReopen() {
	s.add("Compound", s.row(1, nil), s.row(2, nil))

	backend, err := NewStore(domain.WithStoreDir(s.dir))
	s.Require().NoError(err)
	id, err := backend.NextID(s.ctx, "Compound")
	s.NoError(err)
	s.Equal(int64(3), id)
}

// A type touched for the first time gets a data file holding just the two
// markers.
func (s *JSONStoreTestSuite) TestFreshFileShape() {
	_, err := s.store.Record(s.ctx, "Compound", int64(1))
	s.NoError(err)
	s.Equal("{\n\n}", s.fileContent("Compound"))
}

func (s *JSONStoreTestSuite) TestAdd() {
	s.add("Compound", s.row(1, map[string]any{"Formula": "H2O"}))

	parsed := s.parseFile("Compound")
	s.Len(parsed, 1)
	s.Equal("H2O", parsed["1"]["Formula"])

	content := s.fileContent("Compound")
	s.True(strings.HasPrefix(content, "{\n"))
	s.True(strings.HasSuffix(content, "\n}"))
	s.NotContains(content[:len(content)-1], "\n\n")
}

// Appending to a populated file continues the previous line with a comma; the
// result must still parse as one object.
func (s *JSONStoreTestSuite) TestAddAppendsWithComma() {
	s.add("Compound", s.row(1, nil), s.row(2, nil))
	s.add("Compound", s.row(3, nil))

	parsed := s.parseFile("Compound")
	s.Len(parsed, 3)

	// One record per line, every line but the last comma-terminated.
	lines := strings.Split(s.fileContent("Compound"), "\n")
	s.Len(lines, 5)
	s.True(strings.HasSuffix(lines[1], ","))
	s.True(strings.HasSuffix(lines[2], ","))
	s.False(strings.HasSuffix(lines[3], ","))
}

// A row that cannot be serialized must not leave the data file without its
// closing marker.
func (s *JSONStoreTestSuite) TestAddFailureKeepsFileParseable() {
	s.add("Compound", s.row(1, map[string]any{"Formula": "H2O"}))
	before := s.fileContent("Compound")

	err := s.store.Add(s.ctx, domain.Batch{
		"Compound": {s.row(2, map[string]any{"Bad": make(chan int)})},
	})
	s.Error(err)
	s.Equal(before, s.fileContent("Compound"))
	s.parseFile("Compound")
}

func (s *JSONStoreTestSuite) TestContainsID() {
	s.add("Compound", s.row(1, nil))

	ok, err := s.store.ContainsID(s.ctx, int64(1), "Compound")
	s.NoError(err)
	s.True(ok)
	ok, err = s.store.ContainsID(s.ctx, int64(9), "Compound")
	s.NoError(err)
	s.False(ok)
	ok, err = s.store.ContainsID(s.ctx, "not-a-number", "Compound")
	s.NoError(err)
	s.False(ok)
}

// The ledger keeps one identifier per line, in allocation order.
func (s *JSONStoreTestSuite) TestLedgerContent() {
	s.add("Compound", s.row(1, nil), s.row(2, nil))

	data, err := os.ReadFile(filepath.Join(s.dir, "Compound"+ledgerExtension))
	s.Require().NoError(err)
	s.Equal("1\n2\n", string(data))
}

func (s *JSONStoreTestSuite) TestUpdate() {
	s.add("Compound",
		s.row(1, map[string]any{"Formula": "H2O"}),
		s.row(2, map[string]any{"Formula": "CO2"}),
		s.row(3, map[string]any{"Formula": "NaCl"}))
	before := strings.Split(s.fileContent("Compound"), "\n")

	err := s.store.Update(s.ctx, domain.Batch{
		"Compound": {s.row(2, map[string]any{"Formula": "CH4"})},
	})
	s.NoError(err)

	// Neighboring lines stay byte-identical.
	after := strings.Split(s.fileContent("Compound"), "\n")
	s.Require().Len(after, len(before))
	s.Equal(before[1], after[1])
	s.Equal(before[3], after[3])

	parsed := s.parseFile("Compound")
	s.Len(parsed, 3)
	s.Equal("H2O", parsed["1"]["Formula"])
	s.Equal("CH4", parsed["2"]["Formula"])
	s.Equal("NaCl", parsed["3"]["Formula"])

	// No crash backup left behind.
	s.NoFileExists(filepath.Join(s.dir, "Compound"+dataExtension+"~"))
}

// Updating an identifier that was never added changes nothing.
func (s *JSONStoreTestSuite) TestUpdateUnknownIDIsNoop() {
	s.add("Compound", s.row(1, map[string]any{"Formula": "H2O"}))
	before := s.fileContent("Compound")

	err := s.store.Update(s.ctx, domain.Batch{
		"Compound": {s.row(9, map[string]any{"Formula": "XX"})},
	})
	s.NoError(err)
	s.Equal(before, s.fileContent("Compound"))
}

// Updating against an empty file keeps the fresh marker shape intact.
func (s *JSONStoreTestSuite) TestUpdateEmptyFile() {
	_, err := s.store.Record(s.ctx, "Compound", int64(1))
	s.NoError(err)

	err = s.store.Update(s.ctx, domain.Batch{
		"Compound": {s.row(1, nil)},
	})
	s.NoError(err)
	s.Equal("{\n\n}", s.fileContent("Compound"))
}

func (s *JSONStoreTestSuite) TestDelete() {
	s.add("Compound", s.row(1, nil), s.row(2, nil), s.row(3, nil))

	s.NoError(s.store.Delete(s.ctx, "Compound", int64(2)))

	parsed := s.parseFile("Compound")
	s.Len(parsed, 2)
	s.Contains(parsed, "1")
	s.Contains(parsed, "3")

	// The surviving last line must not keep a dangling comma.
	content := s.fileContent("Compound")
	lines := strings.Split(content, "\n")
	s.Len(lines, 4)
	s.True(strings.HasSuffix(lines[1], ","))
	s.False(strings.HasSuffix(lines[2], ","))
}

func (s *JSONStoreTestSuite) TestDeleteLastRow() {
	s.add("Compound", s.row(1, nil), s.row(2, nil))
	s.NoError(s.store.Delete(s.ctx, "Compound", int64(2)))

	parsed := s.parseFile("Compound")
	s.Len(parsed, 1)
	s.Contains(parsed, "1")
}

// Deleting every row restores the fresh marker shape, and the file accepts
// new rows afterwards.
func (s *JSONStoreTestSuite) TestDeleteAllRows() {
	s.add("Compound", s.row(1, nil), s.row(2, nil))
	s.NoError(s.store.Delete(s.ctx, "Compound", int64(1), int64(2)))
	s.Equal("{\n\n}", s.fileContent("Compound"))

	s.add("Compound", s.row(3, nil))
	parsed := s.parseFile("Compound")
	s.Len(parsed, 1)
	s.Contains(parsed, "3")
}

func (s *JSONStoreTestSuite) TestDeleteUnknownIDIsNoop() {
	s.add("Compound", s.row(1, nil))
	before := s.fileContent("Compound")
	s.NoError(s.store.Delete(s.ctx, "Compound", int64(9)))
	s.Equal(before, s.fileContent("Compound"))
}

// Deleted identifiers stay in the ledger and are never reallocated.
func (s *JSONStoreTestSuite) TestDeletedIDsStayAllocated() {
	s.add("Compound", s.row(1, nil), s.row(2, nil))
	s.NoError(s.store.Delete(s.ctx, "Compound", int64(2)))

	ok, err := s.store.ContainsID(s.ctx, int64(2), "Compound")
	s.NoError(err)
	s.True(ok)

	id, err := s.store.NextID(s.ctx, "Compound")
	s.NoError(err)
	s.Equal(int64(3), id)
}

// The data file re-parses as one JSON object after any sequence of
// operations, and identifiers keep advancing past deleted ones.
func (s *JSONStoreTestSuite) TestFileStaysParseableAcrossOperations() {
	s.add("Compound", s.row(1, nil), s.row(2, nil))
	s.parseFile("Compound")

	s.NoError(s.store.Delete(s.ctx, "Compound", int64(1)))
	s.parseFile("Compound")

	s.add("Compound", s.row(3, nil))
	s.parseFile("Compound")

	s.NoError(s.store.Update(s.ctx, domain.Batch{
		"Compound": {s.row(2, map[string]any{"Formula": "CO2"})},
	}))
	s.parseFile("Compound")

	s.NoError(s.store.Delete(s.ctx, "Compound", int64(2), int64(3)))
	s.Equal("{\n\n}", s.fileContent("Compound"))

	s.add("Compound", s.row(4, nil), s.row(5, nil))
	parsed := s.parseFile("Compound")
	s.Len(parsed, 2)

	id, err := s.store.NextID(s.ctx, "Compound")
	s.NoError(err)
	s.Equal(int64(6), id)
}

func (s *JSONStoreTestSuite) TestRecord() {
	s.add("Compound", s.row(1, map[string]any{"Formula": "H2O"}))

	row, err := s.store.Record(s.ctx, "Compound", int64(1))
	s.NoError(err)
	s.Require().NotNil(row)
	s.Equal("H2O", row["Formula"])

	row, err = s.store.Record(s.ctx, "Compound", int64(9))
	s.NoError(err)
	s.Nil(row)
}

func (s *JSONStoreTestSuite) TestRecords() {
	s.add("Compound",
		s.row(1, map[string]any{"Formula": "H2O"}),
		s.row(2, map[string]any{"Formula": "CO2"}))

	seq, err := s.store.Records(s.ctx, "Compound")
	s.Require().NoError(err)

	var formulas []string
	for row, err := range seq {
		s.NoError(err)
		formulas = append(formulas, row["Formula"].(string))
	}
	s.Equal([]string{"H2O", "CO2"}, formulas)
}

// A record line that does not parse aborts the operation instead of silently
// dropping the record.
func (s *JSONStoreTestSuite) TestMalformedLine() {
	s.add("Compound", s.row(1, nil))

	path := filepath.Join(s.dir, "Compound"+dataExtension)
	s.Require().NoError(os.WriteFile(path, []byte("{\n\"1\": {\"_id\": 1},\nnot json\n}"), 0o644))

	err := s.store.Update(s.ctx, domain.Batch{"Compound": {s.row(1, nil)}})
	s.ErrorAs(err, &domain.ErrMalformedLine{})

	_, err = s.store.Record(s.ctx, "Compound", int64(2))
	s.ErrorAs(err, &domain.ErrMalformedLine{})
}

func (s *JSONStoreTestSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.ErrorIs(s.store.Add(ctx, domain.Batch{"Compound": {s.row(1, nil)}}), context.Canceled)
	_, err := s.store.Record(ctx, "Compound", int64(1))
	s.ErrorIs(err, context.Canceled)
}

func TestJSONStoreTestSuite(t *testing.T) {
	suite.Run(t, new(JSONStoreTestSuite))
}
