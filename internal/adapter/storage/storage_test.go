package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

const testLine = "some data"

type StorageTestSuite struct {
	suite.Suite
	store *Storage
}

func (s *StorageTestSuite) SetupTest() {
	s.store = NewStorage().(*Storage)
}

// Will append to existent file.
func (s *StorageTestSuite) TestAppendExistentFile() {
	file := s.ExistentFile(s.T())

	i, err := s.store.AppendFile(file, 0666, []byte(testLine))
	s.NoError(err)
	s.Equal(len(testLine), i)
	bytes, err := os.ReadFile(file)
	s.NoError(err)
	s.Equal([]byte(testLine), bytes)
}

// Will append to non-empty file without touching existing content.
func (s *StorageTestSuite) TestAppendNonEmptyFile() {
	file := s.NonEmptyFile(s.T())

	_, err := s.store.AppendFile(file, 0666, []byte(testLine))
	s.NoError(err)
	bytes, err := os.ReadFile(file)
	s.NoError(err)
	s.Equal([]byte("123\n"+testLine), bytes)
}

// Will create nonexistent file on append.
func (s *StorageTestSuite) TestAppendNonexistentFile() {
	file := s.NonexistentFile(s.T())

	_, err := s.store.AppendFile(file, 0666, []byte(testLine))
	s.NoError(err)
	s.FileExists(file)
}

func (s *StorageTestSuite) TestExists() {
	exists, err := s.store.Exists(s.ExistentFile(s.T()))
	s.NoError(err)
	s.True(exists)

	exists, err = s.store.Exists(s.NonexistentFile(s.T()))
	s.NoError(err)
	s.False(exists)
}

func (s *StorageTestSuite) TestEnsureDirectoryExists() {
	dir := filepath.Join(s.T().TempDir(), "a", "b")
	s.NoError(s.store.EnsureDirectoryExists(dir, 0755))
	s.DirExists(dir)
	s.NoError(s.store.EnsureDirectoryExists(dir, 0755))
}

func (s *StorageTestSuite) TestReadFileStream() {
	file := s.NonEmptyFile(s.T())
	r, err := s.store.ReadFileStream(file, 0666)
	s.Require().NoError(err)
	defer r.Close()

	bytes, err := io.ReadAll(r)
	s.NoError(err)
	s.Equal([]byte("123\n"), bytes)
}

func (s *StorageTestSuite) TestWriteFileStreamTruncates() {
	file := s.NonEmptyFile(s.T())
	w, err := s.store.WriteFileStream(file, 0666)
	s.Require().NoError(err)
	_, err = w.Write([]byte(testLine))
	s.NoError(err)
	s.NoError(w.Close())

	bytes, err := os.ReadFile(file)
	s.NoError(err)
	s.Equal([]byte(testLine), bytes)
}

// Truncating the tail returns the new final byte.
func (s *StorageTestSuite) TestTruncateTail() {
	file := s.CreateFile(s.T(), []byte("{\n\n}"), 0666)

	last, err := s.store.TruncateTail(file, 2, 0666)
	s.NoError(err)
	s.Equal(byte('\n'), last)

	bytes, err := os.ReadFile(file)
	s.NoError(err)
	s.Equal([]byte("{\n"), bytes)
}

// Truncating more bytes than the file holds empties it and reports zero.
func (s *StorageTestSuite) TestTruncateTailPastStart() {
	file := s.CreateFile(s.T(), []byte("ab"), 0666)

	last, err := s.store.TruncateTail(file, 5, 0666)
	s.NoError(err)
	s.Equal(byte(0), last)

	bytes, err := os.ReadFile(file)
	s.NoError(err)
	s.Empty(bytes)
}

func (s *StorageTestSuite) TestReplaceFile() {
	file := s.CreateFile(s.T(), []byte("old"), 0666)
	temp := file + "~"
	s.Require().NoError(os.WriteFile(temp, []byte("new"), 0666))

	s.NoError(s.store.ReplaceFile(temp, file, 0755, 0666))

	bytes, err := os.ReadFile(file)
	s.NoError(err)
	s.Equal([]byte("new"), bytes)
	s.NoFileExists(temp)
}

// Replacing a file that does not exist yet installs the temporary file.
func (s *StorageTestSuite) TestReplaceNonexistentFile() {
	file := s.NonexistentFile(s.T())
	temp := file + "~"
	s.Require().NoError(os.WriteFile(temp, []byte("new"), 0666))

	s.NoError(s.store.ReplaceFile(temp, file, 0755, 0666))
	s.FileExists(file)
}

func (s *StorageTestSuite) TestRemove() {
	existent := s.ExistentFile(s.T())
	nonexistent := s.NonexistentFile(s.T())

	s.NoError(s.store.Remove(existent))
	s.Error(s.store.Remove(nonexistent))
}

func (s *StorageTestSuite) ExistentFile(t *testing.T) string {
	return s.CreateFile(t, nil, 0666)
}

func (s *StorageTestSuite) NonEmptyFile(t *testing.T) string {
	return s.CreateFile(t, []byte("123\n"), 0666)
}

func (s *StorageTestSuite) NonexistentFile(t *testing.T) string {
	dir := t.TempDir()
	return filepath.Join(dir, "nonexistent.txt")
}

func (s *StorageTestSuite) CreateFile(t *testing.T, content []byte, mode os.FileMode) string {
	dir := t.TempDir()
	file := filepath.Join(dir, "existent.txt")
	if !s.NoError(os.WriteFile(file, content, mode)) {
		s.FailNow("could not create file")
	}
	return file
}

func TestStorageTestSuite(t *testing.T) {
	suite.Run(t, new(StorageTestSuite))
}
