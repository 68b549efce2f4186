package storage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/vinicius-lino-figueiredo/recdb/domain"
)

// Storage implements domain.Storage.
type Storage struct{}

// NewStorage returns a new implementation of domain.Storage.
func NewStorage() domain.Storage {
	return &Storage{}
}

// AppendFile implements domain.Storage.
func (d *Storage) AppendFile(filename string, mode os.FileMode, data []byte) (int, error) {
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, mode)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.Write(data)
}

// Exists implements domain.Storage.
func (d *Storage) Exists(filename string) (bool, error) {
	_, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EnsureDirectoryExists implements domain.Storage.
func (d *Storage) EnsureDirectoryExists(dir string, mode os.FileMode) error {
	parsedDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	return os.MkdirAll(parsedDir, mode)
}

// ReadFileStream implements domain.Storage.
func (d *Storage) ReadFileStream(filename string, mode os.FileMode) (io.ReadCloser, error) {
	return os.OpenFile(filename, os.O_RDONLY, mode)
}

// WriteFileStream implements domain.Storage.
func (d *Storage) WriteFileStream(filename string, mode os.FileMode) (io.WriteCloser, error) {
	return os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
}

// WriteFile implements domain.Storage.
func (d *Storage) WriteFile(filename string, data []byte, mode os.FileMode) error {
	return os.WriteFile(filename, data, mode)
}

// TruncateTail implements domain.Storage. The returned byte is the file's new
// final byte, or zero if the file became empty.
func (d *Storage) TruncateTail(filename string, n int64, mode os.FileMode) (byte, error) {
	f, err := os.OpenFile(filename, os.O_RDWR, mode)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := max(info.Size()-n, 0)
	if err := f.Truncate(size); err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, nil
	}
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, size-1); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReplaceFile implements domain.Storage. The temporary file must already be
// written and closed; both it and the containing directory are flushed to
// storage around the rename so a crash leaves either the old or the new
// content.
func (d *Storage) ReplaceFile(tempname string, filename string, dirMode os.FileMode, fileMode os.FileMode) error {
	if err := d.flushToStorage(filepath.Dir(filename), true, dirMode); err != nil {
		return err
	}

	exists, err := d.Exists(filename)
	if err != nil {
		return err
	}
	if exists {
		if err := d.flushToStorage(filename, false, fileMode); err != nil {
			return err
		}
	}

	if err := d.flushToStorage(tempname, false, fileMode); err != nil {
		return err
	}

	if err := os.Rename(tempname, filename); err != nil {
		return err
	}

	return d.flushToStorage(filepath.Dir(filename), true, dirMode)
}

// Remove implements domain.Storage.
func (d *Storage) Remove(filename string) error {
	return os.Remove(filename)
}

func (d *Storage) flushToStorage(filename string, isDir bool, mode os.FileMode) error {
	flags := os.O_RDWR
	if isDir {
		flags = os.O_RDONLY
	}

	fileHandle, err := os.OpenFile(filename, flags, mode)
	if err != nil {
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}

	if err := fileHandle.Sync(); err != nil {
		fileHandle.Close()
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}

	if err := fileHandle.Close(); err != nil {
		return domain.ErrFlushToStorage{ErrorOnClose: err}
	}

	return nil
}
