package source

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
)

// File is a Source backed by a file on a billy filesystem.
type File struct {
	file    billy.File
	size    int64
	modTime time.Time
}

// Open opens path on fs. Directories are rejected.
func Open(fs billy.Filesystem, path string) (*File, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, errors.NewError("openSource", err)
	}
	if info.IsDir() {
		return nil, errors.NewError("openSource", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("%s is a directory", path))
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.NewError("openSource", err)
	}

	return &File{
		file:    f,
		size:    info.Size(),
		modTime: info.ModTime(),
	}, nil
}

// OpenFile opens a file on the local disk.
func OpenFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewError("openSource", err)
	}
	return Open(osfs.New(filepath.Dir(abs)), filepath.Base(abs))
}

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.file.ReadAt(p, off)
}

// Name returns the base name of the file.
func (f *File) Name() string {
	return filepath.Base(f.file.Name())
}

// Size returns the file size captured when the file was opened.
func (f *File) Size() int64 {
	return f.size
}

// ModTime returns the file's modification time.
func (f *File) ModTime() time.Time {
	return f.modTime
}

// Close closes the underlying file.
func (f *File) Close() error {
	if err := f.file.Close(); err != nil {
		return fmt.Errorf("close %q: %w", f.file.Name(), err)
	}
	return nil
}
