package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStore is a filesystem-backed BlobStore implementation.
// Blobs are stored as files under a root directory. Writes go
// through a temporary file and are renamed into place on close,
// so readers never observe partially written blobs.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a blob store rooted at the given directory.
// The directory is created if it does not exist.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (l *LocalStore) path(name string) string {
	return filepath.Join(l.dir, filepath.Clean("/"+name))
}

// Open opens a blob for reading.
func (l *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	f, err := os.Open(l.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob %q: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat blob %q: %w", name, err)
	}

	return &localBlob{f: f, size: info.Size()}, nil
}

// Create creates a new writable blob. Data is written to a temporary
// file and renamed into place when the blob is closed.
func (l *LocalStore) Create(_ context.Context, name string) (WritableBlob, error) {
	path := l.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp blob: %w", err)
	}

	return &localWritableBlob{f: tmp, path: path}, nil
}

// Put writes a blob atomically via a temporary file and rename.
func (l *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	w, err := l.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write blob %q: %w", name, err)
	}
	return w.Close()
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (l *LocalStore) Delete(_ context.Context, name string) error {
	if err := os.Remove(l.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %q: %w", name, err)
	}
	return nil
}

// List returns all blob names with the given prefix, sorted.
func (l *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(l.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(filepath.Base(name), ".tmp-") {
			return nil
		}
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// localBlob implements Blob over an open file.
type localBlob struct {
	f    *os.File
	size int64
}

func (b *localBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return b.f.ReadAt(p, off)
}

func (b *localBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= b.size {
		return nil, io.EOF
	}
	if off+length > b.size {
		length = b.size - off
	}
	return io.NopCloser(io.NewSectionReader(b.f, off, length)), nil
}

func (b *localBlob) Close() error {
	return b.f.Close()
}

func (b *localBlob) Size() int64 {
	return b.size
}

// localWritableBlob implements WritableBlob with temp-file staging.
type localWritableBlob struct {
	f    *os.File
	path string
}

func (w *localWritableBlob) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *localWritableBlob) Sync() error {
	return w.f.Sync()
}

func (w *localWritableBlob) Close() error {
	tmpPath := w.f.Name()
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync blob: %w", err)
	}
	if err := w.f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename blob into place: %w", err)
	}
	return nil
}
