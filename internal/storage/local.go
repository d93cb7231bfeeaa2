package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const tempPrefix = ".upload-"

// LocalBackend keeps files flat inside one directory.
type LocalBackend struct {
	dir string
}

func NewLocalBackend(dir string) (*LocalBackend, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir failed: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	return &LocalBackend{dir: abs}, nil
}

func (b *LocalBackend) Dir() string {
	return b.dir
}

// Put writes to a temp file first and renames it into place, so readers never
// see a partial file under the final name.
func (b *LocalBackend) Put(ctx context.Context, name string, r io.Reader, _ string) (int64, error) {
	target, err := b.path(name)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(b.dir, tempPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("create temp file failed: %w", err)
	}
	tmpName := tmp.Name()

	written, copyErr := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		if copyErr != nil {
			return written, fmt.Errorf("write file failed: %w", copyErr)
		}
		return written, fmt.Errorf("close file failed: %w", closeErr)
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return written, fmt.Errorf("rename file failed: %w", err)
	}
	return written, nil
}

func (b *LocalBackend) Open(_ context.Context, name string) (io.ReadCloser, *Object, error) {
	path, err := b.path(name)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open file failed: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("stat file failed: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, ErrNotFound
	}
	return f, &Object{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (b *LocalBackend) Remove(_ context.Context, name string) error {
	path, err := b.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file failed: %w", err)
	}
	return nil
}

func (b *LocalBackend) List(_ context.Context) ([]Object, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir failed: %w", err)
	}
	objects := make([]Object, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		objects = append(objects, Object{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return objects, nil
}

// ResolvePath returns the absolute path of an existing stored file.
func (b *LocalBackend) ResolvePath(name string) (string, error) {
	path, err := b.path(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat file failed: %w", err)
	}
	if info.IsDir() {
		return "", ErrNotFound
	}
	return path, nil
}

// path maps name into the upload directory. Names that would land outside it
// are rejected.
func (b *LocalBackend) path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", ErrNotFound
	}
	path := filepath.Join(b.dir, name)
	rel, err := filepath.Rel(b.dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrNotFound
	}
	return path, nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
