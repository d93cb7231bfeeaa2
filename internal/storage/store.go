// Package storage keeps uploaded asset files. A Store validates and names
// uploads and delegates the bytes to a Backend (local directory or S3 bucket).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxNameLength = 100

var (
	ErrNotFound        = errors.New("stored file not found")
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrInvalidName     = errors.New("invalid stored file name")
	ErrNotLocal        = errors.New("store has no local path")
)

// DefaultAllowedTypes is the upload allow-list: images, PDF, zip archives and
// Word/PowerPoint documents.
var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/svg+xml",
	"application/pdf",
	"application/zip",
	"application/x-zip-compressed",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// Object describes a file held by a backend.
type Object struct {
	Name    string
	Size    int64
	ModTime time.Time
}

type Backend interface {
	// Put writes r under name and returns the number of bytes written.
	Put(ctx context.Context, name string, r io.Reader, contentType string) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, *Object, error)
	// Remove deletes name; a missing object is not an error.
	Remove(ctx context.Context, name string) error
	List(ctx context.Context) ([]Object, error)
}

// PathResolver is implemented by backends that keep files on local disk.
type PathResolver interface {
	ResolvePath(name string) (string, error)
}

type Upload struct {
	Reader       io.Reader
	OriginalName string
	MimeType     string
	Size         int64
}

type StoredFile struct {
	Name         string
	OriginalName string
	Extension    string
	MimeType     string
	Size         int64
}

type Store struct {
	backend Backend
	maxSize int64
	allowed map[string]struct{}
	now     func() time.Time
	newID   func() string
}

func NewStore(backend Backend, maxSize int64, allowedTypes []string) *Store {
	if len(allowedTypes) == 0 {
		allowedTypes = DefaultAllowedTypes
	}
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[strings.ToLower(t)] = struct{}{}
	}
	return &Store{
		backend: backend,
		maxSize: maxSize,
		allowed: allowed,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *Store) MaxSize() int64 {
	return s.maxSize
}

// Save checks type and size, then writes the upload under a fresh name of the
// form <unix-millis>-<uuid>-<original name>.
func (s *Store) Save(ctx context.Context, up Upload) (*StoredFile, error) {
	mimeType := NormalizeMimeType(up.MimeType)
	if _, ok := s.allowed[mimeType]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, up.MimeType)
	}
	if up.Size > s.maxSize {
		return nil, ErrTooLarge
	}
	if up.Reader == nil {
		return nil, fmt.Errorf("upload has no content")
	}

	original := sanitizeName(up.OriginalName)
	name := fmt.Sprintf("%d-%s-%s", s.now().UnixMilli(), s.newID(), original)

	written, err := s.backend.Put(ctx, name, io.LimitReader(up.Reader, s.maxSize+1), mimeType)
	if err != nil {
		return nil, fmt.Errorf("store file failed: %w", err)
	}
	if written > s.maxSize {
		_ = s.backend.Remove(ctx, name)
		return nil, ErrTooLarge
	}

	return &StoredFile{
		Name:         name,
		OriginalName: original,
		Extension:    strings.ToLower(filepath.Ext(original)),
		MimeType:     mimeType,
		Size:         written,
	}, nil
}

// PutDerived stores generated content, such as a thumbnail, under name. It
// skips the upload allow-list.
func (s *Store) PutDerived(ctx context.Context, name, contentType string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	if _, err := s.backend.Put(ctx, name, bytes.NewReader(data), contentType); err != nil {
		return fmt.Errorf("store derived file failed: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	if err := checkName(name); err != nil {
		return err
	}
	return s.backend.Remove(ctx, name)
}

func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, *Object, error) {
	if err := checkName(name); err != nil {
		return nil, nil, ErrNotFound
	}
	return s.backend.Open(ctx, name)
}

func (s *Store) List(ctx context.Context) ([]Object, error) {
	return s.backend.List(ctx)
}

// ResolveDownloadPath maps a stored name to an absolute path on disk. Backends
// without local files return ErrNotLocal.
func (s *Store) ResolveDownloadPath(name string) (string, error) {
	resolver, ok := s.backend.(PathResolver)
	if !ok {
		return "", ErrNotLocal
	}
	return resolver.ResolvePath(name)
}

// DerivedName is the stored name of a generated companion file.
func DerivedName(prefix, storedName, ext string) string {
	base := strings.TrimSuffix(storedName, filepath.Ext(storedName))
	return prefix + "-" + base + ext
}

// NormalizeMimeType drops parameters and lowercases a declared content type.
func NormalizeMimeType(declared string) string {
	declared = strings.TrimSpace(declared)
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
		return strings.ToLower(mediaType)
	}
	return strings.ToLower(declared)
}

func sanitizeName(original string) string {
	original = strings.ReplaceAll(original, "\\", "/")
	original = filepath.Base(original)

	var b strings.Builder
	for _, r := range original {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), ".")
	if len(name) > maxNameLength {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:maxNameLength-len(ext)] + ext
	}
	if name == "" {
		return "file"
	}
	return name
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return ErrInvalidName
	}
	return nil
}
