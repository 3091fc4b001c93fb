package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// StoredFile describes a blob written by a FileStore.
type StoredFile struct {
	Filename string
	Path     string
	Size     int64
}

// FileStore accepts uploaded blobs and hands back where they were put.
type FileStore interface {
	Store(ctx context.Context, r io.Reader, originalName string) (StoredFile, error)
	Delete(ctx context.Context, path string) error
}

// LocalFileStore keeps files in a directory on local disk.
type LocalFileStore struct {
	dir    string
	prefix string
	now    func() time.Time
}

// NewLocalFileStore creates a store rooted at dir. Files are named
// "<prefix>-<unix millis>-<random><ext>".
func NewLocalFileStore(dir, prefix string) *LocalFileStore {
	return &LocalFileStore{
		dir:    dir,
		prefix: prefix,
		now:    time.Now,
	}
}

// Dir returns the directory files are written to.
func (s *LocalFileStore) Dir() string {
	return s.dir
}

// Store copies r into a new file whose name keeps only the extension of originalName.
func (s *LocalFileStore) Store(_ context.Context, r io.Reader, originalName string) (StoredFile, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := s.newName(originalName)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to create %s: %w", name, err)
	}

	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(path)
		return StoredFile{}, fmt.Errorf("failed to write %s: %w", name, err)
	}

	return StoredFile{Filename: name, Path: path, Size: n}, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *LocalFileStore) Delete(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

func (s *LocalFileStore) newName(originalName string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%s-%d-%s%s", s.prefix, s.now().UnixMilli(), suffix, ext)
}

// SniffContentType detects the MIME type from the first bytes of r, without parameters.
func SniffContentType(r io.Reader) (string, error) {
	m, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to detect content type: %w", err)
	}
	mt, _, _ := strings.Cut(m.String(), ";")
	return strings.TrimSpace(mt), nil
}
