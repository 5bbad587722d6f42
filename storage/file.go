package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/soulname/soulstore-backend/interfaces"
)

// FileBackend stores content on the local filesystem, one directory per
// content namespace, one file per content ID.
type FileBackend struct {
	baseDir     string
	prefixes    map[interfaces.ContentType]string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file backend rooted at baseDir, creating the
// namespace subdirectories if needed.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	prefixes := map[interfaces.ContentType]string{
		interfaces.MetadataType: "metadata",
		interfaces.SnapshotType: "snapshots",
	}

	for _, prefix := range prefixes {
		if err := os.MkdirAll(filepath.Join(baseDir, prefix), 0755); err != nil {
			return nil, fmt.Errorf("creating %s directory: %w", prefix, err)
		}
	}

	return &FileBackend{
		baseDir:     baseDir,
		prefixes:    prefixes,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch reads a document from disk. Returns ErrContentNotFound if the file
// does not exist.
func (b *FileBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	path := b.filePath(id, contentType)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	b.log.Debug("Fetched content from file",
		slog.String("path", path),
		slog.Int("size", len(data)))

	return data, nil
}

// Store writes a document to disk under its content ID.
func (b *FileBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	path := b.filePath(id, contentType)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return interfaces.ContentID{}, fmt.Errorf("writing %s: %w", path, err)
	}

	b.log.Debug("Stored content to file",
		slog.String("path", path),
		slog.Int("size", len(data)))

	return id, nil
}

// Available reports whether the base directory is accessible.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	return err == nil
}

// Name identifies the backend in logs.
func (b *FileBackend) Name() string {
	return "file"
}

// LocationURI returns the backend's URI.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) filePath(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return filepath.Join(b.baseDir, b.prefixes[contentType], id.String())
}
