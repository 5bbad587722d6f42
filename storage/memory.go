package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/soulname/soulstore-backend/interfaces"
)

// MemoryBackend keeps content in process memory. Used by tests and
// single-process development deployments; contents do not survive restarts.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[interfaces.ContentType]map[interfaces.ContentID][]byte
	log  *slog.Logger
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(log *slog.Logger) *MemoryBackend {
	if log == nil {
		log = slog.Default()
	}
	return &MemoryBackend{
		data: make(map[interfaces.ContentType]map[interfaces.ContentID][]byte),
		log:  log,
	}
}

// Fetch retrieves a document by ID and namespace.
func (b *MemoryBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.data[contentType][id]
	if !ok {
		return nil, interfaces.ErrContentNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Store persists a document and returns its content ID.
func (b *MemoryBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)

	b.mu.Lock()
	defer b.mu.Unlock()

	ns, ok := b.data[contentType]
	if !ok {
		ns = make(map[interfaces.ContentID][]byte)
		b.data[contentType] = ns
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	ns[id] = stored

	return id, nil
}

// Available always reports true.
func (b *MemoryBackend) Available(ctx context.Context) bool {
	return true
}

// Name identifies the backend in logs.
func (b *MemoryBackend) Name() string {
	return "memory"
}

// LocationURI returns the backend's URI.
func (b *MemoryBackend) LocationURI() string {
	return "memory://"
}
