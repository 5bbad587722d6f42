package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soulname/soulstore-backend/interfaces"
)

// MultiStorageBackend aggregates several backends for redundancy: stores go
// to every available backend, fetches return from the first backend that has
// the content.
type MultiStorageBackend struct {
	backends []interfaces.StorageBackend
	log      *slog.Logger
}

// NewMultiStorageBackend wraps the given backends.
func NewMultiStorageBackend(backends []interfaces.StorageBackend, log *slog.Logger) *MultiStorageBackend {
	if log == nil {
		log = slog.Default()
	}
	return &MultiStorageBackend{
		backends: backends,
		log:      log,
	}
}

// Fetch returns the content from the first backend holding it.
func (m *MultiStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable, skipping fetch",
				slog.String("backend", backend.Name()))
			continue
		}

		data, err := backend.Fetch(ctx, id, contentType)
		if err == nil {
			return data, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
	}

	m.log.Warn("All backends failed to fetch content",
		slog.String("contentId", id.String()),
		slog.Int("backends", len(m.backends)))

	return nil, fmt.Errorf("fetching %s from all backends: %v", id, errs)
}

// Store saves the content to every available backend. It succeeds when at
// least one backend accepted the content.
func (m *MultiStorageBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	var (
		id      interfaces.ContentID
		success bool
		errs    []error
	)

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable, skipping store",
				slog.String("backend", backend.Name()))
			continue
		}

		storedID, err := backend.Store(ctx, data, contentType)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}
		id = storedID
		success = true
	}

	if !success {
		return interfaces.ContentID{}, fmt.Errorf("storing to all backends failed: %v", errs)
	}
	if len(errs) > 0 {
		m.log.Warn("Some backends failed to store content",
			slog.String("contentId", id.String()),
			slog.Int("failed", len(errs)))
	}

	return id, nil
}

// Available reports whether at least one backend is reachable.
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name lists the aggregated backend names.
func (m *MultiStorageBackend) Name() string {
	names := make([]string, 0, len(m.backends))
	for _, backend := range m.backends {
		names = append(names, backend.Name())
	}
	return "multi[" + strings.Join(names, ",") + "]"
}

// LocationURI joins the aggregated URIs.
func (m *MultiStorageBackend) LocationURI() string {
	uris := make([]string, 0, len(m.backends))
	for _, backend := range m.backends {
		uris = append(uris, backend.LocationURI())
	}
	return strings.Join(uris, ",")
}
