package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/soulname/soulstore-backend/interfaces"
)

// Factory creates storage backends from location URIs and assembles
// multi-backend stacks for redundant storage.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a backend factory.
func NewFactory(log *slog.Logger) *Factory {
	if log == nil {
		log = slog.Default()
	}
	return &Factory{log: log}
}

// StorageBackendFor creates a backend from a location URI of the form
// [scheme]://[auth@]host[:port][/path][?params].
//
// Supported schemes:
//   - memory:// - process-local storage for tests and development
//   - file:///var/lib/soulstore - local filesystem
//   - s3://bucket/prefix?region=...&endpoint=...&access_key=...&secret_key=... - object storage
//   - ipfs://host:port - IPFS node files API
//   - vault://host:port/mount/path?token=...&tls=true - HashiCorp Vault KV
func (f *Factory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	u, err := url.Parse(string(location))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "memory":
		return NewMemoryBackend(f.log), nil
	case "file":
		return f.createFileBackend(u)
	case "s3":
		return f.createS3Backend(u)
	case "ipfs":
		return f.createIPFSBackend(u)
	case "vault":
		return f.createVaultBackend(u)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

// CreateMultiBackend assembles a multi-backend from a list of URIs, skipping
// URIs that fail to construct. At least one backend must construct.
func (f *Factory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	backends := make([]interfaces.StorageBackend, 0, len(locations))

	for _, location := range locations {
		backend, err := f.StorageBackendFor(location)
		if err != nil {
			f.log.Warn("Failed to create storage backend",
				slog.String("location", string(location)),
				slog.String("err", err.Error()))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created from %d locations", len(locations))
	}
	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewMultiStorageBackend(backends, f.log), nil
}

func (f *Factory) createFileBackend(u *url.URL) (interfaces.StorageBackend, error) {
	// file:///var/lib/soulstore has an empty host and the directory in Path.
	dir := u.Path
	if u.Host != "" {
		dir = u.Host + u.Path
	}
	if dir == "" {
		return nil, fmt.Errorf("%w: file URI needs a directory", interfaces.ErrInvalidLocationURI)
	}
	return NewFileBackend(dir, f.log)
}

func (f *Factory) createS3Backend(u *url.URL) (interfaces.StorageBackend, error) {
	bucket := u.Host
	if bucket == "" {
		return nil, fmt.Errorf("%w: s3 URI needs a bucket", interfaces.ErrInvalidLocationURI)
	}

	q := u.Query()
	region := q.Get("region")
	if region == "" {
		region = "us-east-1"
	}

	return NewS3Backend(
		bucket,
		strings.TrimPrefix(u.Path, "/"),
		region,
		q.Get("endpoint"),
		q.Get("access_key"),
		q.Get("secret_key"),
		f.log,
	)
}

func (f *Factory) createIPFSBackend(u *url.URL) (interfaces.StorageBackend, error) {
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: ipfs URI needs a host", interfaces.ErrInvalidLocationURI)
	}
	port := u.Port()
	if port == "" {
		port = "5001"
	}
	return NewIPFSBackend(host, port, f.log)
}

func (f *Factory) createVaultBackend(u *url.URL) (interfaces.StorageBackend, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("%w: vault URI needs a host", interfaces.ErrInvalidLocationURI)
	}

	q := u.Query()
	scheme := "https"
	if q.Get("tls") == "false" {
		scheme = "http"
	}
	address := fmt.Sprintf("%s://%s", scheme, u.Host)

	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	mountPath := "secret"
	dataPath := "soulstore"
	if len(parts) > 0 && parts[0] != "" {
		mountPath = parts[0]
	}
	if len(parts) > 1 && parts[1] != "" {
		dataPath = parts[1]
	}

	return NewVaultBackend(address, q.Get("token"), mountPath, dataPath, f.log)
}
