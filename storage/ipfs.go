package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/soulname/soulstore-backend/interfaces"
)

// IPFSBackend stores content on an IPFS node. Documents are written into the
// node's mutable filesystem under a fixed root so they stay addressable by
// their sha256 content ID rather than the IPFS CID.
type IPFSBackend struct {
	shell       *shell.Shell
	root        string
	prefixes    map[interfaces.ContentType]string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates an IPFS backend against the node API at host:port.
func NewIPFSBackend(host, port string, log *slog.Logger) (*IPFSBackend, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	return &IPFSBackend{
		shell: shell.NewShell(apiURL),
		root:  "/soulstore",
		prefixes: map[interfaces.ContentType]string{
			interfaces.MetadataType: "metadata",
			interfaces.SnapshotType: "snapshots",
		},
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s", apiURL),
	}, nil
}

// Fetch retrieves a document from the node's files API.
func (b *IPFSBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	if !b.shell.IsUp() {
		return nil, interfaces.ErrBackendUnavailable
	}

	path := b.ipfsPath(id, contentType)
	reader, err := b.shell.FilesRead(ctx, path)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("reading %s from ipfs: %w", path, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading ipfs content: %w", err)
	}

	b.log.Debug("Fetched content from IPFS",
		slog.String("path", path),
		slog.Int("size", len(data)))

	return data, nil
}

// Store writes a document to the node's files API under its content ID.
func (b *IPFSBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	if !b.shell.IsUp() {
		return interfaces.ContentID{}, interfaces.ErrBackendUnavailable
	}

	id := interfaces.ComputeID(data)
	path := b.ipfsPath(id, contentType)

	err := b.shell.FilesWrite(ctx, path, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("writing %s to ipfs: %w", path, err)
	}

	b.log.Debug("Stored content to IPFS",
		slog.String("path", path),
		slog.Int("size", len(data)))

	return id, nil
}

// Available reports whether the IPFS node answers.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name identifies the backend in logs.
func (b *IPFSBackend) Name() string {
	return "ipfs"
}

// LocationURI returns the backend's URI.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func (b *IPFSBackend) ipfsPath(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return fmt.Sprintf("%s/%s/%s", b.root, b.prefixes[contentType], id.String())
}
