package interfaces

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ContentID is the 32-byte SHA-256 hash addressing a stored document.
type ContentID [32]byte

// NewContentIDFromBytes converts a raw 32-byte slice into a content ID.
func NewContentIDFromBytes(source []byte) (ContentID, error) {
	if len(source) != 32 {
		return ContentID{}, errors.New("invalid content ID: must be 32 bytes")
	}

	var id ContentID
	copy(id[:], source)
	return id, nil
}

// NewContentIDFromHex parses a content ID from a hex string, with or without
// a 0x prefix.
func NewContentIDFromHex(source string) (ContentID, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return ContentID{}, errors.New("invalid content ID: hex string must be 64 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return ContentID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewContentIDFromBytes(raw)
}

// ComputeID calculates the content ID of a document.
func ComputeID(data []byte) ContentID {
	return ContentID(sha256.Sum256(data))
}

// String returns the hex representation.
func (id ContentID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw hash.
func (id ContentID) Bytes() []byte {
	return id[:]
}

// Equal compares two content IDs.
func (id ContentID) Equal(other ContentID) bool {
	return bytes.Equal(id[:], other[:])
}

// ContentType selects the storage namespace.
type ContentType int

const (
	// MetadataType holds token metadata documents served under tokenURI.
	MetadataType ContentType = iota
	// SnapshotType holds registry state snapshots.
	SnapshotType
)

// String returns the namespace name.
func (ct ContentType) String() string {
	switch ct {
	case MetadataType:
		return "metadata"
	case SnapshotType:
		return "snapshot"
	default:
		return "unknown"
	}
}

// StorageBackendLocation is a backend URI of the form
// [scheme]://[auth@]host[:port][/path][?params].
type StorageBackendLocation string

// StorageBackend stores and retrieves content-addressed documents.
type StorageBackend interface {
	// Fetch retrieves a document by ID and namespace. Returns
	// ErrContentNotFound when absent.
	Fetch(ctx context.Context, id ContentID, contentType ContentType) ([]byte, error)

	// Store persists a document and returns its content ID.
	Store(ctx context.Context, data []byte, contentType ContentType) (ContentID, error)

	// Available reports whether the backend is currently reachable.
	Available(ctx context.Context) bool

	// Name returns a short identifier for logs.
	Name() string

	// LocationURI returns the URI this backend was created from.
	LocationURI() string
}

// StorageBackendFactory creates storage backends from location URIs.
type StorageBackendFactory interface {
	StorageBackendFor(location StorageBackendLocation) (StorageBackend, error)
	CreateMultiBackend(locations []StorageBackendLocation) (StorageBackend, error)
}
