package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulname/soulstore-backend/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(testLogger())

	doc := []byte(`{"name":"alice.soul"}`)
	id, err := b.Store(ctx, doc, interfaces.MetadataType)
	require.NoError(t, err)
	assert.True(t, id.Equal(interfaces.ComputeID(doc)))

	got, err := b.Fetch(ctx, id, interfaces.MetadataType)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	// Namespaces are separate.
	_, err = b.Fetch(ctx, id, interfaces.SnapshotType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	b, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)
	assert.True(t, b.Available(ctx))

	doc := []byte(`{"leases":[]}`)
	id, err := b.Store(ctx, doc, interfaces.SnapshotType)
	require.NoError(t, err)

	got, err := b.Fetch(ctx, id, interfaces.SnapshotType)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	_, err = b.Fetch(ctx, interfaces.ComputeID([]byte("absent")), interfaces.SnapshotType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFactorySchemes(t *testing.T) {
	f := NewFactory(testLogger())

	b, err := f.StorageBackendFor("memory://")
	require.NoError(t, err)
	assert.Equal(t, "memory", b.Name())

	b, err = f.StorageBackendFor(interfaces.StorageBackendLocation("file://" + t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, "file", b.Name())

	b, err = f.StorageBackendFor("s3://metadata-bucket/soulstore?region=eu-west-1")
	require.NoError(t, err)
	assert.Equal(t, "s3", b.Name())

	b, err = f.StorageBackendFor("ipfs://127.0.0.1:5001")
	require.NoError(t, err)
	assert.Equal(t, "ipfs", b.Name())

	b, err = f.StorageBackendFor("vault://127.0.0.1:8200/secret/soulstore?token=dev&tls=false")
	require.NoError(t, err)
	assert.Equal(t, "vault", b.Name())

	_, err = f.StorageBackendFor("ftp://example.com")
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestCreateMultiBackendSkipsInvalid(t *testing.T) {
	f := NewFactory(testLogger())

	b, err := f.CreateMultiBackend([]interfaces.StorageBackendLocation{
		"memory://",
		"ftp://invalid",
		interfaces.StorageBackendLocation("file://" + t.TempDir()),
	})
	require.NoError(t, err)
	assert.Equal(t, "multi[memory,file]", b.Name())

	_, err = f.CreateMultiBackend([]interfaces.StorageBackendLocation{"ftp://invalid"})
	assert.Error(t, err)
}

// failingBackend always errors, to exercise multi-backend fallback.
type failingBackend struct{}

func (f *failingBackend) Fetch(ctx context.Context, id interfaces.ContentID, ct interfaces.ContentType) ([]byte, error) {
	return nil, errors.New("backend down")
}

func (f *failingBackend) Store(ctx context.Context, data []byte, ct interfaces.ContentType) (interfaces.ContentID, error) {
	return interfaces.ContentID{}, errors.New("backend down")
}

func (f *failingBackend) Available(ctx context.Context) bool { return true }
func (f *failingBackend) Name() string                       { return "failing" }
func (f *failingBackend) LocationURI() string                { return "failing://" }

func TestMultiBackendFallsThrough(t *testing.T) {
	ctx := context.Background()
	healthy := NewMemoryBackend(testLogger())
	m := NewMultiStorageBackend([]interfaces.StorageBackend{&failingBackend{}, healthy}, testLogger())

	doc := []byte("content")
	id, err := m.Store(ctx, doc, interfaces.MetadataType)
	require.NoError(t, err)

	got, err := m.Fetch(ctx, id, interfaces.MetadataType)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	// Content stored only in the second backend is still served.
	direct, err := healthy.Fetch(ctx, id, interfaces.MetadataType)
	require.NoError(t, err)
	assert.Equal(t, doc, direct)

	broken := NewMultiStorageBackend([]interfaces.StorageBackend{&failingBackend{}}, testLogger())
	_, err = broken.Store(ctx, doc, interfaces.MetadataType)
	assert.Error(t, err)
	_, err = broken.Fetch(ctx, id, interfaces.MetadataType)
	assert.Error(t, err)
}
