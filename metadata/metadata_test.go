package metadata

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulname/soulstore-backend/interfaces"
	"github.com/soulname/soulstore-backend/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewService("https://metadata.soulname.example/api", storage.NewMemoryBackend(log), log)
	require.NoError(t, err)
	return s
}

func TestTokenURIPaths(t *testing.T) {
	s := newTestService(t)

	assert.Equal(t, "https://metadata.soulname.example/api/name/7", s.TokenURI(KindName, 7))
	assert.Equal(t, "https://metadata.soulname.example/api/identity/1", s.TokenURI(KindIdentity, 1))
	assert.Equal(t, "https://metadata.soulname.example/api/credit-score/3", s.TokenURI(KindCreditScore, 3))
	assert.Equal(t, "https://metadata.soulname.example/api/green/4", s.TokenURI(KindGreen, 4))
	assert.Equal(t, "https://metadata.soulname.example/api/2fa/5", s.TokenURI(Kind2FA, 5))
	assert.Equal(t, "https://metadata.soulname.example/api/credit-report/6", s.TokenURI(KindCreditReport, 6))
}

func TestTokenURIPercentEncoding(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewService("https://metadata.soulname.example/base path", storage.NewMemoryBackend(log), log)
	require.NoError(t, err)

	assert.Equal(t, "https://metadata.soulname.example/base%20path/name/1", s.TokenURI(KindName, 1))
}

func TestPublishAndFetchDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	data := interfaces.TokenData{
		DisplayName:    "Alice.soul",
		IdentityID:     7,
		TokenID:        1,
		ExpirationTime: time.Unix(1_750_000_000, 0),
		Active:         true,
	}

	id, err := s.PublishName(ctx, data)
	require.NoError(t, err)

	doc, err := s.FetchDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice.soul", doc.Name)
	assert.Equal(t, "https://metadata.soulname.example/api/name/1", doc.ExternalURL)
	require.Len(t, doc.Attributes, 2)
	assert.Equal(t, "identity id", doc.Attributes[0].TraitType)
	assert.Equal(t, "expiration", doc.Attributes[1].TraitType)
}
