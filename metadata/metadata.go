// Package metadata builds token metadata: the tokenURI endpoint URLs and the
// JSON documents they resolve to, published through the storage backends.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/soulname/soulstore-backend/interfaces"
)

// TokenKind selects the per-contract path segment of a tokenURI.
type TokenKind string

// The token kinds served by the metadata endpoint. One deployment hosts
// metadata for the whole token suite, one path segment per contract.
const (
	KindIdentity     TokenKind = "identity"
	KindName         TokenKind = "name"
	KindCreditScore  TokenKind = "credit-score"
	KindGreen        TokenKind = "green"
	Kind2FA          TokenKind = "2fa"
	KindCreditReport TokenKind = "credit-report"
)

// Document is the metadata JSON served for a name token.
type Document struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ExternalURL string `json:"external_url,omitempty"`
	Attributes  []Attribute `json:"attributes"`
}

// Attribute is one trait entry in a metadata document.
type Attribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// Service builds tokenURIs and publishes metadata documents.
type Service struct {
	baseURI *url.URL
	backend interfaces.StorageBackend
	log     *slog.Logger
}

// NewService creates a metadata service rooted at baseURI.
func NewService(baseURI string, backend interfaces.StorageBackend, log *slog.Logger) (*Service, error) {
	parsed, err := url.Parse(baseURI)
	if err != nil {
		return nil, fmt.Errorf("parsing base URI: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		baseURI: parsed,
		backend: backend,
		log:     log,
	}, nil
}

// TokenURI returns the percent-encoded metadata URL for a token.
func (s *Service) TokenURI(kind TokenKind, id interfaces.TokenID) string {
	return s.baseURI.JoinPath(string(kind), strconv.FormatUint(uint64(id), 10)).String()
}

// PublishName renders and stores the metadata document for a name lease,
// returning the stored document's content ID.
func (s *Service) PublishName(ctx context.Context, data interfaces.TokenData) (interfaces.ContentID, error) {
	doc := Document{
		Name:        data.DisplayName,
		Description: fmt.Sprintf("%s is a soul name.", data.DisplayName),
		ExternalURL: s.TokenURI(KindName, data.TokenID),
		Attributes: []Attribute{
			{TraitType: "identity id", Value: uint64(data.IdentityID)},
			{TraitType: "expiration", Value: data.ExpirationTime.Unix()},
		},
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("serializing metadata: %w", err)
	}

	id, err := s.backend.Store(ctx, raw, interfaces.MetadataType)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("storing metadata: %w", err)
	}

	s.log.Debug("Published name metadata",
		slog.String("name", data.DisplayName),
		slog.String("contentId", id.String()))

	return id, nil
}

// FetchDocument retrieves a previously published metadata document.
func (s *Service) FetchDocument(ctx context.Context, id interfaces.ContentID) (*Document, error) {
	raw, err := s.backend.Fetch(ctx, id, interfaces.MetadataType)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing metadata document %s: %w", id, err)
	}
	return &doc, nil
}
