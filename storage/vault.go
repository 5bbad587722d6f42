package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/hashicorp/vault/api"

	"github.com/soulname/soulstore-backend/interfaces"
)

// VaultBackend stores content in a HashiCorp Vault KV mount. Snapshots of
// the registry carry every lease, so deployments that treat them as
// sensitive can keep them behind Vault's access control instead of an object
// store.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a Vault backend using token authentication.
//
// Parameters:
//   - address: Vault server address, e.g. https://vault.example.com:8200
//   - token: Vault token with read/write on the data path
//   - mountPath: KV mount, e.g. "secret"
//   - dataPath: path within the mount, e.g. "soulstore"
func NewVaultBackend(address, token, mountPath, dataPath string, log *slog.Logger) (*VaultBackend, error) {
	cfg := api.DefaultConfig()
	cfg.Address = address

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

// Fetch retrieves a document from Vault.
func (b *VaultBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	secret, err := b.client.KVv2(b.mountPath).Get(ctx, b.secretPath(id, contentType))
	if err != nil {
		if err == api.ErrSecretNotFound {
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("fetching from vault: %w", err)
	}

	encoded, ok := secret.Data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("vault secret %s has no content field", id)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding vault content: %w", err)
	}

	b.log.Debug("Fetched content from Vault",
		slog.String("contentId", id.String()),
		slog.Int("size", len(data)))

	return data, nil
}

// Store writes a document to Vault under its content ID.
func (b *VaultBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)

	_, err := b.client.KVv2(b.mountPath).Put(ctx, b.secretPath(id, contentType), map[string]interface{}{
		"content": base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("storing to vault: %w", err)
	}

	b.log.Debug("Stored content to Vault",
		slog.String("contentId", id.String()),
		slog.Int("size", len(data)))

	return id, nil
}

// Available reports whether the Vault server answers health checks.
func (b *VaultBackend) Available(ctx context.Context) bool {
	health, err := b.client.Sys().HealthWithContext(ctx)
	return err == nil && health.Initialized && !health.Sealed
}

// Name identifies the backend in logs.
func (b *VaultBackend) Name() string {
	return "vault"
}

// LocationURI returns the backend's URI.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}

func (b *VaultBackend) secretPath(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return fmt.Sprintf("%s/%s/%s", b.dataPath, contentType.String(), id.String())
}
