package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/soulname/soulstore-backend/interfaces"
)

// snapshot is the serialized registry state. The name and identity indexes
// are rebuilt on restore; only the token table and counter are persisted.
type snapshot struct {
	NextToken interfaces.TokenID      `json:"nextToken"`
	Leases    []interfaces.NameLease  `json:"leases"`
	ByName    map[string]interfaces.TokenID `json:"byName"`
}

// Snapshot serializes the registry and stores it through the backend,
// returning the content ID of the stored snapshot.
func (r *Registry) Snapshot(ctx context.Context, backend interfaces.StorageBackend) (interfaces.ContentID, error) {
	r.mu.RLock()
	snap := snapshot{
		NextToken: r.nextToken,
		Leases:    make([]interfaces.NameLease, 0, len(r.byToken)),
		ByName:    make(map[string]interfaces.TokenID, len(r.byName)),
	}
	for _, lease := range r.byToken {
		snap.Leases = append(snap.Leases, *lease)
	}
	for name, id := range r.byName {
		snap.ByName[name.String()] = id
	}
	r.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("serializing snapshot: %w", err)
	}

	id, err := backend.Store(ctx, data, interfaces.SnapshotType)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("storing snapshot: %w", err)
	}

	r.log.Info("Stored registry snapshot",
		slog.String("contentId", id.String()),
		slog.Int("leases", len(snap.Leases)))

	return id, nil
}

// Restore replaces the registry state with a previously stored snapshot.
func (r *Registry) Restore(ctx context.Context, backend interfaces.StorageBackend, id interfaces.ContentID) error {
	data, err := backend.Fetch(ctx, id, interfaces.SnapshotType)
	if err != nil {
		return fmt.Errorf("fetching snapshot %s: %w", id, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parsing snapshot %s: %w", id, err)
	}

	byToken := make(map[interfaces.TokenID]*interfaces.NameLease, len(snap.Leases))
	byIdentity := make(map[interfaces.IdentityID]map[interfaces.TokenID]struct{})
	for i := range snap.Leases {
		lease := snap.Leases[i]
		byToken[lease.TokenID] = &lease
	}
	byName := make(map[interfaces.Name]interfaces.TokenID, len(snap.ByName))
	for name, tokenID := range snap.ByName {
		if _, ok := byToken[tokenID]; !ok {
			return fmt.Errorf("snapshot %s: name %q references unknown token %d", id, name, tokenID)
		}
		byName[interfaces.Name(name)] = tokenID
	}

	r.mu.Lock()
	r.byToken = byToken
	r.byName = byName
	r.byIdentity = byIdentity
	for tokenID, lease := range byToken {
		r.indexIdentity(lease.OwnerIdentityID, tokenID)
	}
	r.nextToken = snap.NextToken
	r.mu.Unlock()

	r.log.Info("Restored registry snapshot",
		slog.String("contentId", id.String()),
		slog.Int("leases", len(snap.Leases)))

	return nil
}
