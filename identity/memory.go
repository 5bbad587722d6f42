// Package identity implements the IdentityLink collaborator: resolution of
// wallet addresses to their soulbound identity identifier.
//
// Two implementations are provided. MemoryIdentity issues identities locally
// and is the authoritative issuer for self-contained deployments and tests.
// OnchainIdentity reads an already-deployed identity token contract.
package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/soulname/soulstore-backend/interfaces"
)

// MemoryIdentity is an in-process identity issuer. It holds the
// collaborator's invariants: one identity per address, never transferable,
// identifiers never reused.
type MemoryIdentity struct {
	mu     sync.RWMutex
	nextID interfaces.IdentityID
	byAddr map[common.Address]interfaces.IdentityID
}

// NewMemoryIdentity creates an empty issuer.
func NewMemoryIdentity() *MemoryIdentity {
	return &MemoryIdentity{
		nextID: 1,
		byAddr: make(map[common.Address]interfaces.IdentityID),
	}
}

// HasIdentity reports whether the address already holds an identity.
func (m *MemoryIdentity) HasIdentity(ctx context.Context, addr common.Address) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byAddr[addr]
	return ok, nil
}

// Mint issues a fresh identity. An address can hold at most one.
func (m *MemoryIdentity) Mint(ctx context.Context, addr common.Address) (interfaces.IdentityID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byAddr[addr]; ok {
		return 0, fmt.Errorf("%w: %s", interfaces.ErrIdentityAlreadyExists, addr.Hex())
	}

	id := m.nextID
	m.nextID++
	m.byAddr[addr] = id
	return id, nil
}

// IdentityOf resolves the address's identity.
func (m *MemoryIdentity) IdentityOf(ctx context.Context, addr common.Address) (interfaces.IdentityID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byAddr[addr]
	if !ok {
		return 0, fmt.Errorf("%w: %s", interfaces.ErrNoIdentity, addr.Hex())
	}
	return id, nil
}
