// Package registry implements the name-lease state machine: durable ownership
// of the name-to-lease mapping and the identity-to-names reverse index.
//
// A name has at most one active lease at a time. Expiry is evaluated lazily
// from the lease's expiration timestamp, so an expired name is immediately
// mintable by someone else without any background sweep. The name index
// always points at the latest mint; a superseded token keeps its lease data
// (still queryable by token) but can no longer renew.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/soulname/soulstore-backend/interfaces"
)

// Config configures a Registry.
type Config struct {
	// Extension is the display suffix appended to every name, e.g. ".soul".
	Extension string

	// Admin may grant and revoke the minter role and is itself a minter.
	Admin common.Address

	// Clock overrides time.Now, for tests.
	Clock interfaces.Clock

	// Log receives operational logs; defaults to slog.Default.
	Log *slog.Logger
}

// Registry is the in-process implementation of interfaces.NameRegistry.
// All mutations are serialized under one mutex, matching the one-transaction-
// at-a-time model of the ledger this service fronts.
type Registry struct {
	mu sync.RWMutex

	extension string
	admin     common.Address
	minters   map[common.Address]bool
	clock     interfaces.Clock
	log       *slog.Logger

	nextToken  interfaces.TokenID
	byToken    map[interfaces.TokenID]*interfaces.NameLease
	byName     map[interfaces.Name]interfaces.TokenID
	byIdentity map[interfaces.IdentityID]map[interfaces.TokenID]struct{}
}

// New creates an empty registry.
func New(cfg Config) *Registry {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &Registry{
		extension:  cfg.Extension,
		admin:      cfg.Admin,
		minters:    map[common.Address]bool{cfg.Admin: true},
		clock:      clock,
		log:        log,
		nextToken:  1,
		byToken:    make(map[interfaces.TokenID]*interfaces.NameLease),
		byName:     make(map[interfaces.Name]interfaces.TokenID),
		byIdentity: make(map[interfaces.IdentityID]map[interfaces.TokenID]struct{}),
	}
}

// GrantMinterRole authorizes an address to mint and renew. Admin only.
func (r *Registry) GrantMinterRole(caller, minter common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.admin {
		return interfaces.ErrInvalidCaller
	}
	r.minters[minter] = true
	r.log.Info("Granted minter role", slog.String("minter", minter.Hex()))
	return nil
}

// RevokeMinterRole removes the minter role. Admin only; the admin's own role
// cannot be revoked.
func (r *Registry) RevokeMinterRole(caller, minter common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.admin || minter == r.admin {
		return interfaces.ErrInvalidCaller
	}
	delete(r.minters, minter)
	r.log.Info("Revoked minter role", slog.String("minter", minter.Hex()))
	return nil
}

// Mint registers a new lease. See interfaces.NameRegistry.
func (r *Registry) Mint(ctx context.Context, minter, holder common.Address, rawName string, identityID interfaces.IdentityID, years uint64) (interfaces.TokenID, error) {
	name, err := interfaces.NewName(rawName)
	if err != nil {
		return 0, fmt.Errorf("invalid name: %w", err)
	}
	if years == 0 {
		return 0, errors.New("years must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.minters[minter] {
		return 0, interfaces.ErrInvalidCaller
	}

	now := r.clock()
	if prev, ok := r.byName[name]; ok && r.byToken[prev].Active(now) {
		return 0, fmt.Errorf("%w: %s", interfaces.ErrNameUnavailable, name)
	}

	id := r.nextToken
	r.nextToken++

	lease := &interfaces.NameLease{
		Name:            name,
		DisplayName:     rawName + r.extension,
		OwnerIdentityID: identityID,
		Holder:          holder,
		ExpirationTime:  now.Add(interfaces.YearsDuration(years)),
		TokenID:         id,
	}
	r.byToken[id] = lease
	r.byName[name] = id
	r.indexIdentity(identityID, id)

	r.log.Info("Minted name",
		slog.String("name", name.String()),
		slog.Uint64("tokenId", uint64(id)),
		slog.Uint64("identityId", uint64(identityID)),
		slog.Time("expiration", lease.ExpirationTime))

	return id, nil
}

// RenewPeriod extends a lease. Extension is additive to the current
// expiration while active; once expired the new expiration counts from now,
// so overdue time is not retained. Fails with ErrCannotRenew when the name
// has been re-minted under a different token since.
func (r *Registry) RenewPeriod(ctx context.Context, minter common.Address, id interfaces.TokenID, years uint64) error {
	if years == 0 {
		return errors.New("years must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.minters[minter] {
		return interfaces.ErrInvalidCaller
	}

	lease, ok := r.byToken[id]
	if !ok {
		return interfaces.ErrTokenNotFound
	}
	if current, ok := r.byName[lease.Name]; !ok || current != id {
		return fmt.Errorf("%w: %s", interfaces.ErrCannotRenew, lease.Name)
	}

	now := r.clock()
	if lease.Active(now) {
		lease.ExpirationTime = lease.ExpirationTime.Add(interfaces.YearsDuration(years))
	} else {
		lease.ExpirationTime = now.Add(interfaces.YearsDuration(years))
	}

	r.log.Info("Renewed name",
		slog.String("name", lease.Name.String()),
		slog.Uint64("tokenId", uint64(id)),
		slog.Time("expiration", lease.ExpirationTime))

	return nil
}

// Transfer moves the ownership token to a new holder. The bound identity is
// untouched; the new holder rebinds it with UpdateIdentityID.
func (r *Registry) Transfer(ctx context.Context, from, to common.Address, id interfaces.TokenID) error {
	if to == (common.Address{}) {
		return errors.New("transfer to zero address")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lease, ok := r.byToken[id]
	if !ok {
		return interfaces.ErrTokenNotFound
	}
	if lease.Holder != from {
		return interfaces.ErrNotOwner
	}
	lease.Holder = to

	r.log.Info("Transferred name token",
		slog.Uint64("tokenId", uint64(id)),
		slog.String("from", from.Hex()),
		slog.String("to", to.Hex()))

	return nil
}

// UpdateIdentityID rebinds the lease's owning identity. Holder only;
// expiration is unchanged.
func (r *Registry) UpdateIdentityID(ctx context.Context, holder common.Address, id interfaces.TokenID, identityID interfaces.IdentityID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lease, ok := r.byToken[id]
	if !ok {
		return interfaces.ErrTokenNotFound
	}
	if lease.Holder != holder {
		return interfaces.ErrNotOwner
	}

	r.unindexIdentity(lease.OwnerIdentityID, id)
	lease.OwnerIdentityID = identityID
	r.indexIdentity(identityID, id)

	return nil
}

// Burn removes the lease and its reverse-index entry. Holder only.
func (r *Registry) Burn(ctx context.Context, holder common.Address, id interfaces.TokenID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lease, ok := r.byToken[id]
	if !ok {
		return interfaces.ErrTokenNotFound
	}
	if lease.Holder != holder {
		return interfaces.ErrNotOwner
	}

	delete(r.byToken, id)
	if current, ok := r.byName[lease.Name]; ok && current == id {
		delete(r.byName, lease.Name)
	}
	r.unindexIdentity(lease.OwnerIdentityID, id)

	r.log.Info("Burned name token",
		slog.String("name", lease.Name.String()),
		slog.Uint64("tokenId", uint64(id)))

	return nil
}

// GetTokenData returns the lease recorded under the name. Expired leases
// remain queryable until a new mint overwrites the name.
func (r *Registry) GetTokenData(ctx context.Context, rawName string) (interfaces.TokenData, error) {
	name, err := interfaces.NewName(rawName)
	if err != nil {
		return interfaces.TokenData{}, fmt.Errorf("invalid name: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return interfaces.TokenData{}, fmt.Errorf("%w: %s", interfaces.ErrNameNotFound, name)
	}
	lease := r.byToken[id]

	return interfaces.TokenData{
		DisplayName:    lease.DisplayName,
		IdentityID:     lease.OwnerIdentityID,
		TokenID:        lease.TokenID,
		ExpirationTime: lease.ExpirationTime,
		Active:         lease.Active(r.clock()),
	}, nil
}

// IsAvailable reports whether no active lease exists for the name.
func (r *Registry) IsAvailable(ctx context.Context, rawName string) (bool, error) {
	name, err := interfaces.NewName(rawName)
	if err != nil {
		return false, fmt.Errorf("invalid name: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return true, nil
	}
	return !r.byToken[id].Active(r.clock()), nil
}

// HolderOf returns the wallet holding the token.
func (r *Registry) HolderOf(ctx context.Context, id interfaces.TokenID) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lease, ok := r.byToken[id]
	if !ok {
		return common.Address{}, interfaces.ErrTokenNotFound
	}
	return lease.Holder, nil
}

// NamesOf lists display names of all leases bound to an identity, active or
// not.
func (r *Registry) NamesOf(ctx context.Context, identityID interfaces.IdentityID) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byIdentity[identityID]
	names := make([]string, 0, len(ids))
	for id := range ids {
		names = append(names, r.byToken[id].DisplayName)
	}
	return names, nil
}

// ActiveLeases counts currently active leases, for metrics.
func (r *Registry) ActiveLeases() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.clock()
	count := 0
	for _, id := range r.byName {
		if r.byToken[id].Active(now) {
			count++
		}
	}
	return count
}

func (r *Registry) indexIdentity(identityID interfaces.IdentityID, id interfaces.TokenID) {
	tokens, ok := r.byIdentity[identityID]
	if !ok {
		tokens = make(map[interfaces.TokenID]struct{})
		r.byIdentity[identityID] = tokens
	}
	tokens[id] = struct{}{}
}

func (r *Registry) unindexIdentity(identityID interfaces.IdentityID, id interfaces.TokenID) {
	tokens, ok := r.byIdentity[identityID]
	if !ok {
		return
	}
	delete(tokens, id)
	if len(tokens) == 0 {
		delete(r.byIdentity, identityID)
	}
}
