package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// NameRegistry owns the name-to-lease mapping and the identity-to-names
// reverse index. Mutations are role-gated: only authorized minters may mint
// or renew, only the current holder may transfer, rebind or burn.
//
// All operations are serialized by the implementation; a caller observes
// either the state before or after a concurrent mutation, never a partial
// one.
type NameRegistry interface {
	// Mint registers a new lease for name, bound to identityID and held by
	// holder, lasting the given number of years. The submitted spelling is
	// kept for display; uniqueness is checked on the normalized form.
	// Fails with ErrNameUnavailable while an active lease exists and with
	// ErrInvalidCaller when minter lacks the minter role.
	Mint(ctx context.Context, minter, holder common.Address, name string, identityID IdentityID, years uint64) (TokenID, error)

	// RenewPeriod extends a lease by years. Extension is additive to the
	// current expiration while the lease is active, and additive to now once
	// expired, so overdue time is not retained. Fails with ErrCannotRenew if
	// the name has since been re-minted under a different token.
	RenewPeriod(ctx context.Context, minter common.Address, id TokenID, years uint64) error

	// Transfer moves the ownership token to a new holder. The bound identity
	// is deliberately untouched; the new holder rebinds it separately with
	// UpdateIdentityID once they hold a linked identity.
	Transfer(ctx context.Context, from, to common.Address, id TokenID) error

	// UpdateIdentityID rebinds the lease's owning identity. Only the current
	// holder may call it; expiration is unchanged.
	UpdateIdentityID(ctx context.Context, holder common.Address, id TokenID, identityID IdentityID) error

	// Burn removes the lease and its reverse-index entry entirely.
	Burn(ctx context.Context, holder common.Address, id TokenID) error

	// GetTokenData returns the lease recorded under the normalized name.
	// Expired leases remain queryable until a new mint overwrites the name;
	// ErrNameNotFound only when no lease at all exists.
	GetTokenData(ctx context.Context, name string) (TokenData, error)

	// IsAvailable reports whether no active lease exists for the name.
	// Expired and absent both count as available.
	IsAvailable(ctx context.Context, name string) (bool, error)

	// HolderOf returns the wallet currently holding the token.
	HolderOf(ctx context.Context, id TokenID) (common.Address, error)

	// NamesOf lists the display names of all leases bound to an identity.
	NamesOf(ctx context.Context, identityID IdentityID) ([]string, error)
}

// IdentityLink resolves wallets to their soulbound identity. Implementations
// must hold the collaborator's invariants: one identity per address, never
// transferable.
type IdentityLink interface {
	// HasIdentity reports whether the address already holds an identity.
	HasIdentity(ctx context.Context, addr common.Address) (bool, error)

	// Mint issues a fresh identity to the address.
	Mint(ctx context.Context, addr common.Address) (IdentityID, error)

	// IdentityOf returns the address's identity, or ErrNoIdentity.
	IdentityOf(ctx context.Context, addr common.Address) (IdentityID, error)
}

// LegacyNameResolver is the fallback lookup against a previous-generation
// name registry, consulted during renewals when the current registry has no
// active lease for the name.
type LegacyNameResolver interface {
	// OwnerOf returns the wallet recorded as owner of the name in the legacy
	// registry, or ErrNameNotFound.
	OwnerOf(ctx context.Context, name string) (common.Address, error)
}
