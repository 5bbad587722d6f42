package interfaces

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
)

// YearSeconds is the length of one lease year. Leases are priced and extended
// in whole years of 365 days; no leap handling.
const YearSeconds = 365 * 24 * 60 * 60

// YearsDuration converts a whole number of lease years to a duration.
func YearsDuration(years uint64) time.Duration {
	return time.Duration(years) * YearSeconds * time.Second
}

// MaxNameLength bounds registered names. The per-length price table only
// distinguishes lengths 1 through 4; everything longer shares the default
// price, but names still have to fit in token metadata.
const MaxNameLength = 64

// Name is a normalized (case-folded) registered name. Uniqueness and all
// registry lookups operate on this form; the originally submitted spelling is
// kept separately on the lease for display.
type Name string

// NewName validates and normalizes a raw name. Normalization is plain
// lower-casing so that "Alice" and "alice" contend for the same lease.
func NewName(raw string) (Name, error) {
	if raw == "" {
		return "", errors.New("empty name")
	}
	if len(raw) > MaxNameLength {
		return "", fmt.Errorf("name exceeds %d bytes", MaxNameLength)
	}
	for _, r := range raw {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", fmt.Errorf("name contains whitespace or control character %q", r)
		}
	}
	return Name(strings.ToLower(raw)), nil
}

// String returns the normalized form.
func (n Name) String() string {
	return string(n)
}

// TokenID identifies one ownership record in the registry. IDs are monotonic
// and never reused, so a re-minted name always gets a fresh TokenID.
type TokenID uint64

// IdentityID is the unique identifier issued by the identity collaborator.
// It is bound to a wallet at issuance and never transferred.
type IdentityID uint64

// NameLease is one registered name: the registry's unit of state.
type NameLease struct {
	// Name is the normalized lookup key.
	Name Name `json:"name"`

	// DisplayName is the submitted spelling plus the registry's extension
	// suffix, as returned to callers and rendered in metadata.
	DisplayName string `json:"displayName"`

	// OwnerIdentityID is the identity currently bound to the lease. It is
	// rebindable after a token transfer and deliberately not a wallet address.
	OwnerIdentityID IdentityID `json:"ownerIdentityId"`

	// Holder is the wallet currently holding the ownership token. Transfers
	// move Holder without touching OwnerIdentityID.
	Holder common.Address `json:"holder"`

	// ExpirationTime is the absolute instant the lease stops being active.
	ExpirationTime time.Time `json:"expirationTime"`

	// TokenID is the ownership record behind this lease.
	TokenID TokenID `json:"tokenId"`
}

// Active reports whether the lease is live at the given instant. Expiry is
// evaluated lazily from the stored timestamp; there is no stored state flag
// to go stale.
func (l NameLease) Active(now time.Time) bool {
	return now.Before(l.ExpirationTime)
}

// TokenData is the read-model returned for name lookups. Expired leases stay
// queryable until a new mint overwrites the name.
type TokenData struct {
	DisplayName    string     `json:"displayName"`
	IdentityID     IdentityID `json:"identityId"`
	TokenID        TokenID    `json:"tokenId"`
	ExpirationTime time.Time  `json:"expirationTime"`
	Active         bool       `json:"active"`
}

// Clock supplies the current time. Components take a Clock so lease expiry
// can be driven deterministically in tests; nil means time.Now.
type Clock func() time.Time
