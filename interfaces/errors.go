package interfaces

import "errors"

// Registry errors. Every rejection is a terminal, atomic abort for that
// attempt: no partial state change survives, and the caller must resubmit a
// corrected request.
var (
	// ErrNameUnavailable is returned when an active lease already exists for
	// the normalized name.
	ErrNameUnavailable = errors.New("name unavailable")

	// ErrNameNotFound is returned when no lease, active or expired, exists
	// under the normalized name.
	ErrNameNotFound = errors.New("name not found")

	// ErrCannotRenew is returned when a token's name no longer maps back to
	// that token, i.e. someone re-minted the name after it expired.
	ErrCannotRenew = errors.New("cannot renew: name no longer bound to token")

	// ErrInvalidCaller is returned for role-gated registry mutations invoked
	// by a principal without the required role.
	ErrInvalidCaller = errors.New("invalid caller")

	// ErrNotOwner is returned when a holder-gated operation is invoked by a
	// wallet that does not hold the token.
	ErrNotOwner = errors.New("caller does not hold token")

	// ErrTokenNotFound is returned for operations on a burned or never-minted
	// token ID.
	ErrTokenNotFound = errors.New("token not found")
)

// Storefront errors.
var (
	// ErrInvalidPaymentMethod is returned when the payment token is neither
	// the native sentinel nor an enabled payment method.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrInsufficientEthAmount is returned when a native-currency purchase
	// offers less than price plus protocol fee.
	ErrInsufficientEthAmount = errors.New("insufficient native amount")

	// ErrInvalidSignature is returned when the signature does not recover to
	// the claimed authority over the typed payload.
	ErrInvalidSignature = errors.New("invalid authority signature")

	// ErrNotAuthorized is returned when the recovered signer is valid but not
	// in the authority allow-set.
	ErrNotAuthorized = errors.New("signer not an authority")

	// ErrInvalidToAddress is returned on renewal when the name resolves (via
	// the legacy registry fallback) to an owner other than the requested one.
	ErrInvalidToAddress = errors.New("name owned by a different address")

	// ErrIdentityAlreadyExists is returned when a combined identity-and-name
	// purchase is attempted by a wallet that already holds an identity.
	ErrIdentityAlreadyExists = errors.New("address already holds an identity")
)

// Identity errors.
var (
	// ErrNoIdentity is returned when resolving the identity of a wallet that
	// holds none.
	ErrNoIdentity = errors.New("address holds no identity")
)

// Ledger errors, shaped like the token errors a chain would surface.
var (
	// ErrInsufficientBalance is returned when a transfer exceeds the payer's
	// balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance is returned when a pull transfer exceeds the
	// spender's approved allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrUnknownToken is returned for transfers in a token the ledger does
	// not track.
	ErrUnknownToken = errors.New("unknown token")
)

// Storage errors.
var (
	// ErrContentNotFound indicates the requested content does not exist in
	// the backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable indicates the storage backend cannot be reached.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI indicates a malformed storage backend location.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)
