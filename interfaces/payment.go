package interfaces

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativePaymentMethod is the reserved sentinel denoting payment in the
// chain's native currency rather than a token.
var NativePaymentMethod = common.Address{}

// IsNativePaymentMethod reports whether the payment method is the native
// sentinel.
func IsNativePaymentMethod(token common.Address) bool {
	return token == NativePaymentMethod
}

// PaymentLedger is the settlement collaborator: a trusted oracle for balance
// transfer, modeling the chain's native and token rails. Amounts are always
// in the smallest unit of the given token; token errors (insufficient
// balance, insufficient allowance) propagate to the purchase verbatim.
type PaymentLedger interface {
	// BalanceOf returns the holder's balance for the token, where the native
	// sentinel selects the native balance.
	BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error)

	// Transfer moves amount from the caller's own balance to the recipient.
	Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error

	// TransferFrom pulls amount from owner to recipient on behalf of
	// spender, consuming spender's allowance. Native transfers never use
	// allowances and must go through Transfer.
	TransferFrom(ctx context.Context, token, spender, owner, to common.Address, amount *big.Int) error

	// Allowance returns the amount spender may still pull from owner.
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// PriceOracle converts amounts denominated in the stable reference currency
// into the requested payment token. The storefront injects one rather than
// embedding a DEX client, so the core stays testable with deterministic
// quotes.
type PriceOracle interface {
	// Quote returns the amount of token worth stableAmount of the reference
	// currency. Stable-to-stable is the identity.
	Quote(ctx context.Context, token common.Address, stableAmount *big.Int) (*big.Int, error)
}

// PaymentQuote is computed per purchase request, in the units of the
// requested payment token.
type PaymentQuote struct {
	// Price is the base registration price after any subtractive discount.
	Price *big.Int `json:"price"`

	// ProtocolFee is the fee charged on top of Price; zero in percentSub
	// mode.
	ProtocolFee *big.Int `json:"protocolFee"`
}

// Total is price plus protocol fee.
func (q PaymentQuote) Total() *big.Int {
	return new(big.Int).Add(q.Price, q.ProtocolFee)
}
