// Package pricing implements the price-quote collaborator converting amounts
// in the stable reference currency into the requested payment token.
//
// FixedOracle serves deterministic config-supplied rates; RouterOracle asks a
// deployed swap router. The storefront only sees the Quote interface.
package pricing

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Rate converts stable units into token units as amount*Num/Den. Both sides
// are in the smallest unit of their currency, so decimals differences fold
// into the ratio: with a 6-decimal stable and an 18-decimal token trading at
// 2000 stable per token, Num/Den = 1e18/(2000*1e6).
type Rate struct {
	Num *big.Int
	Den *big.Int
}

// FixedOracle quotes from a static rate table.
type FixedOracle struct {
	mu     sync.RWMutex
	stable common.Address
	rates  map[common.Address]Rate
}

// NewFixedOracle creates an oracle quoting the given rates. Quotes for the
// stable currency itself are the identity.
func NewFixedOracle(stable common.Address, rates map[common.Address]Rate) *FixedOracle {
	copied := make(map[common.Address]Rate, len(rates))
	for token, rate := range rates {
		copied[token] = rate
	}
	return &FixedOracle{stable: stable, rates: copied}
}

// SetRate installs or replaces the rate for a token.
func (o *FixedOracle) SetRate(token common.Address, rate Rate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rates[token] = rate
}

// Quote converts stableAmount into token units.
func (o *FixedOracle) Quote(ctx context.Context, token common.Address, stableAmount *big.Int) (*big.Int, error) {
	if token == o.stable {
		return new(big.Int).Set(stableAmount), nil
	}

	o.mu.RLock()
	rate, ok := o.rates[token]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no rate configured for token %s", token.Hex())
	}
	if rate.Den == nil || rate.Den.Sign() == 0 {
		return nil, fmt.Errorf("zero-denominator rate for token %s", token.Hex())
	}

	out := new(big.Int).Mul(stableAmount, rate.Num)
	return out.Div(out, rate.Den), nil
}
