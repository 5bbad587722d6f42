// Package payment implements the settlement collaborator the storefront
// charges against: native-currency balances plus ERC-20-shaped token
// balances and allowances. The ledger is the deterministic stand-in for the
// chain's payment rails; its errors are the token errors a purchase
// propagates.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/soulname/soulstore-backend/interfaces"
)

// MemoryLedger is an in-process interfaces.PaymentLedger. The native
// sentinel is always a known rail; token rails must be registered.
type MemoryLedger struct {
	mu         sync.Mutex
	tokens     map[common.Address]bool
	balances   map[common.Address]map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]map[common.Address]*big.Int
}

// NewMemoryLedger creates a ledger tracking the given tokens in addition to
// the native rail.
func NewMemoryLedger(tokens ...common.Address) *MemoryLedger {
	l := &MemoryLedger{
		tokens:     make(map[common.Address]bool),
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]map[common.Address]*big.Int),
	}
	for _, token := range tokens {
		l.tokens[token] = true
	}
	return l
}

// RegisterToken adds a token rail.
func (l *MemoryLedger) RegisterToken(token common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens[token] = true
}

// Credit adds amount to holder's balance, for funding accounts in tests and
// development deployments.
func (l *MemoryLedger) Credit(token, holder common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkToken(token); err != nil {
		return err
	}
	balance := l.balanceLocked(token, holder)
	balance.Add(balance, amount)
	return nil
}

// BalanceOf returns a copy of the holder's balance.
func (l *MemoryLedger) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkToken(token); err != nil {
		return nil, err
	}
	return new(big.Int).Set(l.balanceLocked(token, holder)), nil
}

// Transfer moves amount from the payer's own balance.
func (l *MemoryLedger) Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkToken(token); err != nil {
		return err
	}
	return l.transferLocked(token, from, to, amount)
}

// Approve lets spender pull up to amount of token from owner, replacing any
// previous allowance.
func (l *MemoryLedger) Approve(token, owner, spender common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkToken(token); err != nil {
		return err
	}
	if interfaces.IsNativePaymentMethod(token) {
		return errors.New("native rail has no allowances")
	}

	owners, ok := l.allowances[token]
	if !ok {
		owners = make(map[common.Address]map[common.Address]*big.Int)
		l.allowances[token] = owners
	}
	spenders, ok := owners[owner]
	if !ok {
		spenders = make(map[common.Address]*big.Int)
		owners[owner] = spenders
	}
	spenders[spender] = new(big.Int).Set(amount)
	return nil
}

// Allowance returns the amount spender may still pull from owner.
func (l *MemoryLedger) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkToken(token); err != nil {
		return nil, err
	}
	return new(big.Int).Set(l.allowanceLocked(token, owner, spender)), nil
}

// TransferFrom pulls amount from owner on behalf of spender, consuming
// allowance. Native transfers never pull.
func (l *MemoryLedger) TransferFrom(ctx context.Context, token, spender, owner, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkToken(token); err != nil {
		return err
	}
	if interfaces.IsNativePaymentMethod(token) {
		return errors.New("native rail has no allowances")
	}

	allowance := l.allowanceLocked(token, owner, spender)
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", interfaces.ErrInsufficientAllowance, allowance, amount)
	}
	if err := l.transferLocked(token, owner, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

func (l *MemoryLedger) checkToken(token common.Address) error {
	if interfaces.IsNativePaymentMethod(token) || l.tokens[token] {
		return nil
	}
	return fmt.Errorf("%w: %s", interfaces.ErrUnknownToken, token.Hex())
}

func (l *MemoryLedger) balanceLocked(token, holder common.Address) *big.Int {
	holders, ok := l.balances[token]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		l.balances[token] = holders
	}
	balance, ok := holders[holder]
	if !ok {
		balance = new(big.Int)
		holders[holder] = balance
	}
	return balance
}

func (l *MemoryLedger) allowanceLocked(token, owner, spender common.Address) *big.Int {
	spenders, ok := l.allowances[token][owner]
	if !ok {
		return new(big.Int)
	}
	allowance, ok := spenders[spender]
	if !ok {
		return new(big.Int)
	}
	return allowance
}

func (l *MemoryLedger) transferLocked(token, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.New("negative transfer amount")
	}

	balance := l.balanceLocked(token, from)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", interfaces.ErrInsufficientBalance, balance, amount)
	}
	balance.Sub(balance, amount)

	dest := l.balanceLocked(token, to)
	dest.Add(dest, amount)
	return nil
}
