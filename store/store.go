// Package store implements the storefront gating name minting and renewal
// behind authority-signed terms and payment, across multiple currencies.
//
// Every purchase runs under one mutex: the storefront observes and mutates
// registry, identity and ledger state as a single serialized transaction,
// and a failure leaves no partial state behind.
package store

import (
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/soulname/soulstore-backend/authz"
	"github.com/soulname/soulstore-backend/interfaces"
)

// FeeConfig is the protocol-fee policy. Flat amount and additive percent
// combine (the larger applies); the subtractive percent is an alternative
// pricing policy that replaces both when set.
type FeeConfig struct {
	// ProjectFeeReceiver receives the base price of every purchase.
	ProjectFeeReceiver common.Address

	// ProtocolFeeReceiver receives the protocol fee leg, when nonzero.
	ProtocolFeeReceiver common.Address

	// ProtocolFeeAmount is a flat fee in stable units.
	ProtocolFeeAmount *big.Int

	// ProtocolFeePercent is an additive surcharge percent of the base price.
	ProtocolFeePercent uint64

	// ProtocolFeePercentSub, when nonzero, discounts the displayed price by
	// that percent instead of charging a fee.
	ProtocolFeePercentSub uint64
}

// PriceTable is the per-length base price per year, in stable units.
// Lengths one through four are explicit; five and longer share the default.
type PriceTable struct {
	Length1 *big.Int
	Length2 *big.Int
	Length3 *big.Int
	Length4 *big.Int
	Default *big.Int
}

// PriceFor returns the stable-unit base price for a name of the given length
// registered for the given number of years.
func (t PriceTable) PriceFor(nameLength, years uint64) *big.Int {
	var perYear *big.Int
	switch nameLength {
	case 1:
		perYear = t.Length1
	case 2:
		perYear = t.Length2
	case 3:
		perYear = t.Length3
	case 4:
		perYear = t.Length4
	default:
		perYear = t.Default
	}
	if perYear == nil {
		perYear = new(big.Int)
	}
	return new(big.Int).Mul(perYear, new(big.Int).SetUint64(years))
}

// Config wires a storefront.
type Config struct {
	// Domain pins authority signatures to this deployment.
	Domain authz.Domain

	// Admin manages authorities, payment methods and fees.
	Admin common.Address

	// StoreAddress is the storefront's own principal: the minter it presents
	// to the registry and the spender pulling token payments.
	StoreAddress common.Address

	// StableCoin is the reference currency the price table is denominated in.
	StableCoin common.Address

	// PaymentMethods are the initially enabled token rails. The native
	// sentinel is always enabled.
	PaymentMethods []common.Address

	// Authorities is the initial signer allow-set.
	Authorities []common.Address

	Fees   FeeConfig
	Prices PriceTable

	Registry interfaces.NameRegistry
	Identity interfaces.IdentityLink
	Ledger   interfaces.PaymentLedger
	Oracle   interfaces.PriceOracle

	// Legacy is the optional previous-generation registry consulted on
	// renewals; nil disables the fallback.
	Legacy interfaces.LegacyNameResolver

	Log *slog.Logger
}

// Store is the storefront.
type Store struct {
	mu sync.Mutex

	domain   authz.Domain
	admin    common.Address
	self     common.Address
	stable   common.Address
	fees     FeeConfig
	prices   PriceTable
	registry interfaces.NameRegistry
	identity interfaces.IdentityLink
	ledger   interfaces.PaymentLedger
	oracle   interfaces.PriceOracle
	legacy   interfaces.LegacyNameResolver
	log      *slog.Logger

	authorities map[common.Address]bool
	methods     map[common.Address]bool
	methodOrder []common.Address
}

// New creates a storefront from the config.
func New(cfg Config) *Store {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	if cfg.Fees.ProtocolFeePercentSub > 0 && (cfg.Fees.ProtocolFeePercent > 0 || (cfg.Fees.ProtocolFeeAmount != nil && cfg.Fees.ProtocolFeeAmount.Sign() > 0)) {
		log.Warn("Both additive and subtractive protocol fees configured, subtractive mode takes precedence")
	}

	s := &Store{
		domain:      cfg.Domain,
		admin:       cfg.Admin,
		self:        cfg.StoreAddress,
		stable:      cfg.StableCoin,
		fees:        cfg.Fees,
		prices:      cfg.Prices,
		registry:    cfg.Registry,
		identity:    cfg.Identity,
		ledger:      cfg.Ledger,
		oracle:      cfg.Oracle,
		legacy:      cfg.Legacy,
		log:         log,
		authorities: make(map[common.Address]bool),
		methods:     make(map[common.Address]bool),
	}
	for _, authority := range cfg.Authorities {
		s.authorities[authority] = true
	}
	for _, method := range cfg.PaymentMethods {
		s.enableMethodLocked(method)
	}
	return s
}

// Address returns the storefront's own principal address.
func (s *Store) Address() common.Address {
	return s.self
}

// Domain returns the signature domain of this deployment.
func (s *Store) Domain() authz.Domain {
	return s.domain
}

// AddAuthority adds a signer to the authority allow-set. Admin only.
func (s *Store) AddAuthority(caller, authority common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return interfaces.ErrInvalidCaller
	}
	s.authorities[authority] = true
	s.log.Info("Added authority", slog.String("authority", authority.Hex()))
	return nil
}

// RemoveAuthority removes a signer from the allow-set. Admin only.
func (s *Store) RemoveAuthority(caller, authority common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return interfaces.ErrInvalidCaller
	}
	delete(s.authorities, authority)
	s.log.Info("Removed authority", slog.String("authority", authority.Hex()))
	return nil
}

// Authorities lists the current allow-set.
func (s *Store) Authorities() []common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]common.Address, 0, len(s.authorities))
	for authority := range s.authorities {
		out = append(out, authority)
	}
	return out
}

// EnablePaymentMethod enables a token rail. Admin only.
func (s *Store) EnablePaymentMethod(caller, token common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return interfaces.ErrInvalidCaller
	}
	s.enableMethodLocked(token)
	s.log.Info("Enabled payment method", slog.String("token", token.Hex()))
	return nil
}

// DisablePaymentMethod disables a token rail. The native sentinel cannot be
// disabled. Admin only.
func (s *Store) DisablePaymentMethod(caller, token common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return interfaces.ErrInvalidCaller
	}
	if !s.methods[token] {
		return nil
	}
	delete(s.methods, token)
	for i, method := range s.methodOrder {
		if method == token {
			s.methodOrder = append(s.methodOrder[:i], s.methodOrder[i+1:]...)
			break
		}
	}
	s.log.Info("Disabled payment method", slog.String("token", token.Hex()))
	return nil
}

// PaymentMethods lists enabled methods in registration order, the native
// sentinel first.
func (s *Store) PaymentMethods() []common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]common.Address, 0, len(s.methodOrder)+1)
	out = append(out, interfaces.NativePaymentMethod)
	out = append(out, s.methodOrder...)
	return out
}

// SetFees replaces the fee policy. Admin only.
func (s *Store) SetFees(caller common.Address, fees FeeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return interfaces.ErrInvalidCaller
	}
	s.fees = fees
	s.log.Info("Updated fee policy",
		slog.Uint64("percent", fees.ProtocolFeePercent),
		slog.Uint64("percentSub", fees.ProtocolFeePercentSub))
	return nil
}

// Fees returns the current fee policy.
func (s *Store) Fees() FeeConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fees
}

func (s *Store) enableMethodLocked(token common.Address) {
	if interfaces.IsNativePaymentMethod(token) || s.methods[token] {
		return
	}
	s.methods[token] = true
	s.methodOrder = append(s.methodOrder, token)
}

func (s *Store) methodEnabledLocked(token common.Address) bool {
	return interfaces.IsNativePaymentMethod(token) || s.methods[token]
}
