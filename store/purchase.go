package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/soulname/soulstore-backend/authz"
	"github.com/soulname/soulstore-backend/interfaces"
)

// PurchaseRequest carries one purchase or renewal attempt. NameLength and
// YearsPeriod are the terms the authority signed over; the signature is
// verified against exactly these claimed values.
type PurchaseRequest struct {
	// Caller pays for the purchase.
	Caller common.Address

	// To receives the minted tokens. Usually equal to Caller.
	To common.Address

	// PaymentMethod is the token to settle in, or the native sentinel.
	PaymentMethod common.Address

	// Name is the raw name as submitted, without the registry extension.
	Name string

	NameLength  uint64
	YearsPeriod uint64

	// TokenURI is part of the signed mint terms. Unused on renewals.
	TokenURI string

	// Authority is the claimed signer; it must be in the allow-set and the
	// signature must recover to it.
	Authority common.Address
	Signature []byte

	// NativeValue is the native amount attached to the call. Ignored on token
	// rails.
	NativeValue *big.Int
}

// Receipt reports a settled purchase.
type Receipt struct {
	TokenID    interfaces.TokenID    `json:"tokenId"`
	IdentityID interfaces.IdentityID `json:"identityId"`

	// Quote is what was charged, in payment-method units.
	Quote interfaces.PaymentQuote `json:"quote"`

	// Refund is attached native value in excess of the total. It is never
	// debited from the caller; the field reports what a wallet would see
	// returned. Always zero on token rails.
	Refund *big.Int `json:"refund"`

	PaymentMethod common.Address `json:"paymentMethod"`
}

// GetPriceForMintingNameWithProtocolFee quotes a purchase in the requested
// payment method: the base price from the per-length table, the protocol fee
// per the current fee policy, both converted from stable units.
func (s *Store) GetPriceForMintingNameWithProtocolFee(ctx context.Context, paymentMethod common.Address, nameLength, years uint64) (interfaces.PaymentQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quoteLocked(ctx, paymentMethod, nameLength, years)
}

// PurchaseIdentityAndName mints a fresh identity for the recipient and a name
// bound to it, in one settled purchase. Fails with ErrIdentityAlreadyExists
// when the recipient already holds an identity.
func (s *Store) PurchaseIdentityAndName(ctx context.Context, req PurchaseRequest) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.validateRequestLocked(req)
	if err != nil {
		return nil, err
	}
	if err := s.verifyMintLocked(req); err != nil {
		return nil, err
	}

	hasIdentity, err := s.identity.HasIdentity(ctx, req.To)
	if err != nil {
		return nil, fmt.Errorf("checking identity: %w", err)
	}
	if hasIdentity {
		return nil, interfaces.ErrIdentityAlreadyExists
	}

	available, err := s.registry.IsAvailable(ctx, name.String())
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, interfaces.ErrNameUnavailable
	}

	quote, err := s.quoteLocked(ctx, req.PaymentMethod, req.NameLength, req.YearsPeriod)
	if err != nil {
		return nil, err
	}

	refund, undo, err := s.settleLocked(ctx, req, quote)
	if err != nil {
		return nil, err
	}

	identityID, err := s.identity.Mint(ctx, req.To)
	if err != nil {
		undo(ctx)
		return nil, fmt.Errorf("minting identity: %w", err)
	}

	tokenID, err := s.registry.Mint(ctx, s.self, req.To, req.Name, identityID, req.YearsPeriod)
	if err != nil {
		undo(ctx)
		return nil, err
	}

	s.log.Info("Purchased identity and name",
		slog.String("name", req.Name),
		slog.String("to", req.To.Hex()),
		slog.String("paymentMethod", req.PaymentMethod.Hex()))

	return &Receipt{
		TokenID:       tokenID,
		IdentityID:    identityID,
		Quote:         quote,
		Refund:        refund,
		PaymentMethod: req.PaymentMethod,
	}, nil
}

// PurchaseName mints a name for a recipient that already holds an identity.
// Fails with ErrNoIdentity otherwise.
func (s *Store) PurchaseName(ctx context.Context, req PurchaseRequest) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.validateRequestLocked(req)
	if err != nil {
		return nil, err
	}
	if err := s.verifyMintLocked(req); err != nil {
		return nil, err
	}

	identityID, err := s.identity.IdentityOf(ctx, req.To)
	if err != nil {
		return nil, err
	}

	available, err := s.registry.IsAvailable(ctx, name.String())
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, interfaces.ErrNameUnavailable
	}

	quote, err := s.quoteLocked(ctx, req.PaymentMethod, req.NameLength, req.YearsPeriod)
	if err != nil {
		return nil, err
	}

	refund, undo, err := s.settleLocked(ctx, req, quote)
	if err != nil {
		return nil, err
	}

	tokenID, err := s.registry.Mint(ctx, s.self, req.To, req.Name, identityID, req.YearsPeriod)
	if err != nil {
		undo(ctx)
		return nil, err
	}

	s.log.Info("Purchased name",
		slog.String("name", req.Name),
		slog.String("to", req.To.Hex()),
		slog.String("paymentMethod", req.PaymentMethod.Hex()))

	return &Receipt{
		TokenID:       tokenID,
		IdentityID:    identityID,
		Quote:         quote,
		Refund:        refund,
		PaymentMethod: req.PaymentMethod,
	}, nil
}

// PurchaseNameRenewal extends an existing lease. When the current registry has
// never seen the name, the legacy registry is consulted: a legacy name owned
// by the recipient migrates into the current registry as a fresh lease, and a
// legacy name owned by anyone else fails with ErrInvalidToAddress.
func (s *Store) PurchaseNameRenewal(ctx context.Context, req PurchaseRequest) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.validateRequestLocked(req)
	if err != nil {
		return nil, err
	}
	if err := s.verifyRenewalLocked(req); err != nil {
		return nil, err
	}

	data, err := s.registry.GetTokenData(ctx, name.String())
	switch {
	case err == nil:
		return s.renewCurrentLocked(ctx, req, data)
	case errors.Is(err, interfaces.ErrNameNotFound):
		return s.renewLegacyLocked(ctx, req, name)
	default:
		return nil, err
	}
}

func (s *Store) renewCurrentLocked(ctx context.Context, req PurchaseRequest, data interfaces.TokenData) (*Receipt, error) {
	quote, err := s.quoteLocked(ctx, req.PaymentMethod, req.NameLength, req.YearsPeriod)
	if err != nil {
		return nil, err
	}

	refund, undo, err := s.settleLocked(ctx, req, quote)
	if err != nil {
		return nil, err
	}

	if err := s.registry.RenewPeriod(ctx, s.self, data.TokenID, req.YearsPeriod); err != nil {
		undo(ctx)
		return nil, err
	}

	s.log.Info("Renewed name",
		slog.String("name", req.Name),
		slog.String("to", req.To.Hex()),
		slog.String("paymentMethod", req.PaymentMethod.Hex()))

	return &Receipt{
		TokenID:       data.TokenID,
		IdentityID:    data.IdentityID,
		Quote:         quote,
		Refund:        refund,
		PaymentMethod: req.PaymentMethod,
	}, nil
}

// renewLegacyLocked handles renewal of a name the current registry has never
// seen. The legacy owner keeps the name: renewal re-mints it here, bound to
// the owner's identity.
func (s *Store) renewLegacyLocked(ctx context.Context, req PurchaseRequest, name interfaces.Name) (*Receipt, error) {
	if s.legacy == nil {
		return nil, interfaces.ErrNameNotFound
	}

	owner, err := s.legacy.OwnerOf(ctx, name.String())
	if err != nil {
		return nil, err
	}
	if owner != req.To && owner != req.Caller {
		return nil, interfaces.ErrInvalidToAddress
	}

	identityID, err := s.identity.IdentityOf(ctx, owner)
	if err != nil {
		return nil, err
	}

	quote, err := s.quoteLocked(ctx, req.PaymentMethod, req.NameLength, req.YearsPeriod)
	if err != nil {
		return nil, err
	}

	refund, undo, err := s.settleLocked(ctx, req, quote)
	if err != nil {
		return nil, err
	}

	tokenID, err := s.registry.Mint(ctx, s.self, owner, req.Name, identityID, req.YearsPeriod)
	if err != nil {
		undo(ctx)
		return nil, err
	}

	s.log.Info("Migrated legacy name on renewal",
		slog.String("name", req.Name),
		slog.String("owner", owner.Hex()),
		slog.String("paymentMethod", req.PaymentMethod.Hex()))

	return &Receipt{
		TokenID:       tokenID,
		IdentityID:    identityID,
		Quote:         quote,
		Refund:        refund,
		PaymentMethod: req.PaymentMethod,
	}, nil
}

func (s *Store) validateRequestLocked(req PurchaseRequest) (interfaces.Name, error) {
	if req.To == (common.Address{}) {
		return "", interfaces.ErrInvalidToAddress
	}
	if req.YearsPeriod == 0 {
		return "", errors.New("renewal period must be at least one year")
	}
	if !s.methodEnabledLocked(req.PaymentMethod) {
		return "", interfaces.ErrInvalidPaymentMethod
	}

	name, err := interfaces.NewName(req.Name)
	if err != nil {
		return "", fmt.Errorf("invalid name: %w", err)
	}
	return name, nil
}

func (s *Store) verifyMintLocked(req PurchaseRequest) error {
	if !s.authorities[req.Authority] {
		return interfaces.ErrNotAuthorized
	}

	recovered, err := authz.RecoverMint(s.domain, authz.MintPayload{
		To:          req.To,
		Name:        req.Name,
		NameLength:  req.NameLength,
		YearsPeriod: req.YearsPeriod,
		TokenURI:    req.TokenURI,
	}, req.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrInvalidSignature, err)
	}
	if recovered != req.Authority {
		return interfaces.ErrInvalidSignature
	}
	return nil
}

func (s *Store) verifyRenewalLocked(req PurchaseRequest) error {
	if !s.authorities[req.Authority] {
		return interfaces.ErrNotAuthorized
	}

	recovered, err := authz.RecoverRenewal(s.domain, authz.RenewalPayload{
		To:          req.To,
		Name:        req.Name,
		NameLength:  req.NameLength,
		YearsPeriod: req.YearsPeriod,
	}, req.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrInvalidSignature, err)
	}
	if recovered != req.Authority {
		return interfaces.ErrInvalidSignature
	}
	return nil
}

// quoteLocked computes the stable-denominated price and fee for the claimed
// terms, then converts both to the payment method through the oracle.
func (s *Store) quoteLocked(ctx context.Context, paymentMethod common.Address, nameLength, years uint64) (interfaces.PaymentQuote, error) {
	if !s.methodEnabledLocked(paymentMethod) {
		return interfaces.PaymentQuote{}, interfaces.ErrInvalidPaymentMethod
	}

	price := s.prices.PriceFor(nameLength, years)
	fee := new(big.Int)

	if s.fees.ProtocolFeePercentSub > 0 {
		discount := new(big.Int).Mul(price, new(big.Int).SetUint64(s.fees.ProtocolFeePercentSub))
		discount.Div(discount, big.NewInt(100))
		price.Sub(price, discount)
	} else {
		if s.fees.ProtocolFeePercent > 0 {
			fee.Mul(price, new(big.Int).SetUint64(s.fees.ProtocolFeePercent))
			fee.Div(fee, big.NewInt(100))
		}
		// The flat fee is denominated in stable units, so the comparison
		// happens before any oracle conversion.
		if s.fees.ProtocolFeeAmount != nil && s.fees.ProtocolFeeAmount.Cmp(fee) > 0 {
			fee.Set(s.fees.ProtocolFeeAmount)
		}
	}

	priceOut, err := s.oracle.Quote(ctx, paymentMethod, price)
	if err != nil {
		return interfaces.PaymentQuote{}, fmt.Errorf("quoting price: %w", err)
	}

	feeOut := new(big.Int)
	if fee.Sign() > 0 {
		feeOut, err = s.oracle.Quote(ctx, paymentMethod, fee)
		if err != nil {
			return interfaces.PaymentQuote{}, fmt.Errorf("quoting protocol fee: %w", err)
		}
	}

	return interfaces.PaymentQuote{Price: priceOut, ProtocolFee: feeOut}, nil
}

// settleLocked collects the quoted amounts from the caller. On the native
// rail the attached value must cover the total and only the total is debited;
// the excess is reported back as refund. On token rails the storefront pulls
// from the caller's allowance.
//
// The returned undo reverses the collected legs, for when a mint fails after
// payment.
func (s *Store) settleLocked(ctx context.Context, req PurchaseRequest, quote interfaces.PaymentQuote) (*big.Int, func(context.Context), error) {
	var legs []paymentLeg

	undo := func(ctx context.Context) {
		for i := len(legs) - 1; i >= 0; i-- {
			leg := legs[i]
			if err := s.ledger.Transfer(ctx, req.PaymentMethod, leg.to, req.Caller, leg.amount); err != nil {
				s.log.Error("Failed to refund payment leg",
					slog.String("receiver", leg.to.Hex()),
					slog.String("err", err.Error()))
			}
		}
	}

	refund := new(big.Int)
	if interfaces.IsNativePaymentMethod(req.PaymentMethod) {
		attached := req.NativeValue
		if attached == nil {
			attached = new(big.Int)
		}
		total := quote.Total()
		if attached.Cmp(total) < 0 {
			return nil, nil, interfaces.ErrInsufficientEthAmount
		}
		refund.Sub(attached, total)

		if err := s.collectLocked(ctx, req, quote, &legs, true); err != nil {
			undo(ctx)
			return nil, nil, err
		}
		return refund, undo, nil
	}

	if err := s.collectLocked(ctx, req, quote, &legs, false); err != nil {
		undo(ctx)
		return nil, nil, err
	}
	return refund, undo, nil
}

type paymentLeg struct {
	to     common.Address
	amount *big.Int
}

func (s *Store) collectLocked(ctx context.Context, req PurchaseRequest, quote interfaces.PaymentQuote, legs *[]paymentLeg, native bool) error {
	transfer := func(to common.Address, amount *big.Int) error {
		if amount.Sign() == 0 {
			return nil
		}
		var err error
		if native {
			err = s.ledger.Transfer(ctx, req.PaymentMethod, req.Caller, to, amount)
		} else {
			err = s.ledger.TransferFrom(ctx, req.PaymentMethod, s.self, req.Caller, to, amount)
		}
		if err != nil {
			return err
		}
		*legs = append(*legs, paymentLeg{to: to, amount: amount})
		return nil
	}

	if err := transfer(s.fees.ProjectFeeReceiver, quote.Price); err != nil {
		return err
	}
	return transfer(s.fees.ProtocolFeeReceiver, quote.ProtocolFee)
}
