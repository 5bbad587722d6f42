// Package authz implements the authority-signed purchase authorizations.
//
// An authority is an off-chain key trusted to co-sign purchase and renewal
// terms. Payloads are hashed as EIP-712 typed data under the SoulStore
// domain, so signatures produced by any standard typed-data signer verify
// here, and signatures produced here verify against a deployed contract with
// the same domain parameters.
package authz

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// DomainName is the EIP-712 domain name shared by every deployment.
const DomainName = "SoulStore"

// SignatureLength is the expected r||s||v signature length.
const SignatureLength = 65

// Domain pins signatures to one deployment: contract version, chain and
// verifying contract address all participate in the digest.
type Domain struct {
	Version           string
	ChainID           int64
	VerifyingContract common.Address
}

// MintPayload is the typed payload an authority signs to authorize minting a
// name (with or without a fresh identity).
type MintPayload struct {
	To          common.Address
	Name        string
	NameLength  uint64
	YearsPeriod uint64
	TokenURI    string
}

// RenewalPayload is the typed payload authorizing a renewal. It carries no
// tokenURI; the token already has one.
type RenewalPayload struct {
	To          common.Address
	Name        string
	NameLength  uint64
	YearsPeriod uint64
}

var domainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

func (d Domain) typedDomain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              DomainName,
		Version:           d.Version,
		ChainId:           math.NewHexOrDecimal256(d.ChainID),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

// HashMint returns the typed-data digest of a mint authorization.
func HashMint(d Domain, p MintPayload) ([]byte, error) {
	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainType,
			"MintSoulName": {
				{Name: "to", Type: "address"},
				{Name: "name", Type: "string"},
				{Name: "nameLength", Type: "uint256"},
				{Name: "yearsPeriod", Type: "uint256"},
				{Name: "tokenURI", Type: "string"},
			},
		},
		PrimaryType: "MintSoulName",
		Domain:      d.typedDomain(),
		Message: apitypes.TypedDataMessage{
			"to":          p.To.Hex(),
			"name":        p.Name,
			"nameLength":  math.NewHexOrDecimal256(int64(p.NameLength)),
			"yearsPeriod": math.NewHexOrDecimal256(int64(p.YearsPeriod)),
			"tokenURI":    p.TokenURI,
		},
	}

	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, fmt.Errorf("hashing mint payload: %w", err)
	}
	return hash, nil
}

// HashRenewal returns the typed-data digest of a renewal authorization.
func HashRenewal(d Domain, p RenewalPayload) ([]byte, error) {
	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainType,
			"RenewSoulName": {
				{Name: "to", Type: "address"},
				{Name: "name", Type: "string"},
				{Name: "nameLength", Type: "uint256"},
				{Name: "yearsPeriod", Type: "uint256"},
			},
		},
		PrimaryType: "RenewSoulName",
		Domain:      d.typedDomain(),
		Message: apitypes.TypedDataMessage{
			"to":          p.To.Hex(),
			"name":        p.Name,
			"nameLength":  math.NewHexOrDecimal256(int64(p.NameLength)),
			"yearsPeriod": math.NewHexOrDecimal256(int64(p.YearsPeriod)),
		},
	}

	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, fmt.Errorf("hashing renewal payload: %w", err)
	}
	return hash, nil
}

// SignMint signs a mint authorization, returning a 65-byte signature with V
// in the Ethereum convention (27/28).
func SignMint(d Domain, p MintPayload, key *ecdsa.PrivateKey) ([]byte, error) {
	hash, err := HashMint(d, p)
	if err != nil {
		return nil, err
	}
	return signDigest(hash, key)
}

// SignRenewal signs a renewal authorization.
func SignRenewal(d Domain, p RenewalPayload, key *ecdsa.PrivateKey) ([]byte, error) {
	hash, err := HashRenewal(d, p)
	if err != nil {
		return nil, err
	}
	return signDigest(hash, key)
}

// RecoverMint recovers the signer of a mint authorization.
func RecoverMint(d Domain, p MintPayload, sig []byte) (common.Address, error) {
	hash, err := HashMint(d, p)
	if err != nil {
		return common.Address{}, err
	}
	return recoverDigest(hash, sig)
}

// RecoverRenewal recovers the signer of a renewal authorization.
func RecoverRenewal(d Domain, p RenewalPayload, sig []byte) (common.Address, error) {
	hash, err := HashRenewal(d, p)
	if err != nil {
		return common.Address{}, err
	}
	return recoverDigest(hash, sig)
}

func signDigest(hash []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

func recoverDigest(hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, errors.New("signature must be 65 bytes")
	}

	// Accept both the raw 0/1 recovery id and the Ethereum 27/28 convention.
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	pubkey, err := crypto.SigToPub(hash, normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("recovering signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}
