package identity

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/soulname/soulstore-backend/interfaces"
)

// identityABI is the read surface of the deployed soulbound identity token.
const identityABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"tokenOfOwner","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// ContractCaller is the slice of ethclient.Client the on-chain client needs.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// OnchainIdentity resolves identities against a deployed identity token
// contract. It is read-only: issuance happens through the contract's own
// minting path, so Mint always fails here and deployments using it expose
// only the name purchase flows that require a pre-existing identity.
type OnchainIdentity struct {
	client  ContractCaller
	address common.Address
	abi     abi.ABI
}

// NewOnchainIdentity creates a client for the identity contract at address.
func NewOnchainIdentity(client ContractCaller, address common.Address) (*OnchainIdentity, error) {
	parsed, err := abi.JSON(strings.NewReader(identityABI))
	if err != nil {
		return nil, fmt.Errorf("parsing identity ABI: %w", err)
	}

	return &OnchainIdentity{
		client:  client,
		address: address,
		abi:     parsed,
	}, nil
}

// HasIdentity reports whether the address holds an identity token.
func (c *OnchainIdentity) HasIdentity(ctx context.Context, addr common.Address) (bool, error) {
	balance, err := c.callUint(ctx, "balanceOf", addr)
	if err != nil {
		return false, err
	}
	return balance.Sign() > 0, nil
}

// Mint is unsupported on the read-only client.
func (c *OnchainIdentity) Mint(ctx context.Context, addr common.Address) (interfaces.IdentityID, error) {
	return 0, errors.New("onchain identity client is read-only: mint through the identity contract")
}

// IdentityOf resolves the address's identity token ID.
func (c *OnchainIdentity) IdentityOf(ctx context.Context, addr common.Address) (interfaces.IdentityID, error) {
	has, err := c.HasIdentity(ctx, addr)
	if err != nil {
		return 0, err
	}
	if !has {
		return 0, fmt.Errorf("%w: %s", interfaces.ErrNoIdentity, addr.Hex())
	}

	id, err := c.callUint(ctx, "tokenOfOwner", addr)
	if err != nil {
		return 0, err
	}
	return interfaces.IdentityID(id.Uint64()), nil
}

func (c *OnchainIdentity) callUint(ctx context.Context, method string, addr common.Address) (*big.Int, error) {
	data, err := c.abi.Pack(method, addr)
	if err != nil {
		return nil, fmt.Errorf("packing %s call: %w", method, err)
	}

	out, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}

	results, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s result: %w", method, err)
	}
	return abi.ConvertType(results[0], new(big.Int)).(*big.Int), nil
}
