package pricing

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// routerABI is the slice of the swap router the oracle consumes: the
// constant-product quote for how much of a token buys a given stable amount.
const routerABI = `[
	{"name":"getAmountsIn","type":"function","stateMutability":"view","inputs":[{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

// ContractCaller is the slice of ethclient.Client the oracle needs.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// RouterOracle quotes payment-token prices through a deployed swap router.
// The quote for token T is the amount of T the router would need to deliver
// stableAmount of the reference currency along the path T -> stable.
type RouterOracle struct {
	client ContractCaller
	router common.Address
	stable common.Address
	abi    abi.ABI
}

// NewRouterOracle creates an oracle against the router at the given address.
func NewRouterOracle(client ContractCaller, router, stable common.Address) (*RouterOracle, error) {
	parsed, err := abi.JSON(strings.NewReader(routerABI))
	if err != nil {
		return nil, fmt.Errorf("parsing router ABI: %w", err)
	}

	return &RouterOracle{
		client: client,
		router: router,
		stable: stable,
		abi:    parsed,
	}, nil
}

// Quote converts stableAmount into token units via the router.
func (o *RouterOracle) Quote(ctx context.Context, token common.Address, stableAmount *big.Int) (*big.Int, error) {
	if token == o.stable {
		return new(big.Int).Set(stableAmount), nil
	}

	data, err := o.abi.Pack("getAmountsIn", stableAmount, []common.Address{token, o.stable})
	if err != nil {
		return nil, fmt.Errorf("packing getAmountsIn: %w", err)
	}

	out, err := o.client.CallContract(ctx, ethereum.CallMsg{To: &o.router, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling router: %w", err)
	}

	results, err := o.abi.Unpack("getAmountsIn", out)
	if err != nil {
		return nil, fmt.Errorf("unpacking getAmountsIn result: %w", err)
	}
	amounts := abi.ConvertType(results[0], new([]*big.Int)).(*[]*big.Int)
	if len(*amounts) == 0 {
		return nil, fmt.Errorf("router returned empty amounts for token %s", token.Hex())
	}
	return (*amounts)[0], nil
}
