package pricing

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	stable = common.HexToAddress("0x0000000000000000000000000000000000000101")
	weth   = common.HexToAddress("0x0000000000000000000000000000000000000102")
)

func TestFixedOracleIdentityForStable(t *testing.T) {
	o := NewFixedOracle(stable, nil)

	out, err := o.Quote(context.Background(), stable, big.NewInt(10_000_000))
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), out.Int64())
}

func TestFixedOracleRate(t *testing.T) {
	// 18-decimal token at 2000 stable (6 decimals) per token:
	// tokenAmount = stableAmount * 1e18 / (2000 * 1e6).
	o := NewFixedOracle(stable, map[common.Address]Rate{
		weth: {
			Num: new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
			Den: new(big.Int).Mul(big.NewInt(2000), big.NewInt(1_000_000)),
		},
	})

	// 10 stable -> 0.005 token.
	out, err := o.Quote(context.Background(), weth, big.NewInt(10_000_000))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5_000_000_000_000_000), out)
}

func TestFixedOracleUnknownToken(t *testing.T) {
	o := NewFixedOracle(stable, nil)
	_, err := o.Quote(context.Background(), weth, big.NewInt(1))
	assert.Error(t, err)
}

// stubRouter answers getAmountsIn with a fixed amounts array.
type stubRouter struct {
	amountIn *big.Int
	gotCall  ethereum.CallMsg
}

func (s *stubRouter) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	s.gotCall = call
	// Offset to the dynamic array, length 2, then [amountIn, amountOut].
	out := make([]byte, 0, 4*32)
	out = append(out, common.LeftPadBytes(big.NewInt(32).Bytes(), 32)...)
	out = append(out, common.LeftPadBytes(big.NewInt(2).Bytes(), 32)...)
	out = append(out, common.LeftPadBytes(s.amountIn.Bytes(), 32)...)
	out = append(out, common.LeftPadBytes(big.NewInt(0).Bytes(), 32)...)
	return out, nil
}

func TestRouterOracleQuotesThroughRouter(t *testing.T) {
	router := common.HexToAddress("0x0000000000000000000000000000000000000201")
	stub := &stubRouter{amountIn: big.NewInt(5_000_000_000_000_000)}

	o, err := NewRouterOracle(stub, router, stable)
	require.NoError(t, err)

	out, err := o.Quote(context.Background(), weth, big.NewInt(10_000_000))
	require.NoError(t, err)
	assert.Equal(t, stub.amountIn, out)
	assert.Equal(t, &router, stub.gotCall.To)

	// Stable never touches the router.
	stub.gotCall = ethereum.CallMsg{}
	out, err = o.Quote(context.Background(), stable, big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), out.Int64())
	assert.Nil(t, stub.gotCall.To)
}
