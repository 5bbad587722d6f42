package payment

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulname/soulstore-backend/interfaces"
)

var (
	usdc  = common.HexToAddress("0x0000000000000000000000000000000000000101")
	alice = common.HexToAddress("0x0000000000000000000000000000000000000b01")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b02")
	store = common.HexToAddress("0x0000000000000000000000000000000000000c01")
)

func TestNativeTransfer(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.Credit(interfaces.NativePaymentMethod, alice, big.NewInt(100)))

	require.NoError(t, l.Transfer(ctx, interfaces.NativePaymentMethod, alice, bob, big.NewInt(40)))

	balance, err := l.BalanceOf(ctx, interfaces.NativePaymentMethod, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance.Int64())
	balance, err = l.BalanceOf(ctx, interfaces.NativePaymentMethod, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance.Int64())

	err = l.Transfer(ctx, interfaces.NativePaymentMethod, alice, bob, big.NewInt(1000))
	assert.ErrorIs(t, err, interfaces.ErrInsufficientBalance)
}

func TestUnknownTokenRejected(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	err := l.Transfer(ctx, usdc, alice, bob, big.NewInt(1))
	assert.ErrorIs(t, err, interfaces.ErrUnknownToken)

	l.RegisterToken(usdc)
	require.NoError(t, l.Credit(usdc, alice, big.NewInt(1)))
	assert.NoError(t, l.Transfer(ctx, usdc, alice, bob, big.NewInt(1)))
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(usdc)
	require.NoError(t, l.Credit(usdc, alice, big.NewInt(100)))
	require.NoError(t, l.Approve(usdc, alice, store, big.NewInt(70)))

	require.NoError(t, l.TransferFrom(ctx, usdc, store, alice, bob, big.NewInt(50)))

	allowance, err := l.Allowance(ctx, usdc, alice, store)
	require.NoError(t, err)
	assert.Equal(t, int64(20), allowance.Int64())

	err = l.TransferFrom(ctx, usdc, store, alice, bob, big.NewInt(30))
	assert.ErrorIs(t, err, interfaces.ErrInsufficientAllowance)
}

func TestTransferFromRequiresBalance(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(usdc)
	require.NoError(t, l.Credit(usdc, alice, big.NewInt(10)))
	require.NoError(t, l.Approve(usdc, alice, store, big.NewInt(100)))

	err := l.TransferFrom(ctx, usdc, store, alice, bob, big.NewInt(50))
	assert.ErrorIs(t, err, interfaces.ErrInsufficientBalance)

	// The failed pull must not burn allowance.
	allowance, err := l.Allowance(ctx, usdc, alice, store)
	require.NoError(t, err)
	assert.Equal(t, int64(100), allowance.Int64())
}

func TestNativeRailHasNoAllowances(t *testing.T) {
	l := NewMemoryLedger()
	assert.Error(t, l.Approve(interfaces.NativePaymentMethod, alice, store, big.NewInt(1)))
	assert.Error(t, l.TransferFrom(context.Background(), interfaces.NativePaymentMethod, store, alice, bob, big.NewInt(1)))
}
