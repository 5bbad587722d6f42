package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulname/soulstore-backend/interfaces"
)

const testEnv = `ADMIN_ADDRESS=0x00000000000000000000000000000000000000a1
STORE_ADDRESS=0x00000000000000000000000000000000000000a2
PROJECT_FEE_RECEIVER=0x00000000000000000000000000000000000000b1
PROTOCOL_FEE_RECEIVER=0x00000000000000000000000000000000000000b2
PROTOCOL_FEE_AMOUNT=2500000
PROTOCOL_FEE_PERCENT=10
STABLE_COIN=0x00000000000000000000000000000000000000d1
SWAP_ROUTER=0x00000000000000000000000000000000000000d9
CHAIN_ID=44787
AUTHORITIES="0x00000000000000000000000000000000000000e1 0x00000000000000000000000000000000000000e2"
PAYMENT_METHODS="0x00000000000000000000000000000000000000d1 0x00000000000000000000000000000000000000d2"
METADATA_BASE_URI=https://metadata.soulname.example/api
STORAGE_LOCATIONS="memory:// file:///var/lib/soulstore"
PRICE_1_LETTER=50000000
PRICE_2_LETTER=25000000
PRICE_3_LETTER=15000000
PRICE_4_LETTER=12000000
PRICE_DEFAULT=10000000
`

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env.test")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDeployment(t *testing.T) {
	d, err := Load(writeEnv(t, testEnv))
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000a1"), d.Admin)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000a2"), d.StoreAddress)
	assert.Equal(t, "2500000", d.ProtocolFeeAmount.String())
	assert.EqualValues(t, 10, d.ProtocolFeePercent)
	assert.Zero(t, d.ProtocolFeePercentSub)
	assert.EqualValues(t, 44787, d.ChainID)

	// Defaults.
	assert.Equal(t, "1", d.DomainVersion)
	assert.Equal(t, ".soul", d.Extension)

	// Space-delimited lists keep their order.
	require.Len(t, d.Authorities, 2)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000e2"), d.Authorities[1])
	require.Len(t, d.PaymentMethods, 2)
	assert.Equal(t, []interfaces.StorageBackendLocation{"memory://", "file:///var/lib/soulstore"}, d.StorageLocations)

	assert.Equal(t, "50000000", d.Prices.Length1.String())
	assert.Equal(t, "10000000", d.Prices.Default.String())
	assert.Equal(t, "10000000", d.Prices.PriceFor(12, 1).String())

	domain := d.Domain()
	assert.EqualValues(t, 44787, domain.ChainID)
	assert.Equal(t, d.StoreAddress, domain.VerifyingContract)

	fees := d.Fees()
	assert.Equal(t, d.ProjectFeeReceiver, fees.ProjectFeeReceiver)
	assert.Equal(t, "2500000", fees.ProtocolFeeAmount.String())
}

func TestLoadMissingRequiredKey(t *testing.T) {
	_, err := Load(writeEnv(t, "STORE_ADDRESS=0x00000000000000000000000000000000000000a2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_ADDRESS")
}

func TestLoadRejectsBadAddress(t *testing.T) {
	bad := testEnv + "\nAUTHORITIES=\"not-an-address\"\n"
	_, err := Load(writeEnv(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTHORITIES")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), ".env.absent"))
	assert.Error(t, err)
}
