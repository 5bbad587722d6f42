package authz

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDomain = Domain{
	Version:           "1.0.0",
	ChainID:           31337,
	VerifyingContract: common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
}

func testMintPayload() MintPayload {
	return MintPayload{
		To:          common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
		Name:        "alice",
		NameLength:  5,
		YearsPeriod: 1,
		TokenURI:    "https://metadata.example/name/1",
	}
}

func TestSignRecoverMint(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	sig, err := SignMint(testDomain, testMintPayload(), key)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)

	recovered, err := RecoverMint(testDomain, testMintPayload(), sig)
	require.NoError(t, err)
	assert.Equal(t, signer, recovered)
}

func TestRecoverAcceptsBothVConventions(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	sig, err := SignMint(testDomain, testMintPayload(), key)
	require.NoError(t, err)
	require.True(t, sig[64] == 27 || sig[64] == 28)

	raw := make([]byte, len(sig))
	copy(raw, sig)
	raw[64] -= 27

	recovered, err := RecoverMint(testDomain, testMintPayload(), raw)
	require.NoError(t, err)
	assert.Equal(t, signer, recovered)
}

func TestTamperedFieldChangesSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	payload := testMintPayload()
	sig, err := SignMint(testDomain, payload, key)
	require.NoError(t, err)

	tampered := payload
	tampered.NameLength = payload.NameLength + 1
	recovered, err := RecoverMint(testDomain, tampered, sig)
	require.NoError(t, err)
	assert.NotEqual(t, signer, recovered, "signature over a different nameLength must not verify")

	tampered = payload
	tampered.YearsPeriod = 2
	recovered, err = RecoverMint(testDomain, tampered, sig)
	require.NoError(t, err)
	assert.NotEqual(t, signer, recovered)
}

func TestDomainSeparation(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	sig, err := SignMint(testDomain, testMintPayload(), key)
	require.NoError(t, err)

	otherChain := testDomain
	otherChain.ChainID = 1
	recovered, err := RecoverMint(otherChain, testMintPayload(), sig)
	require.NoError(t, err)
	assert.NotEqual(t, signer, recovered)

	otherContract := testDomain
	otherContract.VerifyingContract = common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	recovered, err = RecoverMint(otherContract, testMintPayload(), sig)
	require.NoError(t, err)
	assert.NotEqual(t, signer, recovered)
}

func TestRenewalPayloadIsDistinctFromMint(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	mint := testMintPayload()
	renewal := RenewalPayload{
		To:          mint.To,
		Name:        mint.Name,
		NameLength:  mint.NameLength,
		YearsPeriod: mint.YearsPeriod,
	}

	sig, err := SignRenewal(testDomain, renewal, key)
	require.NoError(t, err)

	recovered, err := RecoverRenewal(testDomain, renewal, sig)
	require.NoError(t, err)
	assert.Equal(t, signer, recovered)

	// A renewal signature must not authorize a mint of the same terms.
	recovered, err = RecoverMint(testDomain, mint, sig)
	require.NoError(t, err)
	assert.NotEqual(t, signer, recovered)
}

func TestRecoverRejectsShortSignature(t *testing.T) {
	_, err := RecoverMint(testDomain, testMintPayload(), []byte{1, 2, 3})
	assert.Error(t, err)
}
