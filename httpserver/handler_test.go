package httpserver

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulname/soulstore-backend/authz"
	"github.com/soulname/soulstore-backend/identity"
	"github.com/soulname/soulstore-backend/interfaces"
	"github.com/soulname/soulstore-backend/metadata"
	"github.com/soulname/soulstore-backend/payment"
	"github.com/soulname/soulstore-backend/pricing"
	"github.com/soulname/soulstore-backend/registry"
	"github.com/soulname/soulstore-backend/storage"
	"github.com/soulname/soulstore-backend/store"
)

var (
	testStoreAddr  = ethcommon.HexToAddress("0x00000000000000000000000000000000000000a2")
	testBuyerAddr  = ethcommon.HexToAddress("0x00000000000000000000000000000000000000c1")
	testStableAddr = ethcommon.HexToAddress("0x00000000000000000000000000000000000000d1")
)

type testEnv struct {
	ts       *httptest.Server
	store    *store.Store
	registry *registry.Registry
	ledger   *payment.MemoryLedger

	adminKey      *ecdsa.PrivateKey
	adminAddr     ethcommon.Address
	authorityKey  *ecdsa.PrivateKey
	authorityAddr ethcommon.Address
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	adminKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	adminAddr := crypto.PubkeyToAddress(adminKey.PublicKey)

	authorityKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	authorityAddr := crypto.PubkeyToAddress(authorityKey.PublicKey)

	reg := registry.New(registry.Config{
		Extension: ".soul",
		Admin:     adminAddr,
		Clock:     func() time.Time { return time.Unix(1_700_000_000, 0) },
		Log:       log,
	})
	require.NoError(t, reg.GrantMinterRole(adminAddr, testStoreAddr))

	ledger := payment.NewMemoryLedger(testStableAddr)
	oracle := pricing.NewFixedOracle(testStableAddr, map[ethcommon.Address]pricing.Rate{
		interfaces.NativePaymentMethod: {Num: big.NewInt(1), Den: big.NewInt(1)},
	})

	st := store.New(store.Config{
		Domain: authz.Domain{
			Version:           "1",
			ChainID:           44787,
			VerifyingContract: testStoreAddr,
		},
		Admin:          adminAddr,
		StoreAddress:   testStoreAddr,
		StableCoin:     testStableAddr,
		PaymentMethods: []ethcommon.Address{testStableAddr},
		Authorities:    []ethcommon.Address{authorityAddr},
		Fees: store.FeeConfig{
			ProjectFeeReceiver:  ethcommon.HexToAddress("0x00000000000000000000000000000000000000b1"),
			ProtocolFeeReceiver: ethcommon.HexToAddress("0x00000000000000000000000000000000000000b2"),
			ProtocolFeePercent:  10,
		},
		Prices: store.PriceTable{
			Length1: big.NewInt(50_000_000),
			Length2: big.NewInt(25_000_000),
			Length3: big.NewInt(15_000_000),
			Length4: big.NewInt(12_000_000),
			Default: big.NewInt(10_000_000),
		},
		Registry: reg,
		Identity: identity.NewMemoryIdentity(),
		Ledger:   ledger,
		Oracle:   oracle,
		Log:      log,
	})

	backend := storage.NewMemoryBackend(log)
	md, err := metadata.NewService("https://metadata.soulname.example/api", backend, log)
	require.NoError(t, err)

	handler := NewHandler(st, reg, md, log)
	admin := NewAdminHandler(st, adminAddr, reg, backend, log)

	srv, err := New(&HTTPServerConfig{
		ListenAddr: "127.0.0.1:0",
		Log:        log,
	}, handler, admin)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.getRouter())
	t.Cleanup(ts.Close)

	return &testEnv{
		ts:            ts,
		store:         st,
		registry:      reg,
		ledger:        ledger,
		adminKey:      adminKey,
		adminAddr:     adminAddr,
		authorityKey:  authorityKey,
		authorityAddr: authorityAddr,
	}
}

func (e *testEnv) signedMintBody(t *testing.T, name string, years uint64, nativeValue string) []byte {
	t.Helper()
	domain := e.store.Domain()
	payload := authz.MintPayload{
		To:          testBuyerAddr,
		Name:        name,
		NameLength:  uint64(len(name)),
		YearsPeriod: years,
		TokenURI:    "https://metadata.soulname.example/api/name/1",
	}
	sig, err := authz.SignMint(domain, payload, e.authorityKey)
	require.NoError(t, err)

	body, err := json.Marshal(purchaseRequest{
		Caller:        testBuyerAddr.Hex(),
		To:            testBuyerAddr.Hex(),
		PaymentMethod: interfaces.NativePaymentMethod.Hex(),
		Name:          name,
		NameLength:    payload.NameLength,
		YearsPeriod:   years,
		TokenURI:      payload.TokenURI,
		Authority:     e.authorityAddr.Hex(),
		Signature:     "0x" + ethcommon.Bytes2Hex(sig),
		NativeValue:   nativeValue,
	})
	require.NoError(t, err)
	return body
}

func (e *testEnv) postJSON(t *testing.T, path string, body []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(e.ts.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestPurchaseEndpointMintsAndPublishes(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.ledger.Credit(interfaces.NativePaymentMethod, testBuyerAddr, big.NewInt(50_000_000)))

	resp := e.postJSON(t, "/api/v1/purchase/identity-name", e.signedMintBody(t, "alice", 1, "11000000"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		TokenID    uint64   `json:"tokenId"`
		IdentityID uint64   `json:"identityId"`
		Refund     *big.Int `json:"refund"`
		TokenURI   string   `json:"tokenUri"`
		MetadataID string   `json:"metadataId"`
	}
	decodeJSON(t, resp, &out)
	assert.EqualValues(t, 1, out.TokenID)
	assert.EqualValues(t, 1, out.IdentityID)
	assert.Zero(t, out.Refund.Sign())
	assert.Equal(t, "https://metadata.soulname.example/api/name/1", out.TokenURI)
	assert.NotEmpty(t, out.MetadataID)

	// The lease is visible through the lookup endpoint.
	resp, err := http.Get(e.ts.URL + "/api/v1/names/ALICE")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var lookup struct {
		DisplayName string `json:"displayName"`
		Active      bool   `json:"active"`
		TokenURI    string `json:"tokenUri"`
	}
	decodeJSON(t, resp, &lookup)
	assert.Equal(t, "alice.soul", lookup.DisplayName)
	assert.True(t, lookup.Active)
	assert.Equal(t, out.TokenURI, lookup.TokenURI)

	// And the metadata document resolves by content id.
	resp, err = http.Get(e.ts.URL + "/api/v1/metadata/" + out.MetadataID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc metadata.Document
	decodeJSON(t, resp, &doc)
	assert.Equal(t, "alice.soul", doc.Name)
}

func TestPurchaseEndpointErrorMapping(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.ledger.Credit(interfaces.NativePaymentMethod, testBuyerAddr, big.NewInt(50_000_000)))

	// Underfunded native purchase.
	resp := e.postJSON(t, "/api/v1/purchase/identity-name", e.signedMintBody(t, "alice", 1, "1"))
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	resp.Body.Close()

	// Tampered terms break the signature.
	body := e.signedMintBody(t, "alice", 1, "11000000")
	var req purchaseRequest
	require.NoError(t, json.Unmarshal(body, &req))
	req.YearsPeriod = 10
	tampered, err := json.Marshal(req)
	require.NoError(t, err)
	resp = e.postJSON(t, "/api/v1/purchase/identity-name", tampered)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Malformed body.
	resp = e.postJSON(t, "/api/v1/purchase/identity-name", []byte(`{"caller":42}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Conflict once the name is taken.
	resp = e.postJSON(t, "/api/v1/purchase/identity-name", e.signedMintBody(t, "alice", 1, "11000000"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = e.postJSON(t, "/api/v1/purchase/identity-name", e.signedMintBody(t, "alice", 1, "11000000"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestLookupEndpoints(t *testing.T) {
	e := newTestEnv(t)

	resp, err := http.Get(e.ts.URL + "/api/v1/names/ghost")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(e.ts.URL + "/api/v1/names/ghost/available")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var avail struct {
		Available bool `json:"available"`
	}
	decodeJSON(t, resp, &avail)
	assert.True(t, avail.Available)

	resp, err = http.Get(e.ts.URL + "/api/v1/identities/1/names")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var names struct {
		Names []string `json:"names"`
	}
	decodeJSON(t, resp, &names)
	assert.Empty(t, names.Names)
}

func TestPriceEndpoint(t *testing.T) {
	e := newTestEnv(t)

	resp, err := http.Get(e.ts.URL + "/api/v1/price?paymentMethod=" + testStableAddr.Hex() + "&nameLength=5&years=1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var quote struct {
		Price       string `json:"price"`
		ProtocolFee string `json:"protocolFee"`
		Total       string `json:"total"`
	}
	decodeJSON(t, resp, &quote)
	assert.Equal(t, "10000000", quote.Price)
	assert.Equal(t, "1000000", quote.ProtocolFee)
	assert.Equal(t, "11000000", quote.Total)

	resp, err = http.Get(e.ts.URL + "/api/v1/price?paymentMethod=nope&nameLength=5&years=1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestPaymentMethodsEndpoint(t *testing.T) {
	e := newTestEnv(t)

	resp, err := http.Get(e.ts.URL + "/api/v1/payment-methods")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		PaymentMethods []string `json:"paymentMethods"`
	}
	decodeJSON(t, resp, &out)
	require.Len(t, out.PaymentMethods, 2)
	assert.Equal(t, interfaces.NativePaymentMethod.Hex(), out.PaymentMethods[0])
	assert.Equal(t, testStableAddr.Hex(), out.PaymentMethods[1])
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/livez", "/readyz"} {
		resp, err := http.Get(e.ts.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		resp.Body.Close()
	}
}

func TestLookupMapsRegistryFailureToServerError(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mockReg := new(registry.MockRegistry)
	mockReg.On("GetTokenData", "alice").Return(interfaces.TokenData{}, errors.New("index corrupted"))

	h := NewHandler(nil, mockReg, nil, log)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/names/alice", nil)
	req.SetPathValue("name", "alice")
	rec := httptest.NewRecorder()
	h.HandleNameLookup(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	mockReg.AssertExpectations(t)
}
