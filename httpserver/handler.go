package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/soulname/soulstore-backend/interfaces"
	"github.com/soulname/soulstore-backend/metadata"
	"github.com/soulname/soulstore-backend/metrics"
	"github.com/soulname/soulstore-backend/store"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// RequestError provides structured error information for HTTP responses.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

// Handler processes the public HTTP API: purchases, quotes, name lookups and
// metadata documents.
type Handler struct {
	store    *store.Store
	registry interfaces.NameRegistry
	metadata *metadata.Service
	log      *slog.Logger

	// metrics is installed by the server owning the metrics listener.
	metrics *metrics.MetricsServer
}

// NewHandler creates the public API handler.
func NewHandler(st *store.Store, registry interfaces.NameRegistry, md *metadata.Service, log *slog.Logger) *Handler {
	return &Handler{
		store:    st,
		registry: registry,
		metadata: md,
		log:      log,
	}
}

// purchaseRequest is the wire form of a purchase or renewal attempt. Amounts
// are decimal strings, addresses and signatures hex.
type purchaseRequest struct {
	Caller        string `json:"caller"`
	To            string `json:"to"`
	PaymentMethod string `json:"paymentMethod"`
	Name          string `json:"name"`
	NameLength    uint64 `json:"nameLength"`
	YearsPeriod   uint64 `json:"yearsPeriod"`
	TokenURI      string `json:"tokenUri,omitempty"`
	Authority     string `json:"authority"`
	Signature     string `json:"signature"`
	NativeValue   string `json:"nativeValue,omitempty"`
}

type purchaseResponse struct {
	*store.Receipt
	TokenURI   string `json:"tokenUri,omitempty"`
	MetadataID string `json:"metadataId,omitempty"`
}

// HandlePurchaseIdentityAndName processes POST /api/v1/purchase/identity-name.
func (h *Handler) HandlePurchaseIdentityAndName(w http.ResponseWriter, r *http.Request) {
	h.handlePurchase(w, r, "mint_identity_and_name", h.store.PurchaseIdentityAndName)
}

// HandlePurchaseName processes POST /api/v1/purchase/name.
func (h *Handler) HandlePurchaseName(w http.ResponseWriter, r *http.Request) {
	h.handlePurchase(w, r, "mint_name", h.store.PurchaseName)
}

// HandlePurchaseRenewal processes POST /api/v1/purchase/renewal.
func (h *Handler) HandlePurchaseRenewal(w http.ResponseWriter, r *http.Request) {
	h.handlePurchase(w, r, "renewal", h.store.PurchaseNameRenewal)
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request, operation string, purchase func(context.Context, store.PurchaseRequest) (*store.Receipt, error)) {
	started := time.Now()

	req, err := h.parsePurchaseRequest(r)
	if err != nil {
		h.observePurchase(operation, "", "error", started)
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: err})
		return
	}

	receipt, err := purchase(r.Context(), req)
	if err != nil {
		h.log.Error("Purchase failed", "err", err, "operation", operation, "name", req.Name)
		h.observePurchase(operation, req.PaymentMethod.Hex(), "error", started)
		h.writeError(w, requestErrorFor(err))
		return
	}

	resp := purchaseResponse{Receipt: receipt}
	if operation != "renewal" {
		resp.TokenURI, resp.MetadataID = h.publishMetadata(r.Context(), req.Name)
	}

	h.observePurchase(operation, req.PaymentMethod.Hex(), "ok", started)
	h.writeJSON(w, http.StatusOK, resp)
}

// publishMetadata renders and stores the metadata document for a freshly
// minted name. The purchase already settled; a publication failure is logged
// and the document is rebuilt on the next lookup instead of failing the
// purchase.
func (h *Handler) publishMetadata(ctx context.Context, name string) (tokenURI, metadataID string) {
	if h.metadata == nil {
		return "", ""
	}

	data, err := h.registry.GetTokenData(ctx, name)
	if err != nil {
		h.log.Error("Failed to load freshly minted name", "err", err, "name", name)
		return "", ""
	}

	id, err := h.metadata.PublishName(ctx, data)
	if err != nil {
		h.log.Error("Failed to publish name metadata", "err", err, "name", name)
		return h.metadata.TokenURI(metadata.KindName, data.TokenID), ""
	}
	return h.metadata.TokenURI(metadata.KindName, data.TokenID), id.String()
}

// HandlePrice processes GET /api/v1/price?paymentMethod=0x..&nameLength=5&years=1.
func (h *Handler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	paymentMethod, err := parseAddress(q.Get("paymentMethod"))
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("paymentMethod: %w", err)})
		return
	}
	nameLength, err := strconv.ParseUint(q.Get("nameLength"), 10, 64)
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("nameLength: %w", err)})
		return
	}
	years, err := strconv.ParseUint(q.Get("years"), 10, 64)
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("years: %w", err)})
		return
	}

	quote, err := h.store.GetPriceForMintingNameWithProtocolFee(r.Context(), paymentMethod, nameLength, years)
	if err != nil {
		h.writeError(w, requestErrorFor(err))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"price":       quote.Price.String(),
		"protocolFee": quote.ProtocolFee.String(),
		"total":       quote.Total().String(),
	})
}

// HandlePaymentMethods processes GET /api/v1/payment-methods.
func (h *Handler) HandlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods := h.store.PaymentMethods()
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		out = append(out, m.Hex())
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"paymentMethods": out})
}

// HandleNameLookup processes GET /api/v1/names/{name}.
func (h *Handler) HandleNameLookup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	data, err := h.registry.GetTokenData(r.Context(), name)
	if err != nil {
		if h.metrics != nil {
			h.metrics.LookupsTotal.WithLabelValues("miss").Inc()
		}
		h.writeError(w, requestErrorFor(err))
		return
	}
	if h.metrics != nil {
		h.metrics.LookupsTotal.WithLabelValues("hit").Inc()
	}

	resp := struct {
		interfaces.TokenData
		TokenURI string `json:"tokenUri,omitempty"`
	}{TokenData: data}
	if h.metadata != nil {
		resp.TokenURI = h.metadata.TokenURI(metadata.KindName, data.TokenID)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleNameAvailability processes GET /api/v1/names/{name}/available.
func (h *Handler) HandleNameAvailability(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	available, err := h.registry.IsAvailable(r.Context(), name)
	if err != nil {
		h.writeError(w, requestErrorFor(err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

// HandleIdentityNames processes GET /api/v1/identities/{identityId}/names.
func (h *Handler) HandleIdentityNames(w http.ResponseWriter, r *http.Request) {
	identityID, err := strconv.ParseUint(r.PathValue("identityId"), 10, 64)
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("identityId: %w", err)})
		return
	}

	names, err := h.registry.NamesOf(r.Context(), interfaces.IdentityID(identityID))
	if err != nil {
		h.writeError(w, requestErrorFor(err))
		return
	}
	if names == nil {
		names = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"names": names})
}

// HandleMetadataDocument processes GET /api/v1/metadata/{contentId}.
func (h *Handler) HandleMetadataDocument(w http.ResponseWriter, r *http.Request) {
	if h.metadata == nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusNotFound, Err: errors.New("metadata service not configured")})
		return
	}

	id, err := interfaces.NewContentIDFromHex(r.PathValue("contentId"))
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: err})
		return
	}

	doc, err := h.metadata.FetchDocument(r.Context(), id)
	if err != nil {
		h.writeError(w, requestErrorFor(err))
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) parsePurchaseRequest(r *http.Request) (store.PurchaseRequest, error) {
	var req purchaseRequest

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return store.PurchaseRequest{}, fmt.Errorf("reading request body: %w", err)
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return store.PurchaseRequest{}, fmt.Errorf("parsing request body: %w", err)
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		return store.PurchaseRequest{}, fmt.Errorf("caller: %w", err)
	}
	to, err := parseAddress(req.To)
	if err != nil {
		return store.PurchaseRequest{}, fmt.Errorf("to: %w", err)
	}
	paymentMethod, err := parseAddress(req.PaymentMethod)
	if err != nil {
		return store.PurchaseRequest{}, fmt.Errorf("paymentMethod: %w", err)
	}
	authority, err := parseAddress(req.Authority)
	if err != nil {
		return store.PurchaseRequest{}, fmt.Errorf("authority: %w", err)
	}
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		return store.PurchaseRequest{}, fmt.Errorf("signature: %w", err)
	}

	var nativeValue *big.Int
	if req.NativeValue != "" {
		nativeValue = new(big.Int)
		if _, ok := nativeValue.SetString(req.NativeValue, 10); !ok {
			return store.PurchaseRequest{}, fmt.Errorf("nativeValue: not a decimal amount: %q", req.NativeValue)
		}
	}

	return store.PurchaseRequest{
		Caller:        caller,
		To:            to,
		PaymentMethod: paymentMethod,
		Name:          req.Name,
		NameLength:    req.NameLength,
		YearsPeriod:   req.YearsPeriod,
		TokenURI:      req.TokenURI,
		Authority:     authority,
		Signature:     sig,
		NativeValue:   nativeValue,
	}, nil
}

func (h *Handler) observePurchase(operation, paymentMethod, result string, started time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.PurchasesTotal.WithLabelValues(operation, paymentMethod, result).Inc()
	h.metrics.PurchaseDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, reqErr *RequestError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reqErr.StatusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": reqErr.Error()})
}

// requestErrorFor maps domain sentinel errors onto HTTP status codes.
func requestErrorFor(err error) *RequestError {
	switch {
	case errors.Is(err, interfaces.ErrNameNotFound),
		errors.Is(err, interfaces.ErrTokenNotFound),
		errors.Is(err, interfaces.ErrNoIdentity),
		errors.Is(err, interfaces.ErrContentNotFound):
		return &RequestError{StatusCode: http.StatusNotFound, Err: err}
	case errors.Is(err, interfaces.ErrNameUnavailable),
		errors.Is(err, interfaces.ErrIdentityAlreadyExists),
		errors.Is(err, interfaces.ErrCannotRenew):
		return &RequestError{StatusCode: http.StatusConflict, Err: err}
	case errors.Is(err, interfaces.ErrInsufficientEthAmount),
		errors.Is(err, interfaces.ErrInsufficientBalance),
		errors.Is(err, interfaces.ErrInsufficientAllowance):
		return &RequestError{StatusCode: http.StatusPaymentRequired, Err: err}
	case errors.Is(err, interfaces.ErrInvalidSignature),
		errors.Is(err, interfaces.ErrNotAuthorized),
		errors.Is(err, interfaces.ErrInvalidCaller),
		errors.Is(err, interfaces.ErrNotOwner):
		return &RequestError{StatusCode: http.StatusForbidden, Err: err}
	case errors.Is(err, interfaces.ErrInvalidPaymentMethod),
		errors.Is(err, interfaces.ErrInvalidToAddress),
		errors.Is(err, interfaces.ErrUnknownToken):
		return &RequestError{StatusCode: http.StatusBadRequest, Err: err}
	default:
		return &RequestError{StatusCode: http.StatusInternalServerError, Err: err}
	}
}

func parseAddress(raw string) (ethcommon.Address, error) {
	if !ethcommon.IsHexAddress(raw) {
		return ethcommon.Address{}, fmt.Errorf("not a hex address: %q", raw)
	}
	return ethcommon.HexToAddress(raw), nil
}
