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

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/soulname/soulstore-backend/authz"
	"github.com/soulname/soulstore-backend/interfaces"
	"github.com/soulname/soulstore-backend/store"
)

// AdminSignatureHeader carries the admin's signature over the request: the
// EIP-191 envelope of keccak(method, path, body). The recovered address is
// the caller the storefront checks against its admin.
const AdminSignatureHeader = "X-Soulstore-Admin-Signature"

// Snapshotter persists registry state to a storage backend.
type Snapshotter interface {
	Snapshot(ctx context.Context, backend interfaces.StorageBackend) (interfaces.ContentID, error)
}

// AdminHandler processes the signature-gated admin surface: authority and
// payment-method management, fee policy and registry snapshots.
type AdminHandler struct {
	store       *store.Store
	admin       ethcommon.Address
	snapshotter Snapshotter
	backend     interfaces.StorageBackend
	log         *slog.Logger
}

// NewAdminHandler creates the admin handler. The admin address gates the
// snapshot endpoint; store operations carry their own admin check.
func NewAdminHandler(st *store.Store, admin ethcommon.Address, snapshotter Snapshotter, backend interfaces.StorageBackend, log *slog.Logger) *AdminHandler {
	return &AdminHandler{
		store:       st,
		admin:       admin,
		snapshotter: snapshotter,
		backend:     backend,
		log:         log,
	}
}

type authorityRequest struct {
	Action    string `json:"action"` // add or remove
	Authority string `json:"authority"`
}

// HandleAuthorities processes POST /api/admin/authorities.
func (h *AdminHandler) HandleAuthorities(w http.ResponseWriter, r *http.Request) {
	caller, body, reqErr := h.authenticate(r)
	if reqErr != nil {
		h.writeError(w, reqErr)
		return
	}

	var req authorityRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: err})
		return
	}
	authority, err := parseAddress(req.Authority)
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("authority: %w", err)})
		return
	}

	switch req.Action {
	case "add":
		err = h.store.AddAuthority(caller, authority)
	case "remove":
		err = h.store.RemoveAuthority(caller, authority)
	default:
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("unknown action %q", req.Action)})
		return
	}
	if err != nil {
		h.writeError(w, requestErrorFor(err))
		return
	}

	h.writeJSON(w, map[string]string{"status": "ok"})
}

type paymentMethodRequest struct {
	Action string `json:"action"` // enable or disable
	Token  string `json:"token"`
}

// HandlePaymentMethods processes POST /api/admin/payment-methods.
func (h *AdminHandler) HandlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	caller, body, reqErr := h.authenticate(r)
	if reqErr != nil {
		h.writeError(w, reqErr)
		return
	}

	var req paymentMethodRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: err})
		return
	}
	token, err := parseAddress(req.Token)
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("token: %w", err)})
		return
	}

	switch req.Action {
	case "enable":
		err = h.store.EnablePaymentMethod(caller, token)
	case "disable":
		err = h.store.DisablePaymentMethod(caller, token)
	default:
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("unknown action %q", req.Action)})
		return
	}
	if err != nil {
		h.writeError(w, requestErrorFor(err))
		return
	}

	h.writeJSON(w, map[string]string{"status": "ok"})
}

type feeRequest struct {
	ProjectFeeReceiver    string `json:"projectFeeReceiver"`
	ProtocolFeeReceiver   string `json:"protocolFeeReceiver"`
	ProtocolFeeAmount     string `json:"protocolFeeAmount"`
	ProtocolFeePercent    uint64 `json:"protocolFeePercent"`
	ProtocolFeePercentSub uint64 `json:"protocolFeePercentSub"`
}

// HandleFees processes POST /api/admin/fees, replacing the fee policy.
func (h *AdminHandler) HandleFees(w http.ResponseWriter, r *http.Request) {
	caller, body, reqErr := h.authenticate(r)
	if reqErr != nil {
		h.writeError(w, reqErr)
		return
	}

	var req feeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: err})
		return
	}

	projectReceiver, err := parseAddress(req.ProjectFeeReceiver)
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("projectFeeReceiver: %w", err)})
		return
	}
	protocolReceiver, err := parseAddress(req.ProtocolFeeReceiver)
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("protocolFeeReceiver: %w", err)})
		return
	}

	flatAmount := new(big.Int)
	if req.ProtocolFeeAmount != "" {
		if _, ok := flatAmount.SetString(req.ProtocolFeeAmount, 10); !ok {
			h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("protocolFeeAmount: not a decimal amount: %q", req.ProtocolFeeAmount)})
			return
		}
	}

	err = h.store.SetFees(caller, store.FeeConfig{
		ProjectFeeReceiver:    projectReceiver,
		ProtocolFeeReceiver:   protocolReceiver,
		ProtocolFeeAmount:     flatAmount,
		ProtocolFeePercent:    req.ProtocolFeePercent,
		ProtocolFeePercentSub: req.ProtocolFeePercentSub,
	})
	if err != nil {
		h.writeError(w, requestErrorFor(err))
		return
	}

	h.writeJSON(w, map[string]string{"status": "ok"})
}

// HandleSnapshot processes POST /api/admin/snapshot, persisting registry
// state to the configured storage backend.
func (h *AdminHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	caller, _, reqErr := h.authenticate(r)
	if reqErr != nil {
		h.writeError(w, reqErr)
		return
	}
	if caller != h.admin {
		h.writeError(w, &RequestError{StatusCode: http.StatusForbidden, Err: interfaces.ErrInvalidCaller})
		return
	}
	if h.snapshotter == nil || h.backend == nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusNotFound, Err: errors.New("snapshotting not configured")})
		return
	}

	id, err := h.snapshotter.Snapshot(r.Context(), h.backend)
	if err != nil {
		h.log.Error("Snapshot failed", "err", err)
		h.writeError(w, requestErrorFor(err))
		return
	}

	h.log.Info("Registry snapshot stored", "contentId", id.String())
	h.writeJSON(w, map[string]string{"contentId": id.String()})
}

// authenticate reads the body and recovers the caller from the signature
// header. The body is returned for parsing, since it participates in the
// digest and can only be read once.
func (h *AdminHandler) authenticate(r *http.Request) (ethcommon.Address, []byte, *RequestError) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return ethcommon.Address{}, nil, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("reading request body: %w", err)}
	}

	sigHex := r.Header.Get(AdminSignatureHeader)
	if sigHex == "" {
		return ethcommon.Address{}, nil, &RequestError{StatusCode: http.StatusUnauthorized, Err: fmt.Errorf("missing %s header", AdminSignatureHeader)}
	}
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return ethcommon.Address{}, nil, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("decoding signature: %w", err)}
	}

	caller, err := authz.RecoverAdminRequest(r.Method, r.URL.Path, body, sig)
	if err != nil {
		return ethcommon.Address{}, nil, &RequestError{StatusCode: http.StatusUnauthorized, Err: fmt.Errorf("%w: %v", interfaces.ErrInvalidSignature, err)}
	}
	return caller, body, nil
}

func (h *AdminHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *AdminHandler) writeError(w http.ResponseWriter, reqErr *RequestError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reqErr.StatusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": reqErr.Error()})
}
