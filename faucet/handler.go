package faucet

import (
	"context"
	"errors"
	"net/http"

	"faucet-gateway/faucet/application"
	"faucet-gateway/faucet/domain"

	"go.uber.org/zap"
)

type Granter interface {
	Grant(ctx context.Context, req domain.GrantRequest) (string, error)
}

type ReportLister interface {
	ListAll(ctx context.Context) (application.Report, error)
}

type MainChecker interface {
	Check(ctx context.Context, mainnetAddress string) (application.MainCheckResult, error)
}

// Handler traduz HTTP <-> casos de uso. Não decide nada sozinho.
type Handler struct {
	Granter   Granter
	Reports   ReportLister
	MainCheck MainChecker
	KeyFn     KeyFunc
	// LegacyStatusCodes devolve 200 para toda falha que não é quota.
	LegacyStatusCodes bool
	Log               *zap.Logger
}

func (h *Handler) keyFn() KeyFunc {
	if h.KeyFn != nil {
		return h.KeyFn
	}
	return DefaultKeyFunc("", false)
}

func (h *Handler) logger() *zap.Logger {
	if h.Log != nil {
		return h.Log
	}
	return zap.NewNop()
}

// Faucet atende GET /faucet?address=<dest>&mode=<rede>.
func (h *Handler) Faucet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := domain.GrantRequest{
		Requester:   h.keyFn()(r),
		Destination: q.Get("address"),
		Network:     q.Get("mode"),
	}

	txid, err := h.Granter.Grant(r.Context(), req)
	if err == nil {
		writeJSON(w, http.StatusOK, grantBody{Success: true, TxID: txid})
		return
	}

	if errors.Is(err, domain.ErrRateLimited) {
		var f *domain.Failure
		if errors.As(err, &f) {
			writeTooManyRequests(w, f.RetryAfter)
			return
		}
		writeTooManyRequests(w, 0)
		return
	}

	status, body := classify(err, h.LegacyStatusCodes)
	h.logger().Debug("faucet request failed",
		zap.String("requester", string(req.Requester)),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeJSON(w, status, body)
}

// Report atende GET /report.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Reports.ListAll(r.Context())
	if err != nil {
		h.logger().Error("report failed", zap.Error(err))
		status, body := classify(err, h.LegacyStatusCodes)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		application.Report
	}{Success: true, Report: rep})
}

// MainCheckHandler atende GET /main-check?address=<endereço de mainnet>.
func (h *Handler) MainCheckHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.MainCheck.Check(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		status, body := classify(err, h.LegacyStatusCodes)
		if !errors.Is(err, domain.ErrInvalidRequest) {
			status = http.StatusBadGateway
			if h.LegacyStatusCodes {
				status = http.StatusOK
			}
			body = failureBody{Error: errorBody{Code: "lookup_failed"}, Message: err.Error()}
		}
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		application.MainCheckResult
	}{Success: true, MainCheckResult: res})
}
