package faucet

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"faucet-gateway/faucet/domain"
)

type grantBody struct {
	Success bool   `json:"success"`
	TxID    string `json:"tx_id"`
}

type errorBody struct {
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
}

// failureBody.Error é string só no 429 ("Too many requests"); nos demais casos é errorBody.
type failureBody struct {
	Success bool   `json:"success"`
	Error   any    `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeTooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", retryAfterSeconds(retryAfter))
	}
	writeJSON(w, http.StatusTooManyRequests, failureBody{Success: false, Error: "Too many requests"})
}

// classify traduz a taxonomia de erros para status + corpo. Com legacy, toda
// falha que não é quota volta 200, como o serviço original fazia.
func classify(err error, legacy bool) (int, failureBody) {
	status, body := http.StatusInternalServerError, failureBody{Error: errorBody{Code: "internal"}, Message: "internal error"}

	var f *domain.Failure
	reason := ""
	if errors.As(err, &f) {
		reason = f.Reason
	}

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
		body = failureBody{Error: errorBody{Code: "invalid_request"}, Message: causeMessage(f, err)}
	case errors.Is(err, domain.ErrBroadcastFailed):
		status = http.StatusBadGateway
		body = failureBody{Error: errorBody{Code: "broadcast_failed", Reason: reason}, Message: broadcastMessage(reason, err)}
	case errors.Is(err, domain.ErrStorage):
		// detalhes do banco não saem do processo.
		body = failureBody{Error: errorBody{Code: "storage_error"}, Message: "request log unavailable"}
	}
	if legacy {
		status = http.StatusOK
	}
	return status, body
}

// broadcastMessage só repassa o texto de rejeições do nó; erros de transporte
// carregam URLs internas e viram mensagens fixas.
func broadcastMessage(reason string, err error) string {
	var rej *domain.Rejection
	if errors.As(err, &rej) {
		return rej.Error()
	}
	switch reason {
	case "Timeout":
		return "ledger timed out"
	case "SequenceBusy":
		return "faucet busy, try again"
	}
	return "ledger unreachable"
}

func causeMessage(f *domain.Failure, err error) string {
	if f != nil && f.Err != nil {
		return f.Err.Error()
	}
	return err.Error()
}
