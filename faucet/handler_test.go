package faucet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"faucet-gateway/faucet/application"
	"faucet-gateway/faucet/domain"

	"github.com/stretchr/testify/require"
)

type fakeGranter struct {
	txid string
	err  error
	got  domain.GrantRequest
}

func (g *fakeGranter) Grant(_ context.Context, req domain.GrantRequest) (string, error) {
	g.got = req
	return g.txid, g.err
}

func serveFaucet(h *Handler, target string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.RemoteAddr = "1.2.3.4:5555"
	w := httptest.NewRecorder()
	h.Faucet(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func TestHandler_FaucetSuccess(t *testing.T) {
	g := &fakeGranter{txid: "0xabc"}
	w := serveFaucet(&Handler{Granter: g}, "/faucet?address=ST_A&mode=testnet")

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, map[string]any{"success": true, "tx_id": "0xabc"}, decode(t, w))
	require.Equal(t, domain.GrantRequest{Requester: "1.2.3.4", Destination: "ST_A", Network: "testnet"}, g.got)
}

func TestHandler_FaucetErrorMapping(t *testing.T) {
	rateLimited := domain.Fail(domain.ErrRateLimited, "", nil)
	rateLimited.RetryAfter = 90 * time.Second

	cases := []struct {
		name       string
		err        error
		status     int
		legacy     int
		code       string
		reason     string
		message    string
		retryAfter string
	}{
		{name: "rate limited", err: rateLimited, status: 429, legacy: 429, retryAfter: "90"},
		{name: "broadcast", err: domain.Fail(domain.ErrBroadcastFailed, "NotEnoughFunds", &domain.Rejection{Reason: "NotEnoughFunds", Message: "transaction rejected"}),
			status: 502, legacy: 200, code: "broadcast_failed", reason: "NotEnoughFunds", message: "ledger rejected transaction: NotEnoughFunds: transaction rejected"},
		{name: "transport", err: domain.Fail(domain.ErrBroadcastFailed, "", fmt.Errorf("broadcast transfer: %w",
			&url.Error{Op: "Post", URL: "http://signer.internal:9000/v1/transfers", Err: errors.New("dial tcp 10.0.0.7:9000: connection refused")})),
			status: 502, legacy: 200, code: "broadcast_failed", message: "ledger unreachable"},
		{name: "timeout", err: domain.Fail(domain.ErrBroadcastFailed, "Timeout", fmt.Errorf("broadcast transfer: %w", context.DeadlineExceeded)),
			status: 502, legacy: 200, code: "broadcast_failed", reason: "Timeout", message: "ledger timed out"},
		{name: "storage", err: domain.Fail(domain.ErrStorage, "", errors.New("sqlite: disk I/O error")),
			status: 500, legacy: 200, code: "storage_error", message: "request log unavailable"},
		{name: "invalid", err: domain.Fail(domain.ErrInvalidRequest, "", errors.New("address is required")),
			status: 400, legacy: 200, code: "invalid_request", message: "address is required"},
		{name: "unknown", err: errors.New("boom"), status: 500, legacy: 200, code: "internal", message: "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, legacy := range []bool{false, true} {
				w := serveFaucet(&Handler{Granter: &fakeGranter{err: tc.err}, LegacyStatusCodes: legacy}, "/faucet?address=ST_A")
				want := tc.status
				if legacy {
					want = tc.legacy
				}
				require.Equal(t, want, w.Code, "legacy=%v", legacy)

				body := decode(t, w)
				require.Equal(t, false, body["success"])
				if tc.retryAfter != "" {
					require.Equal(t, "Too many requests", body["error"])
					require.Equal(t, tc.retryAfter, w.Header().Get("Retry-After"))
					continue
				}
				errObj, ok := body["error"].(map[string]any)
				require.True(t, ok, "error should be an object: %v", body["error"])
				require.Equal(t, tc.code, errObj["code"])
				if tc.reason != "" {
					require.Equal(t, tc.reason, errObj["reason"])
				}
				require.Equal(t, tc.message, body["message"])
			}
		})
	}
}

type fakeReports struct {
	rep application.Report
	err error
}

func (f fakeReports) ListAll(context.Context) (application.Report, error) { return f.rep, f.err }

func TestHandler_Report(t *testing.T) {
	at := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	h := &Handler{Reports: fakeReports{rep: application.Report{Count: 1, Requests: []domain.LedgerEntry{
		{Requester: "1.2.3.4", Destination: "ST_A", TxID: "0x01", GrantedAt: at, Sequence: 3, Network: "testnet", Amount: 10},
	}}}}

	w := httptest.NewRecorder()
	h.Report(w, httptest.NewRequest(http.MethodGet, "/report", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"success":true,"count":1,"requests":[
		{"ip":"1.2.3.4","address":"ST_A","tx_id":"0x01","time":"2026-03-01T12:00:00Z","nonce":3,"network":"testnet","amount":10}
	]}`, w.Body.String())

	h = &Handler{Reports: fakeReports{err: domain.Fail(domain.ErrStorage, "", errors.New("locked"))}}
	w = httptest.NewRecorder()
	h.Report(w, httptest.NewRequest(http.MethodGet, "/report", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

type fakeMainCheck struct {
	res application.MainCheckResult
	err error
}

func (f fakeMainCheck) Check(context.Context, string) (application.MainCheckResult, error) {
	return f.res, f.err
}

func TestHandler_MainCheck(t *testing.T) {
	h := &Handler{MainCheck: fakeMainCheck{res: application.MainCheckResult{MainnetAddress: "SP1", Address: "ST1", Network: "testnet", Balance: "0x10"}}}
	w := httptest.NewRecorder()
	h.MainCheckHandler(w, httptest.NewRequest(http.MethodGet, "/main-check?address=SP1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"success":true,"mainnet_address":"SP1","address":"ST1","network":"testnet","balance":"0x10"}`, w.Body.String())

	h = &Handler{MainCheck: fakeMainCheck{err: errors.New("node down")}}
	w = httptest.NewRecorder()
	h.MainCheckHandler(w, httptest.NewRequest(http.MethodGet, "/main-check?address=SP1", nil))
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Equal(t, "lookup_failed", decode(t, w)["error"].(map[string]any)["code"])
}
