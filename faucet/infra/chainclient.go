package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"faucet-gateway/faucet/domain"

	"go.uber.org/zap"
)

const maxReplyBytes = 1 << 20

// ChainClient fala com dois colaboradores externos: o serviço assinador, que monta,
// assina e transmite a transferência, e o nó do ledger, para leituras de conta.
type ChainClient struct {
	signerURL string
	http      *http.Client
	log       *zap.Logger
}

var (
	_ domain.Broadcaster   = (*ChainClient)(nil)
	_ domain.AccountReader = (*ChainClient)(nil)
)

type ChainClientOption func(*ChainClient)

func WithHTTPClient(c *http.Client) ChainClientOption {
	return func(cc *ChainClient) { cc.http = c }
}

func WithChainLogger(l *zap.Logger) ChainClientOption {
	return func(cc *ChainClient) { cc.log = l }
}

func NewChainClient(signerURL string, opts ...ChainClientOption) *ChainClient {
	c := &ChainClient{
		signerURL: strings.TrimSuffix(strings.TrimSpace(signerURL), "/"),
		http:      &http.Client{Timeout: 30 * time.Second},
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type transferRequest struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Nonce     uint64 `json:"nonce"`
	SenderKey string `json:"sender_key"`
	Network   string `json:"network,omitempty"`
	NodeURL   string `json:"node_url,omitempty"`
	Memo      string `json:"memo,omitempty"`
}

// broadcastReply segue o formato do nó: sucesso traz txid; rejeição traz
// error/reason e, para BadNonce, reason_data.expected.
type broadcastReply struct {
	TxID       string `json:"txid"`
	Error      string `json:"error"`
	Reason     string `json:"reason"`
	ReasonData struct {
		Expected *uint64 `json:"expected"`
		Actual   *uint64 `json:"actual"`
	} `json:"reason_data"`
}

func (c *ChainClient) BuildAndBroadcastTransfer(ctx context.Context, t domain.Transfer) (string, error) {
	body, err := json.Marshal(transferRequest{
		Recipient: t.Destination,
		Amount:    t.Amount,
		Nonce:     t.Sequence,
		SenderKey: t.SigningKey.Reveal(),
		Network:   t.Network,
		NodeURL:   t.NodeURL,
		Memo:      t.Memo,
	})
	if err != nil {
		return "", fmt.Errorf("encode transfer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.signerURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, raw, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("broadcast transfer: %w", err)
	}
	c.log.Debug("broadcast reply",
		zap.Int("status", status),
		zap.Uint64("nonce", t.Sequence),
		zap.String("recipient", t.Destination),
	)
	return parseBroadcastReply(status, raw)
}

func parseBroadcastReply(status int, raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)

	// alguns nós respondem só com o txid em JSON string.
	if status/100 == 2 && len(trimmed) > 0 && trimmed[0] == '"' {
		var txid string
		if err := json.Unmarshal(trimmed, &txid); err != nil {
			return "", fmt.Errorf("decode broadcast reply: %w", err)
		}
		return normalizeTxID(txid)
	}

	var reply broadcastReply
	if err := json.Unmarshal(trimmed, &reply); err != nil {
		return "", fmt.Errorf("decode broadcast reply (status %d): %w", status, err)
	}
	if reply.Error != "" || reply.Reason != "" {
		return "", &domain.Rejection{
			Reason:   reply.Reason,
			Message:  reply.Error,
			Expected: reply.ReasonData.Expected,
		}
	}
	if status/100 != 2 {
		return "", fmt.Errorf("signer returned status %d", status)
	}
	return normalizeTxID(reply.TxID)
}

func normalizeTxID(txid string) (string, error) {
	txid = strings.TrimPrefix(strings.TrimSpace(txid), "0x")
	if txid == "" {
		return "", errors.New("broadcast reply without txid")
	}
	return "0x" + txid, nil
}

type accountReply struct {
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

func (c *ChainClient) account(ctx context.Context, nodeURL, address string) (accountReply, error) {
	u := strings.TrimSuffix(nodeURL, "/") + "/v2/accounts/" + url.PathEscape(address) + "?proof=0"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return accountReply{}, fmt.Errorf("build account request: %w", err)
	}
	status, raw, err := c.do(req)
	if err != nil {
		return accountReply{}, fmt.Errorf("get account: %w", err)
	}
	if status != http.StatusOK {
		return accountReply{}, fmt.Errorf("get account: node returned status %d", status)
	}
	var reply accountReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return accountReply{}, fmt.Errorf("decode account reply: %w", err)
	}
	return reply, nil
}

func (c *ChainClient) AccountNonce(ctx context.Context, nodeURL, address string) (uint64, error) {
	reply, err := c.account(ctx, nodeURL, address)
	if err != nil {
		return 0, err
	}
	return reply.Nonce, nil
}

func (c *ChainClient) AccountBalance(ctx context.Context, nodeURL, address string) (string, error) {
	reply, err := c.account(ctx, nodeURL, address)
	if err != nil {
		return "", err
	}
	return reply.Balance, nil
}

func (c *ChainClient) TranslateAddress(ctx context.Context, address, network string) (string, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("network", network)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.signerURL+"/v1/address/translate?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build translate request: %w", err)
	}
	status, raw, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("translate address: %w", err)
	}
	var reply struct {
		Address string `json:"address"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", fmt.Errorf("decode translate reply (status %d): %w", status, err)
	}
	if status != http.StatusOK || reply.Address == "" {
		if reply.Error != "" {
			return "", fmt.Errorf("translate address: %s", reply.Error)
		}
		return "", fmt.Errorf("translate address: signer returned status %d", status)
	}
	return reply.Address, nil
}

func (c *ChainClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read reply: %w", err)
	}
	return resp.StatusCode, raw, nil
}
