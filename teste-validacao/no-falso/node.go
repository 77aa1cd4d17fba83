package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// fakeNode faz o papel do assinador e do nó ao mesmo tempo: aceita uma
// transferência só com o nonce esperado e responde BadNonce caso contrário.
type fakeNode struct {
	mu       sync.Mutex
	nonce    uint64
	balances map[string]uint64
	log      *zap.Logger
}

func newFakeNode(start uint64, log *zap.Logger) *fakeNode {
	return &fakeNode{nonce: start, balances: map[string]uint64{}, log: log}
}

type transfer struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Nonce     uint64 `json:"nonce"`
	SenderKey string `json:"sender_key"`
	Network   string `json:"network"`
	Memo      string `json:"memo"`
}

func (n *fakeNode) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/v1/transfers", n.transfers).Methods(http.MethodPost)
	r.HandleFunc("/v1/address/translate", n.translate).Methods(http.MethodGet)
	r.HandleFunc("/v2/accounts/{address}", n.account).Methods(http.MethodGet)
	return r
}

func (n *fakeNode) transfers(w http.ResponseWriter, r *http.Request) {
	var t transfer
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		reply(w, http.StatusBadRequest, map[string]any{"error": "malformed transfer", "reason": "Deserialization"})
		return
	}
	if t.SenderKey == "" || t.Recipient == "" {
		reply(w, http.StatusBadRequest, map[string]any{"error": "transaction rejected", "reason": "BadTransaction"})
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if t.Nonce != n.nonce {
		n.log.Info("nonce recusado", zap.Uint64("got", t.Nonce), zap.Uint64("expected", n.nonce))
		reply(w, http.StatusBadRequest, map[string]any{
			"error":       "transaction rejected",
			"reason":      "BadNonce",
			"reason_data": map[string]uint64{"expected": n.nonce, "actual": t.Nonce},
		})
		return
	}
	n.nonce++
	n.balances[t.Recipient] += t.Amount

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%d/%s", t.Recipient, t.Nonce, t.Memo)))
	txid := hex.EncodeToString(sum[:])
	n.log.Info("transferência aceita", zap.String("recipient", t.Recipient), zap.Uint64("nonce", t.Nonce), zap.String("txid", txid))
	reply(w, http.StatusOK, txid)
}

func (n *fakeNode) account(w http.ResponseWriter, r *http.Request) {
	addr := mux.Vars(r)["address"]
	n.mu.Lock()
	bal := n.balances[addr]
	nonce := uint64(0)
	// só a conta que assina tem nonce; aqui qualquer endereço começado por "SENDER" conta.
	if strings.HasPrefix(addr, "SENDER") {
		nonce = n.nonce
	}
	n.mu.Unlock()
	reply(w, http.StatusOK, map[string]any{
		"balance": "0x" + strconv.FormatUint(bal, 16),
		"nonce":   nonce,
	})
}

func (n *fakeNode) translate(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("address")
	if addr == "" {
		reply(w, http.StatusBadRequest, map[string]any{"error": "address is required"})
		return
	}
	// SP... (mainnet) vira ST... (testnet), o resto passa como veio.
	if rest, ok := strings.CutPrefix(addr, "SP"); ok {
		addr = "ST" + rest
	}
	reply(w, http.StatusOK, map[string]string{"address": addr})
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
