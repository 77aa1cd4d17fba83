package domain

import (
	"context"
	"time"
)

// GrantRequest é o pedido efêmero de um grant (um por chamada HTTP).
type GrantRequest struct {
	Requester   Key
	Destination string
	// Network seleciona o nó do ledger (ex: "testnet"). Vazio usa o padrão.
	Network string
}

// LedgerEntry é uma linha do log de requisições. Linhas nunca são alteradas nem
// removidas; o log é a única fonte para decisões de quota e auditoria.
type LedgerEntry struct {
	Requester   Key       `json:"ip"`
	Destination string    `json:"address"`
	TxID        string    `json:"tx_id"`
	GrantedAt   time.Time `json:"time"`
	Sequence    uint64    `json:"nonce"`
	Network     string    `json:"network,omitempty"`
	Amount      uint64    `json:"amount"`
}

// RequestLedger é o log append-only de grants.
//
// Cada chamada é atômica no storage, mas a sequência check-then-act da quota
// não é envolvida por nenhuma seção crítica.
type RequestLedger interface {
	// Record acrescenta uma linha. Duplicatas são legais.
	Record(ctx context.Context, e LedgerEntry) error
	// FindRecent retorna as linhas do par exato com GrantedAt > since, em ordem crescente.
	FindRecent(ctx context.Context, requester Key, destination string, since time.Time) ([]LedgerEntry, error)
	// All retorna o log inteiro em ordem crescente de tempo.
	All(ctx context.Context) ([]LedgerEntry, error)
}
