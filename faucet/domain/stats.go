package domain

import (
	"context"
	"time"
)

type Outcome string

const (
	OutcomeGranted     Outcome = "granted"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeFailed      Outcome = "failed"
	OutcomeResync      Outcome = "resync"
)

// StatsEvent representa um evento do caminho de grant.
//
// Observação: cuidado com cardinalidade (ex.: salvar Requester/Destination sem
// controle pode explodir o número de séries/chaves em Redis/Prometheus).
type StatsEvent struct {
	Requester   Key
	Destination string
	Network     string
	Outcome     Outcome
	// Sequence só é relevante para granted e resync.
	Sequence uint64

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do faucet.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// Quem chama deve tratar erro como best-effort (não derrubar o grant).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
