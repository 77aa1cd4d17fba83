package infra

import (
	"context"
	"sort"
	"sync"
	"time"

	"faucet-gateway/faucet/domain"
)

// MemoryLedger é um log de requisições em memória. Não sobrevive a restart;
// serve para testes e para rodar o faucet sem disco (DB_PATH vazio).
type MemoryLedger struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
	now     func() time.Time
}

var _ domain.RequestLedger = (*MemoryLedger)(nil)

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{now: time.Now}
}

func (m *MemoryLedger) Record(_ context.Context, e domain.LedgerEntry) error {
	if e.GrantedAt.IsZero() {
		e.GrantedAt = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryLedger) FindRecent(_ context.Context, requester domain.Key, destination string, since time.Time) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.LedgerEntry{}
	for _, e := range m.entries {
		if e.Requester == requester && e.Destination == destination && e.GrantedAt.After(since) {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (m *MemoryLedger) All(_ context.Context) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.LedgerEntry, len(m.entries))
	copy(out, m.entries)
	sortEntries(out)
	return out, nil
}

// estável: empates de tempo mantêm a ordem de inserção, como o ORDER BY id do SQLite.
func sortEntries(es []domain.LedgerEntry) {
	sort.SliceStable(es, func(i, j int) bool { return es[i].GrantedAt.Before(es[j].GrantedAt) })
}
