package infra

import (
	"context"
	"sync"

	"faucet-gateway/faucet/domain"
)

type Counters struct {
	Granted     int64
	RateLimited int64
	Failed      int64
	Resyncs     int64
}

func (c *Counters) add(o domain.Outcome) {
	switch o {
	case domain.OutcomeGranted:
		c.Granted++
	case domain.OutcomeRateLimited:
		c.RateLimited++
	case domain.OutcomeFailed:
		c.Failed++
	case domain.OutcomeResync:
		c.Resyncs++
	}
}

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicada para produção.
type MemoryStatsStore struct {
	mu        sync.Mutex
	total     Counters
	byNetwork map[string]Counters
	byKey     map[domain.Key]Counters
	events    []domain.StatsEvent

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byNetwork: make(map[string]Counters),
		byKey:     make(map[domain.Key]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Outcome)
	s.events = append(s.events, ev)

	c := s.byNetwork[ev.Network]
	c.add(ev.Outcome)
	s.byNetwork[ev.Network] = c

	if s.trackKeys && ev.Requester != "" {
		k := s.byKey[ev.Requester]
		k.add(ev.Outcome)
		s.byKey[ev.Requester] = k
	}
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) Events() []domain.StatsEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.StatsEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *MemoryStatsStore) ByNetwork() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byNetwork))
	for k, v := range s.byNetwork {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) ByKey() map[domain.Key]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Key]Counters, len(s.byKey))
	for k, v := range s.byKey {
		out[k] = v
	}
	return out
}

// FanoutStats entrega cada evento a todos os stores, na ordem.
// Continua mesmo quando um falha e devolve o primeiro erro.
type FanoutStats []domain.StatsStore

func (f FanoutStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var first error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
