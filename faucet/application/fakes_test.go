package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"faucet-gateway/faucet/domain"
)

type fakeLedger struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
	findErr error
	recErr  error
	finds   int
}

func (l *fakeLedger) Record(_ context.Context, e domain.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recErr != nil {
		return l.recErr
	}
	l.entries = append(l.entries, e)
	return nil
}

func (l *fakeLedger) FindRecent(_ context.Context, requester domain.Key, destination string, since time.Time) ([]domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finds++
	if l.findErr != nil {
		return nil, l.findErr
	}
	var out []domain.LedgerEntry
	for _, e := range l.entries {
		if e.Requester == requester && e.Destination == destination && e.GrantedAt.After(since) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GrantedAt.Before(out[j].GrantedAt) })
	return out, nil
}

func (l *fakeLedger) All(_ context.Context) ([]domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.findErr != nil {
		return nil, l.findErr
	}
	out := append([]domain.LedgerEntry(nil), l.entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].GrantedAt.Before(out[j].GrantedAt) })
	return out, nil
}

func (l *fakeLedger) rows() []domain.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.LedgerEntry(nil), l.entries...)
}

// fakeNode imita a rede: aceita só a sequência esperada e responde BadNonce
// com o valor correto quando recebe outra. script permite forçar respostas.
type fakeNode struct {
	mu       sync.Mutex
	expected uint64
	calls    []domain.Transfer
	script   []error
	inFlight int
	maxSeen  int
	delay    time.Duration
}

func (n *fakeNode) BuildAndBroadcastTransfer(ctx context.Context, t domain.Transfer) (string, error) {
	n.mu.Lock()
	n.calls = append(n.calls, t)
	n.inFlight++
	if n.inFlight > n.maxSeen {
		n.maxSeen = n.inFlight
	}
	var scripted error
	hasScript := len(n.script) > 0
	if hasScript {
		scripted = n.script[0]
		n.script = n.script[1:]
	}
	n.mu.Unlock()

	if n.delay > 0 {
		select {
		case <-time.After(n.delay):
		case <-ctx.Done():
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.inFlight--
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if hasScript {
		if scripted != nil {
			return "", scripted
		}
		n.expected = t.Sequence + 1
		return txFor(t.Sequence), nil
	}
	if t.Sequence != n.expected {
		exp := n.expected
		return "", &domain.Rejection{Reason: domain.ReasonBadNonce, Message: "transaction rejected", Expected: &exp}
	}
	n.expected++
	return txFor(t.Sequence), nil
}

func (n *fakeNode) sequences() []uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]uint64, len(n.calls))
	for i, c := range n.calls {
		out[i] = c.Sequence
	}
	return out
}

func txFor(seq uint64) string {
	const hex = "0123456789abcdef"
	return "0x" + string(hex[seq%16]) + "f"
}

func badNonce(expected uint64) error {
	return &domain.Rejection{Reason: domain.ReasonBadNonce, Message: "transaction rejected", Expected: &expected}
}

var errUnreachable = errors.New("dial tcp: connection refused")

// slotPool é um semáforo mínimo para não importar infra nos testes.
type slotPool chan struct{}

func newSlotPool() slotPool { return make(slotPool, 1) }

func (p slotPool) Acquire(ctx context.Context) (func(), bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	select {
	case p <- struct{}{}:
		return func() { <-p }, true
	case <-ctx.Done():
		return nil, false
	}
}

type recordingStats struct {
	mu     sync.Mutex
	events []domain.StatsEvent
}

func (s *recordingStats) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingStats) count(o domain.Outcome) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Outcome == o {
			n++
		}
	}
	return n
}
