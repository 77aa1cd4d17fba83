package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"faucet-gateway/faucet/domain"

	"go.uber.org/zap"
)

var ErrSequenceBusy = errors.New("sequence coordinator busy")

// SequenceCoordinator é o dono único do próximo número de sequência da conta
// remetente em uma rede. Só quem segura um Lease muta o valor; leituras via
// Current são livres e podem ver um valor prestes a mudar.
type SequenceCoordinator struct {
	network string
	gate    ConcurrencyService
	next    atomic.Uint64
	log     *zap.Logger
}

func NewSequenceCoordinator(network string, start uint64, pool domain.SlotPool, wait time.Duration, log *zap.Logger) *SequenceCoordinator {
	if pool == nil {
		panic("sequence coordinator requires a slot pool")
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &SequenceCoordinator{
		network: network,
		gate:    ConcurrencyService{Pool: pool, AcquireTimeout: wait},
		log:     log,
	}
	c.next.Store(start)
	return c
}

func (c *SequenceCoordinator) Network() string { return c.network }

// Current devolve o próximo número sem mutar.
func (c *SequenceCoordinator) Current() uint64 { return c.next.Load() }

// Acquire entra na seção crítica. Entre Acquire e Release apenas um broadcast
// pode estar usando o número corrente.
func (c *SequenceCoordinator) Acquire(ctx context.Context) (*Lease, error) {
	release, ok := c.gate.Acquire(ctx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSequenceBusy, err)
		}
		return nil, ErrSequenceBusy
	}
	return &Lease{c: c, release: release}, nil
}

// Lease é a posse exclusiva do contador. Não use depois de Release.
type Lease struct {
	c        *SequenceCoordinator
	release  func()
	once     sync.Once
	released atomic.Bool
}

func (l *Lease) Current() uint64 { return l.c.next.Load() }

// Advance soma um, depois de um broadcast aceito pela rede. Devolve o novo valor.
func (l *Lease) Advance() uint64 {
	l.mustHold()
	return l.c.next.Add(1)
}

// ResyncTo sobrescreve o contador com o valor esperado informado pela rede.
func (l *Lease) ResyncTo(expected uint64) {
	l.mustHold()
	prev := l.c.next.Swap(expected)
	l.c.log.Warn("sequence resync",
		zap.String("network", l.c.network),
		zap.Uint64("from", prev),
		zap.Uint64("to", expected),
	)
}

func (l *Lease) Release() {
	l.once.Do(func() {
		l.released.Store(true)
		l.release()
	})
}

func (l *Lease) mustHold() {
	if l.released.Load() {
		panic("sequence lease used after release")
	}
}

// SequenceRegistry guarda um coordenador por rede: cada rede tem seu próprio
// contador para a mesma conta remetente.
type SequenceRegistry struct {
	mu     sync.RWMutex
	coords map[string]*SequenceCoordinator
}

func NewSequenceRegistry() *SequenceRegistry {
	return &SequenceRegistry{coords: make(map[string]*SequenceCoordinator)}
}

// Register adiciona (ou substitui) o coordenador da rede.
func (r *SequenceRegistry) Register(c *SequenceCoordinator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coords[c.network] = c
}

func (r *SequenceRegistry) For(network string) (*SequenceCoordinator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.coords[network]
	return c, ok
}

func (r *SequenceRegistry) Networks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.coords))
	for n := range r.coords {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
