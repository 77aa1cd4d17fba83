package application

import (
	"context"
	"fmt"
	"time"

	"faucet-gateway/faucet/domain"
)

// QuotaGate decide se um par (requester, destino) ainda cabe na quota olhando o
// log de requisições.
//
// A decisão não é atômica com a gravação: rajadas simultâneas podem ver a mesma
// contagem e passar juntas. O escudo de rajada na borda reduz, mas não fecha, essa janela.
type QuotaGate struct {
	Ledger domain.RequestLedger
	Now    func() time.Time
}

// Allow permite iff len(FindRecent(now-Window)) < MaxGrants.
// Falha de consulta volta como erro (ErrStorage) e nunca como "permitido".
func (g QuotaGate) Allow(ctx context.Context, requester domain.Key, destination string, q domain.Quota) (domain.Decision, error) {
	if g.Ledger == nil || q.MaxGrants <= 0 || q.Window <= 0 {
		return domain.Decision{Allowed: true}, nil
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	at := now()

	recent, err := g.Ledger.FindRecent(ctx, requester, destination, at.Add(-q.Window))
	if err != nil {
		return domain.Decision{}, fmt.Errorf("quota check: %w", err)
	}

	dec := domain.Decision{Allowed: len(recent) < q.MaxGrants, Count: len(recent)}
	if dec.Allowed {
		return dec, nil
	}

	// FindRecent é crescente: a vaga abre quando recent[n-MaxGrants] sair da janela.
	oldest := recent[len(recent)-q.MaxGrants].GrantedAt
	if wait := oldest.Add(q.Window).Sub(at); wait > 0 {
		dec.RetryAfter = wait
	}
	return dec, nil
}
