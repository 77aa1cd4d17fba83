package application

import (
	"time"

	"faucet-gateway/faucet/domain"
)

// Shield decide o escudo de rajada da borda: um limiter por requester, sem
// consultar o log de requisições. A quota de verdade fica na QuotaGate.
type Shield struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

func (s Shield) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}

	lim := s.Store.Get(key)
	if lim == nil || lim.Allow() {
		return domain.Decision{Allowed: true}
	}
	return domain.Decision{Allowed: false, RetryAfter: s.RetryAfter}
}
