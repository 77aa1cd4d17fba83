package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

type Key string

// Limiter representa algo que pode decidir se uma ação é permitida agora.
//
// Usado pelo escudo de rajada na borda HTTP (token bucket por requester),
// independente da quota persistida no log de requisições.
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave (ex: IP, API key, usuário).
// A implementação pode manter cache, TTL, etc.
type LimiterStore interface {
	Get(Key) Limiter
}

// Quota descreve quantos grants um par (requester, destino) pode receber
// dentro da janela deslizante.
type Quota struct {
	Window    time.Duration
	MaxGrants int
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
	// Count é o número de grants encontrados na janela no momento da decisão.
	Count int
}
