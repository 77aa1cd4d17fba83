package faucet

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"faucet-gateway/faucet/application"
	"faucet-gateway/faucet/domain"
)

// ShieldOptions configura o escudo de rajada por requester.
type ShieldOptions struct {
	Store               domain.LimiterStore
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	// Networks e DefaultNetwork limitam o rótulo de rede gravado nos stats.
	// Um mode fora dessa lista vira "unknown".
	Networks       []string
	DefaultNetwork string
}

const unknownNetwork = "unknown"

// networkLabel devolve um valor de rede seguro para métricas: nunca o texto cru do cliente.
func networkLabel(mode, def string, known map[string]struct{}) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = def
	}
	if _, ok := known[mode]; ok {
		return mode
	}
	return unknownNetwork
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

// ShieldMiddleware barra rajadas antes de qualquer consulta ao log. A resposta
// tem o mesmo formato do 429 de quota.
func ShieldMiddleware(opts ShieldOptions) func(next http.Handler) http.Handler {
	if opts.Store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc("", false)
	}

	known := make(map[string]struct{}, len(opts.Networks))
	for _, n := range opts.Networks {
		known[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}

	svc := application.Shield{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", string(key))
				if ri, ok := opts.Store.(rateInfo); ok {
					w.Header().Set("X-RateLimit-RPS", formatFloat(ri.RPS()))
					w.Header().Set("X-RateLimit-Burst", formatInt(ri.Burst()))
				}
			}

			dec := svc.Decide(key)
			if !dec.Allowed {
				if opts.Stats != nil {
					_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
						Requester:   key,
						Destination: r.URL.Query().Get("address"),
						Network:     networkLabel(r.URL.Query().Get("mode"), opts.DefaultNetwork, known),
						Outcome:     domain.OutcomeRateLimited,
						At:          time.Now(),
					})
				}
				writeTooManyRequests(w, dec.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly exige "Authorization: Bearer <token>". Token vazio fecha a rota.
func AdminOnly(token string) func(next http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if len(want) == 0 || !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="faucet-admin"`)
				writeJSON(w, http.StatusUnauthorized, failureBody{Success: false, Error: "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
