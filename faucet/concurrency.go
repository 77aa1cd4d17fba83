package faucet

import (
	"net/http"
	"time"

	"faucet-gateway/faucet/application"
	"faucet-gateway/faucet/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
}

// ConcurrencyMiddleware limita quantos grants ficam em andamento ao mesmo tempo.
// Como todos enfileiram na seção crítica de sequência, isso limita a fila.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				writeJSON(w, opts.RejectStatus, failureBody{
					Success: false,
					Error:   errorBody{Code: "busy"},
					Message: http.StatusText(opts.RejectStatus),
				})
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
