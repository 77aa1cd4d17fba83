package faucet

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type RouterOptions struct {
	Handler     *Handler
	Shield      ShieldOptions
	Concurrency ConcurrencyOptions
	// AdminToken vazio deixa /report fora do router.
	AdminToken  string
	CORSOrigins []string
	// Metrics é montado em /metrics quando não for nil.
	Metrics http.Handler
}

func NewRouter(opts RouterOptions) http.Handler {
	h := opts.Handler
	log := h.logger()
	if opts.Shield.KeyFn == nil {
		opts.Shield.KeyFn = h.keyFn()
	}

	r := mux.NewRouter()

	grant := http.Handler(http.HandlerFunc(h.Faucet))
	grant = ConcurrencyMiddleware(opts.Concurrency)(grant)
	grant = ShieldMiddleware(opts.Shield)(grant)
	r.Handle("/faucet", grant).Methods(http.MethodGet)

	if opts.AdminToken != "" && h.Reports != nil {
		r.Handle("/report", AdminOnly(opts.AdminToken)(http.HandlerFunc(h.Report))).Methods(http.MethodGet)
	} else {
		log.Warn("ADMIN_TOKEN not set, /report is disabled")
	}

	if h.MainCheck != nil {
		r.HandleFunc("/main-check", h.MainCheckHandler).Methods(http.MethodGet)
	}
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, failureBody{Error: errorBody{Code: "not_found"}, Message: "not found"})
	})

	if len(opts.CORSOrigins) == 0 {
		return r
	}
	log.Info("cors enabled", zap.Strings("origins", opts.CORSOrigins))
	return cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(r)
}
