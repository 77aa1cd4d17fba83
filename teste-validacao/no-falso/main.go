// Command no-falso sobe um nó falso (assinador + contas) para validar o faucet
// de ponta a ponta sem rede real:
//
//	go run ./teste-validacao/no-falso -addr :3999 -nonce 7
//	SIGNER_URL=http://localhost:3999 URL=http://localhost:3999 SECRET_KEY=x go run ./cmd/faucet
//
// Comece o nonce diferente de 0 para ver o resync acontecer no primeiro grant.
package main

import (
	"flag"
	"net/http"
	"time"

	"go.uber.org/zap"
)

func main() {
	addr := flag.String("addr", ":3999", "listen address")
	start := flag.Uint64("nonce", 0, "nonce esperado na primeira transferência")
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer func() { _ = log.Sync() }()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newFakeNode(*start, log).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("nó falso rodando", zap.String("addr", *addr), zap.Uint64("nonce", *start))
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal("erro ao subir o servidor", zap.Error(err))
	}
}
