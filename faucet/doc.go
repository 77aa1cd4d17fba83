// Package faucet é o adapter HTTP (net/http + gorilla/mux) do faucet.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (quota, sequência, grant, relatório) sem net/http
//   - infra: implementações concretas (SQLite, cliente do ledger, token bucket, stats)
//   - faucet (este pacote): rotas, extração do requester, middlewares e tradução
//     de erros para status/JSON
//
// Fluxo de GET /faucet:
//
//  1. Extrai o requester (header configurado / XFF / RemoteAddr)
//  2. Escudo de rajada por requester (token bucket) -> 429
//  3. Limite de concorrência -> 503
//  4. Orchestrator.Grant: quota no log -> seção crítica de sequência -> broadcast -> log
//  5. Traduz o resultado para {success, tx_id} ou {success:false, error, message}
//
// GET /report só é montado com ADMIN_TOKEN configurado e exige Bearer token.
package faucet
