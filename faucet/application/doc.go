// Package application contém os casos de uso do faucet.
//
// Ele depende apenas do pacote domain (e do logger) e não conhece net/http.
// Ex.: Orchestrator.Grant(req) consulta a QuotaGate, entra na seção crítica do
// SequenceCoordinator, transmite via domain.Broadcaster e grava o log.
package application
