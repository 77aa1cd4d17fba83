// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - SQLiteLedger: log de requisições durável (modernc.org/sqlite, migrações embutidas)
//   - MemoryLedger: log em memória para testes e execuções efêmeras
//   - ChainClient: cliente HTTP do assinador e do nó do ledger
//   - Store: token bucket por chave usando golang.org/x/time/rate (escudo de rajada)
//   - ChanPool: semáforo simples (concorrência na borda e seção crítica de sequência)
//   - MemoryStatsStore, RedisStatsStore, Metrics: estatísticas do caminho de grant
package infra
