// Package domain define contratos e tipos de domínio do faucet: pedidos de grant,
// o log de requisições, o cliente do ledger externo, quotas e estatísticas.
//
// Este pacote não depende de net/http, de drivers de banco nem de implementações
// concretas. A intenção é permitir testes de unidade puros e desacoplar regras de
// negócio de detalhes de infraestrutura.
package domain
