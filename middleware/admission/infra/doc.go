// Package infra contém implementações concretas (infraestrutura) para os
// contratos definidos no pacote domain.
//
// Exemplos:
//   - MemoryStore: contadores de janela fixa por chave em memória, com sweep periódico
//   - RedisStore: mesma semântica sobre contador atômico compartilhado (multi-instância)
//   - MemoryStatsStore / RedisStatsStore: estatísticas de decisão best-effort
//   - ChanPool: semáforo simples para limite de requisições em voo
package infra
