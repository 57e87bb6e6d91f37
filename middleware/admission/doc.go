// Package admission fornece o adapter HTTP (net/http) do controle de admissão:
// o middleware que inspeciona toda requisição antes do handler de negócio e
// decide entre limitar, bloquear ou encaminhar.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (resolver de regra, janela fixa, heurística,
//     classificação de rota) sem net/http
//   - infra: implementações concretas (store em memória, store Redis,
//     estatísticas, semáforo), detalhes de infraestrutura
//   - admission (este pacote): middleware HTTP + extração de identidade +
//     decoração de headers + tradução de negações para status/JSON
//
// Fluxo por requisição:
//
//  1. Extrai identidade e caminho; assets estáticos fazem bypass do pipeline
//  2. Blocklist: identidade bloqueada responde 403
//  3. Heurística de abuso: casamento nega 403 em caminho de API; em página só loga
//  4. Caminho de API: resolve a regra, contabiliza na janela fixa; estouro responde 429
//  5. Decora headers de segurança (toda resposta) e de rate limit (respostas de API)
//  6. Classifica a rota; protegida-e-não-pública delega ao provedor de autenticação
//
// Qualquer negação curto-circuita com corpo JSON {"error", "retryAfter"?}.
package admission
