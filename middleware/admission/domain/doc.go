// Package domain define contratos e tipos de domínio para o controle de admissão:
// regras de rate limit, contadores de janela fixa, veredito de suspeita e
// classificação de rotas.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar o algoritmo
// de admissão de detalhes de infraestrutura (memória, Redis, etc).
package domain
