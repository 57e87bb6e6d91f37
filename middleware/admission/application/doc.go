// Package application contém os casos de uso do controle de admissão:
// resolução de regra por prefixo mais longo, checagem de janela fixa com
// bloqueio persistente, heurística de abuso + blocklist e classificação de
// rotas.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Limiter.Check(ctx, identity, rule) retorna uma Decision
// (allow/deny + headers de rate limit + retry-after).
package application
