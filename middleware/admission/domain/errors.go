package domain

import "errors"

// Taxonomia de erros da camada de admissão.
//
// Erros de configuração são fatais no boot (o resolver precisa ser total).
// Os demais são resolvidos localmente em resposta HTTP estruturada e nunca
// propagam além do middleware.
var (
	// ErrMissingCatchAll indica tabela de regras sem a regra catch-all da API.
	ErrMissingCatchAll = errors.New("rule table: missing catch-all rule for the api prefix")

	// ErrDuplicatePrefix indica dois prefixos idênticos na tabela de regras.
	ErrDuplicatePrefix = errors.New("rule table: duplicate path prefix")

	// ErrRateLimited é o desfecho recuperável: o cliente pode tentar de novo
	// após RetryAfter (HTTP 429).
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrBlocklisted é negação definitiva por identidade bloqueada (HTTP 403).
	ErrBlocklisted = errors.New("client identity is blocklisted")

	// ErrSuspicious é negação por assinatura de abuso em caminho de API (HTTP 403).
	ErrSuspicious = errors.New("request matched an abuse signature")
)
