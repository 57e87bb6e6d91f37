package application

import (
	"fmt"
	"strings"

	"admission-gateway/middleware/admission/domain"
)

// Resolver mapeia o caminho da requisição para a única regra aplicável.
//
// A resolução é uma função total sobre caminhos de API: todo caminho sob o
// prefixo da API resolve para exatamente uma regra (a de prefixo casado mais
// longo, ou o catch-all). Caminhos fora da API não resolvem para regra alguma
// e nunca são limitados, apenas decorados.
type Resolver struct {
	apiPrefix string
	rules     []domain.Rule
	catchAll  domain.Rule
}

// NewResolver valida a tabela de regras e constrói o resolver.
//
// Dois prefixos idênticos são erro de configuração, assim como a ausência da
// regra catch-all (PathPrefix == apiPrefix). Ambos são fatais no boot.
func NewResolver(apiPrefix string, rules []domain.Rule) (*Resolver, error) {
	if apiPrefix == "" {
		return nil, fmt.Errorf("resolver: api prefix is required")
	}

	seen := make(map[string]struct{}, len(rules))
	var catchAll *domain.Rule
	for i, r := range rules {
		if r.PathPrefix == "" {
			return nil, fmt.Errorf("resolver: rule %d has empty path prefix", i)
		}
		if r.MaxRequests <= 0 || r.Window <= 0 {
			return nil, fmt.Errorf("resolver: rule %q must have positive window and max requests", r.PathPrefix)
		}
		if _, dup := seen[r.PathPrefix]; dup {
			return nil, fmt.Errorf("%w: %q", domain.ErrDuplicatePrefix, r.PathPrefix)
		}
		seen[r.PathPrefix] = struct{}{}
		if r.PathPrefix == apiPrefix {
			catchAll = &rules[i]
		}
	}
	if catchAll == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrMissingCatchAll, apiPrefix)
	}

	return &Resolver{
		apiPrefix: apiPrefix,
		rules:     append([]domain.Rule(nil), rules...),
		catchAll:  *catchAll,
	}, nil
}

// IsAPIPath informa se o caminho está sob o prefixo reservado da API.
func (r *Resolver) IsAPIPath(path string) bool {
	return strings.HasPrefix(path, r.apiPrefix)
}

// Resolve retorna a regra de prefixo casado mais longo e true; para caminhos
// de API sem regra específica, o catch-all; para caminhos fora da API, false.
//
// Desempate é irrelevante: dois prefixos de mesmo comprimento só casam o
// mesmo caminho se forem strings idênticas, o que NewResolver rejeita.
func (r *Resolver) Resolve(path string) (domain.Rule, bool) {
	var (
		best    domain.Rule
		bestLen = -1
	)
	for _, rule := range r.rules {
		if len(rule.PathPrefix) > bestLen && strings.HasPrefix(path, rule.PathPrefix) {
			best = rule
			bestLen = len(rule.PathPrefix)
		}
	}
	if bestLen >= 0 {
		return best, true
	}
	if r.IsAPIPath(path) {
		return r.catchAll, true
	}
	return domain.Rule{}, false
}
