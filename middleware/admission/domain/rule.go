package domain

// Camada de domínio do controle de admissão.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// Key identifica um contador: identidade do cliente + prefixo da regra resolvida.
type Key string

// Rule descreve o limite de requisições aplicado a um prefixo de caminho.
//
// A tabela de regras é imutável após o boot. Exatamente uma regra deve ter
// PathPrefix igual ao prefixo reservado da API; ela funciona como catch-all
// para caminhos de API sem regra mais específica.
type Rule struct {
	PathPrefix  string
	Window      time.Duration
	MaxRequests int

	// SkipOnSuccess/SkipOnFailure excluem da contagem requisições cujo
	// desfecho casa com o critério. O hit é contabilizado antes do handler
	// (ver Limiter) e estornado depois, via CounterStore.Refund.
	SkipOnSuccess bool
	SkipOnFailure bool
}

// CounterKey monta a chave do contador para uma identidade sob uma regra.
func CounterKey(identity string, r Rule) Key {
	return Key(identity + ":" + r.PathPrefix)
}
