package domain

import (
	"context"
	"time"
)

// Motivos de negação registrados nas estatísticas de decisão.
const (
	ReasonRateLimit = "rate_limit"
	ReasonBlocklist = "blocklist"
	ReasonSuspicion = "suspicion"
)

// StatsEvent representa uma decisão de admissão.
//
// Method/Path são strings genéricas de propósito; o evento não conhece HTTP.
// Cuidado com cardinalidade ao habilitar rastreio por chave: identidades sem
// controle podem explodir o número de séries em uma base como Redis.
type StatsEvent struct {
	Key     Key
	Allowed bool

	// Reason é vazio quando permitido; caso contrário, um dos Reason*.
	Reason string

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência das estatísticas de decisão.
//
// O middleware trata erro como best-effort: falha de registro jamais altera
// o desfecho da requisição.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
