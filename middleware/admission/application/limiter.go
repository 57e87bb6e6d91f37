package application

import (
	"context"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// Limiter concentra a regra de aplicação da janela fixa.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas traduz o estado do
// contador em uma Decision. Toda a atomicidade mora no CounterStore.
type Limiter struct {
	Store domain.CounterStore
}

// Check contabiliza um hit para a identidade sob a regra e decide.
//
// O hit é confirmado aqui, antes de qualquer chamada ao provedor de
// autenticação ou ao handler: um downstream lento ou cancelado nunca causa
// dupla contagem nem deixa o store inconsistente.
func (l Limiter) Check(ctx context.Context, identity string, rule domain.Rule) (domain.Decision, error) {
	c, err := l.Store.Hit(ctx, domain.CounterKey(identity, rule), rule.MaxRequests, rule.Window)
	if err != nil {
		return domain.Decision{}, err
	}

	remaining := rule.MaxRequests - c.Count
	if remaining < 0 {
		remaining = 0
	}

	if c.Blocked {
		return domain.Decision{
			Allowed:     false,
			Limit:       rule.MaxRequests,
			Remaining:   0,
			ResetAt:     c.ResetAt,
			RetryAfter:  retryAfter(c.ResetAt),
			JustBlocked: c.JustBlocked,
		}, nil
	}

	return domain.Decision{
		Allowed:   true,
		Limit:     rule.MaxRequests,
		Remaining: remaining,
		ResetAt:   c.ResetAt,
	}, nil
}

// Settle aplica os flags skip-on-* depois que a resposta foi concluída.
//
// Se o desfecho casa com o critério configurado, o hit já contabilizado é
// estornado. O estorno nunca limpa um bloqueio nem decrementa abaixo de zero.
func (l Limiter) Settle(ctx context.Context, identity string, rule domain.Rule, statusCode int) error {
	succeeded := statusCode < 400
	if (rule.SkipOnSuccess && succeeded) || (rule.SkipOnFailure && !succeeded) {
		return l.Store.Refund(ctx, domain.CounterKey(identity, rule))
	}
	return nil
}

// retryAfter arredonda para cima em segundos, com mínimo de 1s: o cliente não
// deve tentar de novo dentro da mesma janela.
func retryAfter(resetAt time.Time) time.Duration {
	d := time.Until(resetAt)
	if d <= 0 {
		return time.Second
	}
	secs := (d + time.Second - 1) / time.Second
	return secs * time.Second
}
