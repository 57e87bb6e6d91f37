package domain

import (
	"context"
	"time"
)

// Counter é o estado de um contador de janela fixa após um hit.
//
// Invariantes: Count nunca decresce dentro da janela (exceto por Refund) e
// nunca fica negativo; Blocked, uma vez verdadeiro, vale até o fim da janela
// (bloqueio persistente); ResetAt está no futuro no momento da criação.
type Counter struct {
	Count   int
	ResetAt time.Time
	Blocked bool

	// JustBlocked indica que este hit fez a transição para o estado bloqueado
	// (passo 3 do algoritmo). Serve para log de evento de segurança; hits
	// seguintes na mesma janela retornam Blocked=true e JustBlocked=false.
	JustBlocked bool
}

// Expired informa se a janela do contador já encerrou.
func (c Counter) Expired(now time.Time) bool {
	return now.After(c.ResetAt)
}

// CounterStore é a capacidade mínima de armazenamento do algoritmo de janela
// fixa com bloqueio persistente.
//
// Hit executa os quatro passos do algoritmo como unidade atômica por chave:
//
//  1. sem registro, ou janela expirada: cria {count=1, reset=now+window,
//     blocked=false} e permite;
//  2. registro bloqueado: nega incondicionalmente, independente do count;
//  3. count >= max: marca blocked=true e nega esta própria requisição;
//  4. caso contrário: incrementa e permite.
//
// Uma leitura seguida de escrita sem atomicidade admite requisições além de
// max sob concorrência, o que é bug de corretude, não aproximação aceitável.
//
// Limitação conhecida: uma implementação local ao processo limita tráfego por
// instância. Implantações com múltiplas réplicas devem plugar uma
// implementação sobre contador atômico compartilhado (ver infra.RedisStore)
// sem tocar no algoritmo.
type CounterStore interface {
	// Hit aplica os passos acima e retorna o estado do contador após a aplicação.
	Hit(ctx context.Context, key Key, maxRequests int, window time.Duration) (Counter, error)

	// Refund desfaz um hit já contabilizado (estorno dos flags skip-on-*).
	// Nunca decrementa abaixo de zero e nunca limpa um bloqueio.
	Refund(ctx context.Context, key Key) error
}

// Decision é o desfecho da checagem de rate limit para uma requisição.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time

	// RetryAfter é a recomendação de espera quando negado. Se 0, não há recomendação.
	RetryAfter time.Duration

	// JustBlocked replica Counter.JustBlocked para fins de auditoria.
	JustBlocked bool
}
