package infra

import (
	"context"
	"sync"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// MemoryStore é a implementação em memória do domain.CounterStore: janela
// fixa com bloqueio persistente, atômica por processo via mutex.
//
// Limita tráfego apenas por instância do gateway. Para múltiplas réplicas,
// use RedisStore; o algoritmo não muda.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[domain.Key]*memoryEntry

	now        func() time.Time
	sweepEvery time.Duration
}

type memoryEntry struct {
	count   int
	resetAt time.Time
	blocked bool
}

type MemoryOption func(*MemoryStore)

// WithClock troca a fonte de tempo (testes).
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// WithSweepEvery ajusta o intervalo do janitor. Zero desabilita.
func WithSweepEvery(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.sweepEvery = d }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries:    make(map[domain.Key]*memoryEntry),
		now:        time.Now,
		sweepEvery: 1 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hit implementa domain.CounterStore. Os quatro passos executam sob o mesmo
// lock, por isso N requisições concorrentes contra uma chave nova com max=N
// resultam em exatamente N permitidas.
func (s *MemoryStore) Hit(_ context.Context, key domain.Key, maxRequests int, window time.Duration) (domain.Counter, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || now.After(ent.resetAt) {
		ent = &memoryEntry{count: 1, resetAt: now.Add(window)}
		s.entries[key] = ent
		return ent.counter(), nil
	}

	if ent.blocked {
		return ent.counter(), nil
	}

	if ent.count >= maxRequests {
		ent.blocked = true
		c := ent.counter()
		c.JustBlocked = true
		return c, nil
	}

	ent.count++
	return ent.counter(), nil
}

// Refund implementa domain.CounterStore. Estorno nunca desfaz bloqueio nem
// leva o contador abaixo de zero; janela expirada é ignorada.
func (s *MemoryStore) Refund(_ context.Context, key domain.Key) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || now.After(ent.resetAt) || ent.blocked || ent.count == 0 {
		return nil
	}
	ent.count--
	return nil
}

func (e *memoryEntry) counter() domain.Counter {
	return domain.Counter{Count: e.count, ResetAt: e.resetAt, Blocked: e.blocked}
}

// Sweep remove contadores de janela expirada. Recuperação de memória apenas:
// a corretude não depende do sweep, porque Hit também checa expiração.
func (s *MemoryStore) Sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if now.After(ent.resetAt) {
			delete(s.entries, k)
		}
	}
}

// Len retorna o número de contadores vivos (para testes e /stats).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor inicia a goroutine que varre contadores expirados em intervalo
// fixo, independente do tráfego. Deve ser chamado uma única vez na
// inicialização do processo; pare cancelando o contexto.
func (s *MemoryStore) StartJanitor(ctx DoneContext) {
	if s.sweepEvery <= 0 {
		return
	}

	t := time.NewTicker(s.sweepEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
}

// DoneContext é o mínimo que o janitor precisa de um context.Context.
type DoneContext interface {
	Done() <-chan struct{}
}
