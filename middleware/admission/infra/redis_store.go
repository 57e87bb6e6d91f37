package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"admission-gateway/middleware/admission/domain"
)

// RedisStore implementa domain.CounterStore sobre um contador atômico
// compartilhado. É o ponto de extensão para implantações com múltiplas
// instâncias do gateway: todas as réplicas enxergam a mesma janela.
//
// Os quatro passos do algoritmo executam dentro de um script Lua, logo a
// unidade atômica por chave vale também entre processos. A expiração fica
// por conta do TTL da chave; não há janitor.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// hitScript executa os passos da janela fixa com bloqueio persistente.
// Retorna {count, resetAt em ms, blocked, justBlocked}.
var hitScript = redis.NewScript(`
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local reset = tonumber(redis.call('HGET', KEYS[1], 'reset') or '0')
if reset == 0 or now > reset then
  reset = now + window
  redis.call('HSET', KEYS[1], 'count', 1, 'blocked', 0, 'reset', reset)
  redis.call('PEXPIREAT', KEYS[1], reset)
  return {1, reset, 0, 0}
end

local blocked = tonumber(redis.call('HGET', KEYS[1], 'blocked') or '0')
local count = tonumber(redis.call('HGET', KEYS[1], 'count') or '0')
if blocked == 1 then
  return {count, reset, 1, 0}
end
if count >= max then
  redis.call('HSET', KEYS[1], 'blocked', 1)
  return {count, reset, 1, 1}
end

count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {count, reset, 0, 0}
`)

// refundScript decrementa sem desfazer bloqueio e sem ir abaixo de zero.
var refundScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
local blocked = tonumber(redis.call('HGET', KEYS[1], 'blocked') or '0')
local count = tonumber(redis.call('HGET', KEYS[1], 'count') or '0')
if blocked == 1 or count <= 0 then
  return 0
end
return redis.call('HINCRBY', KEYS[1], 'count', -1)
`)

type RedisOption func(*RedisStore)

// WithPrefix troca o prefixo das chaves (padrão "admission:counter").
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "admission:counter",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.CounterStore = (*RedisStore)(nil)

// Hit implementa domain.CounterStore.
func (s *RedisStore) Hit(ctx context.Context, key domain.Key, maxRequests int, window time.Duration) (domain.Counter, error) {
	now := time.Now()
	res, err := hitScript.Run(ctx, s.rdb, []string{s.key(key)},
		maxRequests, window.Milliseconds(), now.UnixMilli()).Int64Slice()
	if err != nil {
		return domain.Counter{}, fmt.Errorf("redis counter hit: %w", err)
	}
	if len(res) != 4 {
		return domain.Counter{}, fmt.Errorf("redis counter hit: unexpected reply of length %d", len(res))
	}

	return domain.Counter{
		Count:       int(res[0]),
		ResetAt:     time.UnixMilli(res[1]),
		Blocked:     res[2] == 1,
		JustBlocked: res[3] == 1,
	}, nil
}

// Refund implementa domain.CounterStore.
func (s *RedisStore) Refund(ctx context.Context, key domain.Key) error {
	if err := refundScript.Run(ctx, s.rdb, []string{s.key(key)}).Err(); err != nil {
		return fmt.Errorf("redis counter refund: %w", err)
	}
	return nil
}

func (s *RedisStore) key(key domain.Key) string {
	return s.prefix + ":" + string(key)
}
