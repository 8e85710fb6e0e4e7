package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"roombook/config"
	"roombook/infras/otel"
	"roombook/shared/constant"

	"github.com/google/uuid"
	goRedis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	otelLockKeyAttribute = "lock.key"
	keyPrefix            = "lock"
	redisRetryInterval   = 25 * time.Millisecond
	defaultTTLSeconds    = 10
)

var ErrNotAcquired = errors.New("lock not acquired")

// Unlock releases a held lock. Calling it more than once is a no-op.
type Unlock func()

// Locker serializes critical sections sharing the same key.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// New picks the backend configured in SCHEDULING_LOCK_BACKEND.
func New(cfg *config.Config, client *goRedis.Client, ot otel.Otel) Locker {
	if cfg.Scheduling.LockBackend == constant.LockBackendRedis {
		ttl := cfg.Scheduling.LockTTLSeconds
		if ttl <= 0 {
			ttl = defaultTTLSeconds
		}

		log.Info().Int("ttl_seconds", ttl).Msg("Using redis lock backend")

		return NewRedis(client, ot, time.Duration(ttl)*time.Second)
	}

	log.Info().Msg("Using local lock backend")

	return NewLocal(ot)
}

func Key(kind, id string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, kind, id)
}

type entry struct {
	slot chan struct{}
	refs int
}

type localLocker struct {
	mu      sync.Mutex
	entries map[string]*entry
	otel    otel.Otel
}

// NewLocal returns an in-process keyed mutex that honours context cancellation while waiting.
func NewLocal(ot otel.Otel) Locker {
	return &localLocker{
		entries: make(map[string]*entry),
		otel:    ot,
	}
}

func (l *localLocker) Lock(ctx context.Context, key string) (unlock Unlock, err error) {
	ctx, scope := l.otel.NewScope(ctx, constant.OtelLockScopeName, constant.OtelLockScopeName+".local.Lock")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttribute(otelLockKeyAttribute, key)

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)

		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, ctx.Err())
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			<-e.slot
			l.release(key, e)
		})
	}, nil
}

func (l *localLocker) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

var unlockScript = goRedis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *goRedis.Client
	otel   otel.Otel
	ttl    time.Duration
}

// NewRedis returns a lock shared by every instance pointing at the same redis.
// The ttl bounds how long a crashed holder can block others.
func NewRedis(client *goRedis.Client, ot otel.Otel, ttl time.Duration) Locker {
	return &redisLocker{
		client: client,
		otel:   ot,
		ttl:    ttl,
	}
}

func (r *redisLocker) Lock(ctx context.Context, key string) (unlock Unlock, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelLockScopeName, constant.OtelLockScopeName+".redis.Lock")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttribute(otelLockKeyAttribute, key)

	token := uuid.NewString()
	ticker := time.NewTicker(redisRetryInterval)
	defer ticker.Stop()

	for {
		acquired, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to acquire redis lock")

			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}

		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire lock %s: %w: %w", key, ErrNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			c, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.ttl)
			defer cancel()

			if err := unlockScript.Run(c, r.client, []string{key}, token).Err(); err != nil {
				log.Error().Err(err).Str("key", key).Msg("failed to release redis lock")
			}
		})
	}, nil
}
