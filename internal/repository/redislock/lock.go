package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rc, nil
}

// unlockScript deletes the key only if it still holds our token.
const unlockScript = `if redis.call('GET', KEYS[1]) == ARGV[1] then return redis.call('DEL', KEYS[1]) end; return 0`

// SweepLock is a best-effort mutual exclusion between replicas running the monitor.
// The TTL bounds how long a crashed holder blocks the others.
type SweepLock struct {
	rc  redis.Cmdable
	key string
	ttl time.Duration
	log *zap.Logger
}

func NewSweepLock(rc redis.Cmdable, key string, ttl time.Duration, log *zap.Logger) *SweepLock {
	if key == "" {
		key = "alive:sweep:lock"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SweepLock{rc: rc, key: key, ttl: ttl, log: log.With(zap.String("component", "redis.lock"), zap.String("key", key))}
}

func (l *SweepLock) TryLock(ctx context.Context) (func(context.Context), bool, error) {
	token := uuid.NewString()
	ok, err := l.rc.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}
	unlock := func(ctx context.Context) {
		if err := l.rc.Eval(ctx, unlockScript, []string{l.key}, token).Err(); err != nil && err != redis.Nil {
			l.log.Warn("release failed", zap.Error(err))
		}
	}
	return unlock, true, nil
}
