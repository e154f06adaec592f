package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultPerMinute = 20
	cleanupInterval  = 5 * time.Minute
)

// Limiter - входящий лимит сообщений на чат (token bucket).
// Корзина на чат заводится лениво и удаляется, если чат долго молчит.
type Limiter struct {
	mu      sync.Mutex
	buckets map[int64]*bucket
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type Config struct {
	RequestsPerMinute int
}

func New(cfg Config) *Limiter {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = defaultPerMinute
	}

	return &Limiter{
		buckets: make(map[int64]*bucket),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		idle:    time.Minute,
		now:     time.Now,
	}
}

func (l *Limiter) Allow(chatID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	return l.get(chatID, now).lim.AllowN(now, 1)
}

func (l *Limiter) RemainingRequests(chatID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	tokens := l.get(chatID, now).lim.TokensAt(now)
	if tokens <= 0 {
		return 0
	}
	return int(math.Floor(tokens))
}

// RetryAfter - через сколько появится следующий токен, 0 если уже есть
func (l *Limiter) RetryAfter(chatID int64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	tokens := l.get(chatID, now).lim.TokensAt(now)
	if tokens >= 1 {
		return 0
	}
	missing := 1 - tokens
	return time.Duration(missing / float64(l.limit) * float64(time.Second))
}

// Run чистит корзины молчащих чатов до отмены ctx
func (l *Limiter) Run(ctx context.Context) {
	tick := time.NewTicker(cleanupInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			l.cleanup()
		}
	}
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, b := range l.buckets {
		// полная корзина ничем не отличается от новой
		if now.Sub(b.lastSeen) > l.idle && b.lim.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, id)
		}
	}
}

func (l *Limiter) get(chatID int64, now time.Time) *bucket {
	b, ok := l.buckets[chatID]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[chatID] = b
	}
	b.lastSeen = now
	return b
}
