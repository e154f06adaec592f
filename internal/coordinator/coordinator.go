package coordinator

import (
	"context"
	"sync"
)

// Token - хендл отмены одного логического запроса.
// Наружу отдаётся только его контекст, отменять может лишь Coordinator или сам владелец.
type Token struct {
	id     uint64
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *Token) ID() uint64 { return t.id }

// Context передаётся в клиент API; отмена токена отменяет и его
func (t *Token) Context() context.Context { return t.ctx }

// Cancel помечает токен мёртвым. Повторные вызовы безопасны.
func (t *Token) Cancel() { t.cancel() }

func (t *Token) Cancelled() bool { return t.ctx.Err() != nil }

// Coordinator гарантирует, что в каждый момент живой не более чем один токен.
// Start отменяет предыдущий живой токен перед выдачей нового.
type Coordinator struct {
	mu     sync.Mutex
	parent context.Context
	nextID uint64
	live   *Token
}

func New(parent context.Context) *Coordinator {
	if parent == nil {
		parent = context.Background()
	}
	return &Coordinator{parent: parent}
}

func (c *Coordinator) Start() *Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live != nil {
		c.live.cancel()
	}

	c.nextID++
	ctx, cancel := context.WithCancel(c.parent)
	t := &Token{id: c.nextID, ctx: ctx, cancel: cancel}
	c.live = t
	return t
}

// IsLive - токен последний выданный, не отменён и не завершён
func (c *Coordinator) IsLive(t *Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isLiveLocked(t)
}

// Complete вызывается в точке потребления результата.
// true - результат принадлежит живому запросу и его можно применять;
// false - запрос устарел, результат надо выбросить.
// В обоих случаях токен после вызова мёртв.
func (c *Coordinator) Complete(t *Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.isLiveLocked(t)
	if live {
		c.live = nil
	}
	if t != nil {
		t.cancel()
	}
	return live
}

// CancelLive отменяет текущий живой токен, если он есть
func (c *Coordinator) CancelLive() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live != nil {
		c.live.cancel()
		c.live = nil
	}
}

// HasLive - есть ли запрос в полёте
func (c *Coordinator) HasLive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live != nil && c.live.ctx.Err() == nil
}

func (c *Coordinator) isLiveLocked(t *Token) bool {
	return t != nil && c.live == t && t.ctx.Err() == nil
}
