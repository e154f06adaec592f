package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StateStore - откуда берём начальные query/page и куда пишем каждое изменение.
// Сессия только пишет в него по ходу работы и читает один раз при старте.
type StateStore interface {
	Load(ctx context.Context) (query string, page int, err error)
	Save(ctx context.Context, query string, page int) error
}

type snapshot struct {
	query string
	page  int
}

// persister пишет в StateStore в фоне. Записи сериализованы,
// несколько изменений подряд схлопываются в последнее.
type persister struct {
	store   StateStore
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	pending *snapshot
	signal  chan struct{}
}

func newPersister(store StateStore, timeout time.Duration, logger *zap.Logger) *persister {
	return &persister{
		store:   store,
		timeout: timeout,
		logger:  logger,
		signal:  make(chan struct{}, 1),
	}
}

func (p *persister) push(query string, page int) {
	if p.store == nil {
		return
	}
	p.mu.Lock()
	p.pending = &snapshot{query: query, page: page}
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *persister) run(ctx context.Context) {
	if p.store == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			// последнюю запись не теряем
			p.flush(context.WithoutCancel(ctx))
			return
		case <-p.signal:
			p.flush(ctx)
		}
	}
}

func (p *persister) flush(ctx context.Context) {
	p.mu.Lock()
	snap := p.pending
	p.pending = nil
	p.mu.Unlock()

	if snap == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.store.Save(ctx, snap.query, snap.page); err != nil {
		p.logger.Warn("failed to persist session state",
			zap.String("query", snap.query),
			zap.Int("page", snap.page),
			zap.Error(err),
		)
	}
}
