package telegram

import (
	"context"
	"sync"

	"github.com/kitbuilder587/anime-search-bot/internal/domain"
)

// renderQueue копит последнее состояние каждого чата. Промежуточные состояния,
// которые не успели отправить, заменяются более новыми.
type renderQueue struct {
	mu      sync.Mutex
	pending map[int64]domain.SessionState
	order   []int64
	signal  chan struct{}
}

func newRenderQueue() *renderQueue {
	return &renderQueue{
		pending: make(map[int64]domain.SessionState),
		signal:  make(chan struct{}, 1),
	}
}

func (q *renderQueue) push(chatID int64, st domain.SessionState) {
	q.mu.Lock()
	if _, queued := q.pending[chatID]; !queued {
		q.order = append(q.order, chatID)
	}
	q.pending[chatID] = st
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *renderQueue) drain() []rendered {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]rendered, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, rendered{chatID: id, state: q.pending[id]})
	}
	q.order = q.order[:0]
	clear(q.pending)
	return out
}

type rendered struct {
	chatID int64
	state  domain.SessionState
}

func (q *renderQueue) run(ctx context.Context, fn func(chatID int64, st domain.SessionState)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.signal:
			for _, r := range q.drain() {
				fn(r.chatID, r.state)
			}
		}
	}
}
