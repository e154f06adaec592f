package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type queuedUpdate struct {
	ctx    context.Context
	update tgbotapi.Update
}

// updateQueue обрабатывает апдейты одного чата строго в порядке прихода.
// Разные чаты идут параллельно, у каждого активного чата одна горутина.
type updateQueue struct {
	mu      sync.Mutex
	pending map[int64][]queuedUpdate
	wg      sync.WaitGroup
	handle  func(ctx context.Context, update tgbotapi.Update)
}

func newUpdateQueue(handle func(ctx context.Context, update tgbotapi.Update)) *updateQueue {
	return &updateQueue{
		pending: make(map[int64][]queuedUpdate),
		handle:  handle,
	}
}

func (q *updateQueue) push(ctx context.Context, update tgbotapi.Update) {
	chatID := updateChatID(update)

	q.mu.Lock()
	backlog, busy := q.pending[chatID]
	q.pending[chatID] = append(backlog, queuedUpdate{ctx: ctx, update: update})
	if !busy {
		q.wg.Add(1)
		go q.drain(chatID)
	}
	q.mu.Unlock()
}

// wait ждёт, пока разберутся все уже принятые апдейты
func (q *updateQueue) wait() {
	q.wg.Wait()
}

// drain живёт, пока у чата есть очередь; пустая очередь удаляется
func (q *updateQueue) drain(chatID int64) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		backlog := q.pending[chatID]
		if len(backlog) == 0 {
			delete(q.pending, chatID)
			q.mu.Unlock()
			return
		}
		next := backlog[0]
		q.pending[chatID] = backlog[1:]
		q.mu.Unlock()

		q.handle(next.ctx, next.update)
	}
}
