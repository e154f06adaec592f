package repository

import (
	"context"

	"github.com/kitbuilder587/anime-search-bot/internal/domain"
)

type UserRepository interface {
	GetOrCreate(ctx context.Context, chatID int64, username string) (*domain.User, error)
	Count(ctx context.Context) (int, error)
}

// SessionRepository хранит последние query/page каждого чата.
// Get возвращает domain.ErrSessionNotFound, если чат ещё ничего не искал.
type SessionRepository interface {
	Get(ctx context.Context, chatID int64) (*domain.SavedSession, error)
	Save(ctx context.Context, chatID int64, query string, page int) error
}
