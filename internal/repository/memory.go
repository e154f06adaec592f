package repository

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/anime-search-bot/internal/domain"
)

// MemoryUserRepository - хранилище в памяти, когда DATABASE_URL не задан. Годится и для тестов.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[int64]*domain.User // key: ChatID
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[int64]*domain.User),
	}
}

func (m *MemoryUserRepository) GetOrCreate(ctx context.Context, chatID int64, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, exists := m.users[chatID]; exists {
		user.Username = username
		cp := *user
		return &cp, nil
	}

	user := &domain.User{
		ChatID:    chatID,
		Username:  username,
		CreatedAt: time.Now(),
	}
	m.users[chatID] = user
	cp := *user
	return &cp, nil
}

func (m *MemoryUserRepository) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[int64]domain.SavedSession

	// SaveErr - если задан, Save возвращает его (для тестов)
	SaveErr error
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[int64]domain.SavedSession),
	}
}

func (m *MemorySessionRepository) Get(ctx context.Context, chatID int64) (*domain.SavedSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[chatID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemorySessionRepository) Save(ctx context.Context, chatID int64, query string, page int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.sessions[chatID] = domain.SavedSession{
		ChatID:    chatID,
		Query:     query,
		Page:      page,
		UpdatedAt: time.Now(),
	}
	return nil
}
