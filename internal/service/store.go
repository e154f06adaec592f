package service

import (
	"context"
	"errors"

	"github.com/kitbuilder587/anime-search-bot/internal/domain"
	"github.com/kitbuilder587/anime-search-bot/internal/repository"
	"github.com/kitbuilder587/anime-search-bot/internal/session"
)

// chatStore - StateStore сессии поверх репозитория, привязанный к одному чату
type chatStore struct {
	repo   repository.SessionRepository
	chatID int64
}

func NewStateStore(repo repository.SessionRepository, chatID int64) session.StateStore {
	return &chatStore{repo: repo, chatID: chatID}
}

func (s *chatStore) Load(ctx context.Context) (string, int, error) {
	saved, err := s.repo.Get(ctx, s.chatID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return "", 1, nil
	}
	if err != nil {
		return "", 1, err
	}
	return saved.Query, saved.Page, nil
}

func (s *chatStore) Save(ctx context.Context, query string, page int) error {
	return s.repo.Save(ctx, s.chatID, query, page)
}
