package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kitbuilder587/anime-search-bot/internal/domain"
	"github.com/kitbuilder587/anime-search-bot/internal/repository"
)

type UserService interface {
	GetOrCreate(ctx context.Context, chatID int64, username string) (*domain.User, error)
	Count(ctx context.Context) (int, error)
}

type userService struct {
	repo   repository.UserRepository
	logger *zap.Logger
}

func NewUserService(repo repository.UserRepository, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{
		repo:   repo,
		logger: logger,
	}
}

func (s *userService) GetOrCreate(ctx context.Context, chatID int64, username string) (*domain.User, error) {
	user, err := s.repo.GetOrCreate(ctx, chatID, username)
	if err != nil {
		return nil, fmt.Errorf("get or create user: %w", err)
	}

	s.logger.Debug("user registered",
		zap.Int64("chat_id", chatID),
		zap.String("username", username),
	)
	return user, nil
}

func (s *userService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
