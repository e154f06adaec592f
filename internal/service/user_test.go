package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kitbuilder587/anime-search-bot/internal/domain"
	"github.com/kitbuilder587/anime-search-bot/internal/repository"
)

func TestUserService_GetOrCreate(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name      string
		chatID    int64
		username  string
		setup     func(*repository.MemoryUserRepository)
		wantCount int
	}{
		{
			name:      "new user created",
			chatID:    123,
			username:  "testuser",
			setup:     func(m *repository.MemoryUserRepository) {},
			wantCount: 1,
		},
		{
			name:     "existing user returned",
			chatID:   123,
			username: "testuser",
			setup: func(m *repository.MemoryUserRepository) {
				m.GetOrCreate(context.Background(), 123, "testuser")
			},
			wantCount: 1,
		},
		{
			name:     "username updated",
			chatID:   123,
			username: "newname",
			setup: func(m *repository.MemoryUserRepository) {
				m.GetOrCreate(context.Background(), 123, "oldname")
			},
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryUserRepository()
			tt.setup(repo)

			svc := NewUserService(repo, logger)
			user, err := svc.GetOrCreate(context.Background(), tt.chatID, tt.username)
			if err != nil {
				t.Fatalf("GetOrCreate() error = %v", err)
			}
			if user.ChatID != tt.chatID {
				t.Errorf("user.ChatID = %v, want %v", user.ChatID, tt.chatID)
			}
			if user.Username != tt.username {
				t.Errorf("user.Username = %v, want %v", user.Username, tt.username)
			}

			count, err := svc.Count(context.Background())
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if count != tt.wantCount {
				t.Errorf("Count() = %v, want %v", count, tt.wantCount)
			}
		})
	}
}

func TestUserService_GetOrCreate_RepoError(t *testing.T) {
	repo := &errorMockUserRepo{err: errors.New("database error")}

	svc := NewUserService(repo, zap.NewNop())
	_, err := svc.GetOrCreate(context.Background(), 123, "test")

	if err == nil {
		t.Error("GetOrCreate() expected error, got nil")
	}
}

type errorMockUserRepo struct {
	err error
}

func (m *errorMockUserRepo) GetOrCreate(ctx context.Context, chatID int64, username string) (*domain.User, error) {
	return nil, m.err
}

func (m *errorMockUserRepo) Count(ctx context.Context) (int, error) {
	return 0, m.err
}
