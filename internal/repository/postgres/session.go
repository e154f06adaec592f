package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kitbuilder587/anime-search-bot/internal/domain"
)

type SessionRepo struct {
	db *DB
}

func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Get(ctx context.Context, chatID int64) (*domain.SavedSession, error) {
	query := `SELECT chat_id, query, page, updated_at FROM chat_sessions WHERE chat_id = $1`

	var s domain.SavedSession
	err := r.db.Pool.QueryRow(ctx, query, chatID).Scan(
		&s.ChatID,
		&s.Query,
		&s.Page,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &s, nil
}

func (r *SessionRepo) Save(ctx context.Context, chatID int64, query string, page int) error {
	if page < 1 {
		return domain.ErrInvalidPage
	}

	sql := `
        INSERT INTO chat_sessions (chat_id, query, page, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (chat_id) DO UPDATE
        SET query = EXCLUDED.query, page = EXCLUDED.page, updated_at = EXCLUDED.updated_at
    `

	if _, err := r.db.Pool.Exec(ctx, sql, chatID, query, page); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
