package search

import (
	"context"

	"github.com/kitbuilder587/anime-search-bot/internal/domain"
)

// Client - две удалённые операции каталога.
// Ошибки всегда приводятся к таксономии domain: ErrCancelled, *RateLimitedError,
// *NetworkError, ErrNotFound (только для GetAnimeByID).
type Client interface {
	SearchAnime(ctx context.Context, query string, page int) (*domain.SearchResultPage, error)
	GetAnimeByID(ctx context.Context, id int) (*domain.AnimeDetail, error)
}
