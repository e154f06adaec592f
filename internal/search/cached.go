package search

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kitbuilder587/anime-search-bot/internal/cache"
	"github.com/kitbuilder587/anime-search-bot/internal/domain"
	"github.com/kitbuilder587/anime-search-bot/internal/metrics"
)

const DefaultHitDelay = 300 * time.Millisecond

var tracer = otel.Tracer("github.com/kitbuilder587/anime-search-bot/internal/search")

const (
	opSearch = "search"
	opDetail = "detail"

	sourceCache    = "cache"
	sourceUpstream = "upstream"
)

type CachingConfig struct {
	// HitDelay - минимальная задержка ответа из кеша, чтобы состояние loading было видно.
	// 0 - без задержки.
	HitDelay time.Duration
}

// CachingClient - read-through кеш поверх удалённого клиента
type CachingClient struct {
	upstream Client
	store    *cache.Store
	hitDelay time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewCachingClient(upstream Client, store *cache.Store, cfg CachingConfig, logger *zap.Logger, m *metrics.Metrics) *CachingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HitDelay < 0 {
		cfg.HitDelay = 0
	}
	return &CachingClient{
		upstream: upstream,
		store:    store,
		hitDelay: cfg.HitDelay,
		logger:   logger,
		metrics:  m,
	}
}

func (c *CachingClient) SearchAnime(ctx context.Context, query string, page int) (_ *domain.SearchResultPage, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "search.SearchAnime", trace.WithAttributes(
		attribute.String("anime.query", query),
		attribute.Int("anime.page", page),
	))
	defer func() { endSpan(span, err) }()

	q := domain.NewSearchQuery(query, page)
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctxError(ctx); err != nil {
		return nil, c.finish(opSearch, sourceCache, start, err)
	}

	if cached, ok := c.store.GetSearch(q.Text, q.Page); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		c.recordCache(opSearch, true)
		if err := c.pause(ctx); err != nil {
			return nil, c.finish(opSearch, sourceCache, start, err)
		}
		c.logger.Debug("search cache hit", zap.String("query", q.Text), zap.Int("page", q.Page))
		c.finish(opSearch, sourceCache, start, nil)
		return &cached, nil
	}
	c.recordCache(opSearch, false)

	result, err := c.upstream.SearchAnime(ctx, q.Text, q.Page)
	if err != nil {
		return nil, c.finish(opSearch, sourceUpstream, start, normalizeError(ctx, err))
	}
	// ответ пришёл, но запрос уже отменён: в кеш не пишем
	if err := ctxError(ctx); err != nil {
		return nil, c.finish(opSearch, sourceUpstream, start, err)
	}
	if err := result.Pagination.Validate(); err != nil {
		return nil, c.finish(opSearch, sourceUpstream, start,
			&domain.NetworkError{Message: "malformed pagination in response", Err: err})
	}

	c.store.SetSearch(q.Text, q.Page, *result)
	c.finish(opSearch, sourceUpstream, start, nil)
	return result, nil
}

func (c *CachingClient) GetAnimeByID(ctx context.Context, id int) (_ *domain.AnimeDetail, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "search.GetAnimeByID", trace.WithAttributes(
		attribute.Int("anime.id", id),
	))
	defer func() { endSpan(span, err) }()

	if id <= 0 {
		return nil, domain.ErrInvalidID
	}
	if err := ctxError(ctx); err != nil {
		return nil, c.finish(opDetail, sourceCache, start, err)
	}

	if cached, ok := c.store.GetDetail(id); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		c.recordCache(opDetail, true)
		if err := c.pause(ctx); err != nil {
			return nil, c.finish(opDetail, sourceCache, start, err)
		}
		c.finish(opDetail, sourceCache, start, nil)
		return &cached, nil
	}
	c.recordCache(opDetail, false)

	anime, err := c.upstream.GetAnimeByID(ctx, id)
	if err != nil {
		return nil, c.finish(opDetail, sourceUpstream, start, normalizeError(ctx, err))
	}
	if err := ctxError(ctx); err != nil {
		return nil, c.finish(opDetail, sourceUpstream, start, err)
	}

	c.store.SetDetail(id, *anime)
	c.finish(opDetail, sourceUpstream, start, nil)
	return anime, nil
}

func (c *CachingClient) Stats() cache.Stats {
	return c.store.Stats()
}

func (c *CachingClient) pause(ctx context.Context) error {
	if c.hitDelay <= 0 {
		return nil
	}
	t := time.NewTimer(c.hitDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctxError(ctx)
	case <-t.C:
		return nil
	}
}

func (c *CachingClient) recordCache(op string, hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.RecordCacheHit(op)
	} else {
		c.metrics.RecordCacheMiss(op)
	}
}

func (c *CachingClient) finish(op, source string, start time.Time, err error) error {
	kind := domain.Classify(err)
	if kind == domain.KindRateLimited {
		c.logger.Warn("upstream rate limited", zap.String("operation", op), zap.Error(err))
	}
	if c.metrics != nil {
		status := "ok"
		if kind != domain.KindNone {
			status = kind.String()
		}
		c.metrics.RecordAPIRequest(op, source, status, time.Since(start))
		switch kind {
		case domain.KindRateLimited:
			c.metrics.RecordUpstreamRateLimit()
		case domain.KindCancelled:
			c.metrics.RecordCancelled()
		}
	}
	return err
}

// отмена запроса - штатная ситуация, ошибкой в трейсе её не помечаем
func endSpan(span trace.Span, err error) {
	if err != nil && domain.Classify(err) != domain.KindCancelled {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// normalizeError гарантирует, что отмена контекста превращается в ErrCancelled,
// а неизвестные ошибки - в NetworkError.
func normalizeError(ctx context.Context, err error) error {
	if cerr := ctxError(ctx); cerr != nil {
		return cerr
	}
	switch domain.Classify(err) {
	case domain.KindCancelled:
		return domain.ErrCancelled
	case domain.KindNetwork:
		var ne *domain.NetworkError
		if errors.As(err, &ne) {
			return err
		}
		return &domain.NetworkError{Message: "request failed", Err: err}
	}
	return err
}

// ctxError: отмена -> ErrCancelled, истёкший дедлайн -> NetworkError
func ctxError(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.NetworkError{Message: "request timed out", Err: err}
	default:
		return domain.ErrCancelled
	}
}
