package jikan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kitbuilder587/anime-search-bot/internal/domain"
)

const (
	DefaultBaseURL   = "https://api.jikan.moe/v4"
	DefaultTimeout   = 10 * time.Second
	DefaultPageLimit = 20
	// публичный Jikan пускает 3 запроса в секунду
	DefaultRequestsPerSecond = 3
)

// ответ больше этого размера считаем мусором
const maxBodyBytes = 4 << 20

type Config struct {
	BaseURL           string
	Timeout           time.Duration
	PageLimit         int
	RequestsPerSecond float64
	// Transport - для тестов; по умолчанию http.DefaultTransport под otelhttp
	Transport http.RoundTripper
}

// Client - HTTP-клиент Jikan v4. Кеша не знает, повторов не делает.
type Client struct {
	baseURL   string
	pageLimit int
	client    *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultPageLimit
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		pageLimit: cfg.PageLimit,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  logger,
	}
}

type searchResponse struct {
	Data       []animeJSON    `json:"data"`
	Pagination paginationJSON `json:"pagination"`
}

type detailResponse struct {
	Data animeJSON `json:"data"`
}

type paginationJSON struct {
	CurrentPage     int  `json:"current_page"`
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
	Items           struct {
		Total   int `json:"total"`
		Count   int `json:"count"`
		PerPage int `json:"per_page"`
	} `json:"items"`
}

type animeJSON struct {
	MalID         int     `json:"mal_id"`
	Title         string  `json:"title"`
	TitleEnglish  string  `json:"title_english"`
	TitleJapanese string  `json:"title_japanese"`
	Synopsis      string  `json:"synopsis"`
	Score         float64 `json:"score"`
	Episodes      int     `json:"episodes"`
	Status        string  `json:"status"`
	Images        struct {
		JPG struct {
			ImageURL      string `json:"image_url"`
			LargeImageURL string `json:"large_image_url"`
		} `json:"jpg"`
	} `json:"images"`
	Aired struct {
		String string `json:"string"`
	} `json:"aired"`
	Genres  []namedJSON `json:"genres"`
	Studios []namedJSON `json:"studios"`
}

type namedJSON struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
}

// SearchAnime - GET /anime?q=&page=&limit=
func (c *Client) SearchAnime(ctx context.Context, query string, page int) (*domain.SearchResultPage, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(c.pageLimit))

	body, err := c.get(ctx, "/anime?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.NetworkError{Message: "decode search response", Err: err}
	}

	return toSearchResultPage(&resp, page), nil
}

// GetAnimeByID - GET /anime/{id}; 404 -> domain.ErrNotFound
func (c *Client) GetAnimeByID(ctx context.Context, id int) (*domain.AnimeDetail, error) {
	body, err := c.get(ctx, "/anime/"+strconv.Itoa(id))
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var resp detailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.NetworkError{Message: "decode detail response", Err: err}
	}
	if resp.Data.MalID == 0 {
		return nil, domain.ErrNotFound
	}

	anime := toAnime(resp.Data)
	return &anime, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, contextError(ctx, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &domain.NetworkError{Message: "create request", Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, contextError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, contextError(ctx, err)
	}

	c.logger.Debug("jikan response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &domain.RateLimitedError{
			RetryAfterSeconds: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		se := &statusError{code: resp.StatusCode}
		return nil, &domain.NetworkError{Message: "bad upstream response", Err: se}
	}

	return respBody, nil
}

// parseRetryAfter: целое число секунд, иначе 60
func parseRetryAfter(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.DefaultRetryAfterSeconds
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return domain.DefaultRetryAfterSeconds
	}
	return secs
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// contextError отделяет отмену от таймаута и сетевых сбоев
func contextError(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return domain.ErrCancelled
	}
	return &domain.NetworkError{Message: "do request", Err: err}
}

func toSearchResultPage(resp *searchResponse, requestedPage int) *domain.SearchResultPage {
	items := make([]domain.AnimeSummary, len(resp.Data))
	for i, a := range resp.Data {
		items[i] = toAnime(a)
	}

	p := domain.PaginationMeta{
		CurrentPage: resp.Pagination.CurrentPage,
		TotalPages:  resp.Pagination.LastVisiblePage,
		TotalItems:  resp.Pagination.Items.Total,
		HasNextPage: resp.Pagination.HasNextPage,
	}
	if p.CurrentPage < 1 {
		p.CurrentPage = requestedPage
	}
	if p.TotalPages < 1 {
		p.TotalPages = 1
	}
	// апстрим иногда отдаёт last_visible_page меньше запрошенной страницы
	if p.TotalItems > 0 && p.CurrentPage > p.TotalPages {
		p.TotalPages = p.CurrentPage
	}

	return &domain.SearchResultPage{Items: items, Pagination: p}
}

func toAnime(a animeJSON) domain.Anime {
	return domain.Anime{
		MalID:         a.MalID,
		Title:         a.Title,
		TitleEnglish:  a.TitleEnglish,
		TitleJapanese: a.TitleJapanese,
		ImageURL:      a.Images.JPG.ImageURL,
		LargeImageURL: a.Images.JPG.LargeImageURL,
		Synopsis:      a.Synopsis,
		Score:         a.Score,
		Episodes:      a.Episodes,
		Status:        a.Status,
		Aired:         a.Aired.String,
		Genres:        toNamed(a.Genres),
		Studios:       toNamed(a.Studios),
	}
}

func toNamed(in []namedJSON) []domain.Named {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Named, len(in))
	for i, n := range in {
		out[i] = domain.Named{MalID: n.MalID, Name: n.Name}
	}
	return out
}
