package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kitbuilder587/anime-search-bot/internal/domain"
)

// TotalPages - сколько страниц отдаёт синтетическая выдача по умолчанию
const TotalPages = 3

type SearchCall struct {
	Query string
	Page  int
}

// Client - управляемый фейк search.Client для тестов
type Client struct {
	Pages   map[string]*domain.SearchResultPage
	Details map[int]*domain.AnimeDetail
	Error   error
	Delay   time.Duration

	// IgnoreCancel - транспорт не реагирует на отмену и всё равно отвечает
	IgnoreCancel bool

	CallCount   int
	DetailCalls int
	LastSearch  SearchCall
	AllSearches []SearchCall

	gates map[string]chan struct{}
	mu    sync.Mutex
}

func New() *Client {
	return &Client{
		Pages:   make(map[string]*domain.SearchResultPage),
		Details: make(map[int]*domain.AnimeDetail),
		gates:   make(map[string]chan struct{}),
	}
}

func (c *Client) WithPage(query string, page int, result *domain.SearchResultPage) *Client {
	c.mu.Lock()
	c.Pages[pageKey(query, page)] = result
	c.mu.Unlock()
	return c
}

func (c *Client) WithDetail(anime *domain.AnimeDetail) *Client {
	c.mu.Lock()
	c.Details[anime.MalID] = anime
	c.mu.Unlock()
	return c
}

func (c *Client) WithError(err error) *Client {
	c.mu.Lock()
	c.Error = err
	c.mu.Unlock()
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.mu.Lock()
	c.Delay = delay
	c.mu.Unlock()
	return c
}

// Hold блокирует ответы на query до вызова release
func (c *Client) Hold(query string) (release func()) {
	ch := make(chan struct{})
	c.mu.Lock()
	c.gates[strings.ToLower(query)] = ch
	c.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (c *Client) SearchAnime(ctx context.Context, query string, page int) (*domain.SearchResultPage, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastSearch = SearchCall{Query: query, Page: page}
	c.AllSearches = append(c.AllSearches, c.LastSearch)
	delay := c.Delay
	err := c.Error
	gate := c.gates[strings.ToLower(query)]
	result, ok := c.Pages[pageKey(query, page)]
	ignore := c.IgnoreCancel
	c.mu.Unlock()

	if werr := c.wait(ctx, gate, delay, ignore); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		result = SyntheticPage(query, page)
	}
	return result, nil
}

func (c *Client) GetAnimeByID(ctx context.Context, id int) (*domain.AnimeDetail, error) {
	c.mu.Lock()
	c.DetailCalls++
	delay := c.Delay
	err := c.Error
	anime, ok := c.Details[id]
	ignore := c.IgnoreCancel
	c.mu.Unlock()

	if werr := c.wait(ctx, nil, delay, ignore); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return anime, nil
}

func (c *Client) Calls() []SearchCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SearchCall, len(c.AllSearches))
	copy(out, c.AllSearches)
	return out
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.DetailCalls = 0
	c.LastSearch = SearchCall{}
	c.AllSearches = nil
}

func (c *Client) wait(ctx context.Context, gate chan struct{}, delay time.Duration, ignoreCancel bool) error {
	done := ctx.Done()
	if ignoreCancel {
		done = nil
	}
	if gate != nil {
		select {
		case <-done:
			return domain.ErrCancelled
		case <-gate:
		}
	}
	if delay > 0 {
		select {
		case <-done:
			return domain.ErrCancelled
		case <-time.After(delay):
		}
	}
	return nil
}

// SyntheticPage - выдача по умолчанию: два элемента на страницу, TotalPages страниц
func SyntheticPage(query string, page int) *domain.SearchResultPage {
	items := []domain.AnimeSummary{
		{MalID: page*100 + 1, Title: fmt.Sprintf("%s %d-1", query, page)},
		{MalID: page*100 + 2, Title: fmt.Sprintf("%s %d-2", query, page)},
	}
	return &domain.SearchResultPage{
		Items: items,
		Pagination: domain.PaginationMeta{
			CurrentPage: page,
			TotalPages:  TotalPages,
			TotalItems:  TotalPages * len(items),
			HasNextPage: page < TotalPages,
		},
	}
}

func pageKey(query string, page int) string {
	return fmt.Sprintf("%s|%d", strings.ToLower(strings.TrimSpace(query)), page)
}
