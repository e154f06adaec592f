package cache

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kitbuilder587/anime-search-bot/internal/cache/memory"
	"github.com/kitbuilder587/anime-search-bot/internal/domain"
)

const DefaultTTL = 5 * time.Minute

// разделитель ключа: "ab"+"12" и "ab1"+"2" не должны совпасть
const keySeparator = "\x00"

type Stats struct {
	SearchEntries int
	DetailEntries int
}

// Store - две независимые таблицы: выдача по (query, page) и карточки по id.
// Создаётся явно и передаётся клиенту, глобального экземпляра нет.
type Store struct {
	search *memory.Cache[string, domain.SearchResultPage]
	detail *memory.Cache[int, domain.AnimeDetail]
}

func New(ttl time.Duration, opts ...memory.Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		search: memory.New[string, domain.SearchResultPage](ttl, opts...),
		detail: memory.New[int, domain.AnimeDetail](ttl, opts...),
	}
}

// Key = lower(trim(query)) + "\x00" + page
func Key(query string, page int) string {
	// Caser не потокобезопасен, поэтому создаём на каждый вызов
	normalized := cases.Lower(language.Und).String(strings.TrimSpace(query))
	return normalized + keySeparator + strconv.Itoa(page)
}

func (s *Store) GetSearch(query string, page int) (domain.SearchResultPage, bool) {
	return s.search.Get(Key(query, page))
}

func (s *Store) SetSearch(query string, page int, result domain.SearchResultPage) {
	s.search.Set(Key(query, page), result)
}

func (s *Store) GetDetail(id int) (domain.AnimeDetail, bool) {
	return s.detail.Get(id)
}

func (s *Store) SetDetail(id int, anime domain.AnimeDetail) {
	s.detail.Set(id, anime)
}

func (s *Store) Clear() {
	s.search.Clear()
	s.detail.Clear()
}

func (s *Store) Stats() Stats {
	return Stats{
		SearchEntries: s.search.Len(),
		DetailEntries: s.detail.Len(),
	}
}
