package cache

import (
	"testing"
	"time"

	"github.com/kitbuilder587/anime-search-bot/internal/cache/memory"
	"github.com/kitbuilder587/anime-search-bot/internal/domain"
)

func TestKey_Normalization(t *testing.T) {
	tests := []struct {
		name  string
		a, b  string
		pageA int
		pageB int
		equal bool
	}{
		{"case and spaces", "Naruto", "  naruto ", 1, 1, true},
		{"unicode case", "ÉCOLE", "école", 1, 1, true},
		{"different page", "naruto", "naruto", 1, 2, false},
		{"no concat collision", "ab", "ab1", 12, 2, false},
		{"inner spaces kept", "one piece", "onepiece", 1, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Key(tt.a, tt.pageA) == Key(tt.b, tt.pageB)
			if got != tt.equal {
				t.Errorf("Key(%q,%d) == Key(%q,%d) is %v, want %v",
					tt.a, tt.pageA, tt.b, tt.pageB, got, tt.equal)
			}
		})
	}
}

func TestStore_SearchTTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := New(DefaultTTL, memory.WithClock(clock))

	page := domain.SearchResultPage{
		Items:      []domain.AnimeSummary{{MalID: 20, Title: "Naruto"}},
		Pagination: domain.PaginationMeta{CurrentPage: 1, TotalPages: 3, TotalItems: 60, HasNextPage: true},
	}
	store.SetSearch("Naruto", 1, page)

	got, ok := store.GetSearch("  naruto ", 1)
	if !ok {
		t.Fatal("GetSearch() should hit for normalized query")
	}
	if len(got.Items) != 1 || got.Items[0].MalID != 20 {
		t.Errorf("GetSearch() = %+v", got)
	}
	if store.Stats().SearchEntries != 1 {
		t.Errorf("SearchEntries = %d, want 1", store.Stats().SearchEntries)
	}

	now = now.Add(DefaultTTL + time.Second)

	if _, ok := store.GetSearch("naruto", 1); ok {
		t.Error("GetSearch() should miss after TTL")
	}
	if store.Stats().SearchEntries != 0 {
		t.Errorf("SearchEntries = %d, want 0 after expiry", store.Stats().SearchEntries)
	}
}

func TestStore_DetailIndependentOfSearch(t *testing.T) {
	store := New(time.Minute)

	store.SetDetail(1, domain.AnimeDetail{MalID: 1, Title: "Cowboy Bebop"})
	store.SetSearch("bebop", 1, domain.SearchResultPage{})

	stats := store.Stats()
	if stats.SearchEntries != 1 || stats.DetailEntries != 1 {
		t.Errorf("Stats() = %+v, want 1/1", stats)
	}

	got, ok := store.GetDetail(1)
	if !ok || got.Title != "Cowboy Bebop" {
		t.Errorf("GetDetail() = %+v, %v", got, ok)
	}

	store.Clear()
	stats = store.Stats()
	if stats.SearchEntries != 0 || stats.DetailEntries != 0 {
		t.Errorf("Stats() after Clear = %+v", stats)
	}
}
