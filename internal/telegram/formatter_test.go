package telegram

import (
	"strings"
	"testing"

	"github.com/kitbuilder587/anime-search-bot/internal/cache"
	"github.com/kitbuilder587/anime-search-bot/internal/domain"
	"github.com/kitbuilder587/anime-search-bot/internal/service"
)

func successState() domain.SessionState {
	return domain.SessionState{
		Query: "naruto",
		Page:  2,
		Results: []domain.AnimeSummary{
			{MalID: 20, Title: "Naruto", Score: 8.01, Episodes: 220},
			{MalID: 1735, Title: "Naruto: Shippuuden", TitleEnglish: "Naruto Shippuden"},
		},
		Pagination: domain.PaginationMeta{CurrentPage: 2, TotalPages: 3, TotalItems: 50, HasNextPage: true},
		Status:     domain.StatusSuccess,
	}
}

func TestFormatSearchState_Success(t *testing.T) {
	result := FormatSearchState(successState())

	for _, want := range []string{"naruto", "страница 2 из 3", "1. <b>Naruto</b>", "Naruto Shippuden", "★ 8.01", "220 эп."} {
		if !strings.Contains(result, want) {
			t.Errorf("FormatSearchState() should contain %q, got:\n%s", want, result)
		}
	}
}

func TestFormatSearchState(t *testing.T) {
	tests := []struct {
		name  string
		state domain.SessionState
		want  string
	}{
		{
			name:  "empty results",
			state: domain.SessionState{Query: "zzz", Status: domain.StatusSuccess},
			want:  "ничего не найдено",
		},
		{
			name:  "error",
			state: domain.SessionState{Query: "x", Status: domain.StatusError, Error: "Too many requests, please retry in 30 seconds"},
			want:  "⚠️ Too many requests, please retry in 30 seconds",
		},
		{
			name:  "idle",
			state: domain.InitialSessionState(),
			want:  "Поиск сброшен",
		},
		{
			name:  "html escaped",
			state: domain.SessionState{Query: "<script>", Status: domain.StatusSuccess},
			want:  "&lt;script&gt;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatSearchState(tt.state)
			if !strings.Contains(got, tt.want) {
				t.Errorf("FormatSearchState() = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestResultsKeyboard(t *testing.T) {
	kb := ResultsKeyboard(successState())
	if kb == nil {
		t.Fatal("ResultsKeyboard() = nil")
	}
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(kb.InlineKeyboard))
	}

	items := kb.InlineKeyboard[0]
	if len(items) != 2 || *items[0].CallbackData != "anime:20" || *items[1].CallbackData != "anime:1735" {
		t.Errorf("item buttons = %+v", items)
	}

	nav := kb.InlineKeyboard[1]
	if len(nav) != 2 {
		t.Fatalf("nav buttons = %d, want 2", len(nav))
	}
	if *nav[0].CallbackData != "page:1" || *nav[1].CallbackData != "page:3" {
		t.Errorf("nav callbacks = %q, %q", *nav[0].CallbackData, *nav[1].CallbackData)
	}
}

func TestResultsKeyboard_NoButtons(t *testing.T) {
	if kb := ResultsKeyboard(domain.SessionState{Status: domain.StatusError}); kb != nil {
		t.Error("ResultsKeyboard(error) should be nil")
	}

	st := domain.SessionState{
		Status:     domain.StatusSuccess,
		Pagination: domain.EmptyPagination(),
	}
	if kb := ResultsKeyboard(st); kb != nil {
		t.Error("ResultsKeyboard(empty single page) should be nil")
	}
}

func TestResultsKeyboard_RowsOfFive(t *testing.T) {
	st := successState()
	st.Results = make([]domain.AnimeSummary, 7)
	for i := range st.Results {
		st.Results[i] = domain.AnimeSummary{MalID: i + 1}
	}
	st.Pagination = domain.PaginationMeta{CurrentPage: 1, TotalPages: 1}

	kb := ResultsKeyboard(st)
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(kb.InlineKeyboard))
	}
	if len(kb.InlineKeyboard[0]) != 5 || len(kb.InlineKeyboard[1]) != 2 {
		t.Errorf("row sizes = %d, %d", len(kb.InlineKeyboard[0]), len(kb.InlineKeyboard[1]))
	}
}

func TestFormatDetail(t *testing.T) {
	st := domain.DetailState{
		ID:     20,
		Status: domain.StatusSuccess,
		Anime: &domain.AnimeDetail{
			MalID:         20,
			Title:         "Naruto",
			TitleJapanese: "ナルト",
			Synopsis:      "Ninja & friends",
			Score:         8,
			Episodes:      220,
			Status:        "Finished Airing",
			Genres:        []domain.Named{{Name: "Action"}, {Name: "Adventure"}},
			Studios:       []domain.Named{{Name: "Pierrot"}},
			ImageURL:      "https://cdn.example/n.jpg",
		},
	}

	result := FormatDetail(st)

	for _, want := range []string{"<b>Naruto</b>", "ナルト", "Ninja &amp; friends", "Action, Adventure", "Pierrot", "Finished Airing", "https://cdn.example/n.jpg"} {
		if !strings.Contains(result, want) {
			t.Errorf("FormatDetail() should contain %q, got:\n%s", want, result)
		}
	}
}

func TestFormatDetail_NotFoundAndError(t *testing.T) {
	if got := FormatDetail(domain.DetailState{ID: 5, Status: domain.StatusError, NotFound: true}); !strings.Contains(got, "#5 не найдено") {
		t.Errorf("FormatDetail(not found) = %q", got)
	}
	if got := FormatDetail(domain.DetailState{Status: domain.StatusError, Error: "Network error: boom"}); !strings.Contains(got, "boom") {
		t.Errorf("FormatDetail(error) = %q", got)
	}
	if got := FormatDetail(domain.DetailState{Status: domain.StatusIdle}); got != "" {
		t.Errorf("FormatDetail(idle) = %q, want empty", got)
	}
}

func TestFormatStats(t *testing.T) {
	got := FormatStats(service.Stats{ActiveSessions: 3, Users: 10, Cache: cache.Stats{SearchEntries: 7, DetailEntries: 2}})

	for _, want := range []string{"сессий: 3", "Пользователей: 10", "поиска: 7", "карточек: 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatStats() should contain %q, got %q", want, got)
		}
	}
}

func TestTruncateText(t *testing.T) {
	if got := truncateText("короткий", 20); got != "короткий" {
		t.Errorf("truncateText() = %q", got)
	}
	if got := truncateText("абвгдежзик", 6); got != "абв..." {
		t.Errorf("truncateText() = %q, want %q", got, "абв...")
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   int // number of parts
	}{
		{"short message", "Hello", 100, 1},
		{"exact length", "Hello", 5, 1},
		{"split needed", "Hello World Test", 7, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitMessage(tt.text, tt.maxLen)
			if len(got) != tt.want {
				t.Errorf("SplitMessage() parts = %v, want %v", len(got), tt.want)
			}
		})
	}
}

func TestSplitMessage_HTMLTags(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "link tag",
			text: `Text before <a href="https://example.com/very/long/url">link text</a> text after`,
		},
		{
			name: "bold tag",
			text: `Some text <b>bold text here</b> more text`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := SplitMessage(tt.text, 30)

			for i, part := range parts {
				openCount := strings.Count(part, "<")
				closeCount := strings.Count(part, ">")

				if openCount != closeCount {
					t.Errorf("Part %d has unbalanced tags (open=%d, close=%d): %q",
						i, openCount, closeCount, part)
				}
			}
		})
	}
}

func TestIsInsideHTMLTag(t *testing.T) {
	tests := []struct {
		text string
		pos  int
		want bool
	}{
		{`<a href="url">text</a>`, 5, true},
		{`<a href="url">text</a>`, 15, false},
		{`text <b>bold</b>`, 0, false},
		{`text <b>bold</b>`, 6, true},
		{`text <b>bold</b>`, 9, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := isInsideHTMLTag(tt.text, tt.pos)
			if got != tt.want {
				t.Errorf("isInsideHTMLTag(%q, %d) = %v, want %v", tt.text, tt.pos, got, tt.want)
			}
		})
	}
}
