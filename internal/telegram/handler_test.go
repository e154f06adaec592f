package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kitbuilder587/anime-search-bot/internal/domain"
	"github.com/kitbuilder587/anime-search-bot/internal/service"
	"github.com/kitbuilder587/anime-search-bot/internal/session"
)

func createTestMessage(chatID int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{
			ID:       chatID,
			UserName: "testuser",
		},
		Chat: &tgbotapi.Chat{
			ID: chatID,
		},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		name, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}}
	}
	return msg
}

func TestHandler_Dispatch(t *testing.T) {
	tests := []struct {
		text     string
		wantCall searchCall
	}{
		{text: "naruto", wantCall: searchCall{Method: "query", ChatID: 123, Text: "naruto"}},
		{text: "  one piece ", wantCall: searchCall{Method: "query", ChatID: 123, Text: "  one piece "}},
		{text: "/search bleach", wantCall: searchCall{Method: "query", ChatID: 123, Text: "bleach"}},
		{text: "/page 3", wantCall: searchCall{Method: "page", ChatID: 123, N: 3}},
		{text: "/next", wantCall: searchCall{Method: "next", ChatID: 123}},
		{text: "/prev", wantCall: searchCall{Method: "prev", ChatID: 123}},
		{text: "/clear", wantCall: searchCall{Method: "clear", ChatID: 123}},
		{text: "/stats", wantCall: searchCall{Method: "stats"}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			svc := &TrackingSearchService{}
			bot, _ := createTestBot(svc, 100)

			bot.handler.HandleMessage(context.Background(), createTestMessage(123, tt.text))

			if got := svc.last(); got != tt.wantCall {
				t.Errorf("last call = %+v, want %+v", got, tt.wantCall)
			}
		})
	}
}

func TestHandler_ClearReplies(t *testing.T) {
	svc := &TrackingSearchService{}
	bot, log := createTestBot(svc, 100)

	bot.handler.HandleMessage(context.Background(), createTestMessage(1, "/clear"))

	texts := log.texts()
	if len(texts) != 1 || !strings.Contains(texts[0], "Поиск сброшен") {
		t.Errorf("replies = %q, want reset confirmation", texts)
	}
}

func TestHandler_BadArguments(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"/page", "номер страницы"},
		{"/page 0", "номер страницы"},
		{"/anime abc", "id аниме"},
		{"/search", "Пустой запрос"},
		{"/unknown", "Неизвестная команда"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			svc := &TrackingSearchService{}
			bot, log := createTestBot(svc, 100)

			bot.handler.HandleMessage(context.Background(), createTestMessage(1, tt.text))

			texts := log.texts()
			if len(texts) != 1 || !strings.Contains(texts[0], tt.want) {
				t.Errorf("replies = %q, want substring %q", texts, tt.want)
			}
			if len(svc.Calls) != 0 {
				t.Errorf("search service called: %+v", svc.Calls)
			}
		})
	}
}

func TestHandler_ServiceError(t *testing.T) {
	svc := &TrackingSearchService{Err: service.ErrShuttingDown}
	bot, log := createTestBot(svc, 100)

	bot.handler.HandleMessage(context.Background(), createTestMessage(1, "naruto"))

	texts := log.texts()
	if len(texts) != 1 || !strings.Contains(texts[0], "перезапускается") {
		t.Errorf("replies = %q", texts)
	}
}

func TestHandler_RateLimited(t *testing.T) {
	svc := &TrackingSearchService{}
	bot, log := createTestBot(svc, 2)

	for i := 0; i < 3; i++ {
		bot.handler.HandleMessage(context.Background(), createTestMessage(1, "naruto"))
	}

	if len(svc.Calls) != 2 {
		t.Errorf("search calls = %d, want 2", len(svc.Calls))
	}
	texts := log.texts()
	if len(texts) != 1 || !strings.Contains(texts[0], "Слишком много сообщений") {
		t.Errorf("replies = %q", texts)
	}

	// другой чат не затронут
	bot.handler.HandleMessage(context.Background(), createTestMessage(2, "naruto"))
	if len(svc.Calls) != 3 {
		t.Errorf("search calls = %d, want 3", len(svc.Calls))
	}
}

func TestHandler_Anime(t *testing.T) {
	svc := &TrackingSearchService{
		Applied: true,
		Detailed: domain.DetailState{
			ID:     20,
			Status: domain.StatusSuccess,
			Anime:  &domain.AnimeDetail{MalID: 20, Title: "Naruto"},
		},
	}
	bot, log := createTestBot(svc, 100)

	bot.handler.HandleMessage(context.Background(), createTestMessage(1, "/anime 20"))

	if got := svc.last(); got.Method != "detail" || got.N != 20 {
		t.Errorf("last call = %+v, want detail 20", got)
	}
	if log.actions != 1 {
		t.Errorf("typing actions = %d, want 1", log.actions)
	}
	texts := log.texts()
	if len(texts) != 1 || !strings.Contains(texts[0], "Naruto") {
		t.Errorf("replies = %q", texts)
	}
}

func TestHandler_AnimeSuperseded(t *testing.T) {
	svc := &TrackingSearchService{Applied: false}
	bot, log := createTestBot(svc, 100)

	bot.handler.HandleMessage(context.Background(), createTestMessage(1, "/anime 20"))

	if texts := log.texts(); len(texts) != 0 {
		t.Errorf("superseded detail should stay silent, got %q", texts)
	}
}

func TestHandler_Callback(t *testing.T) {
	tests := []struct {
		data     string
		wantCall searchCall
	}{
		{data: "page:2", wantCall: searchCall{Method: "page", ChatID: 5, N: 2}},
		{data: "anime:20", wantCall: searchCall{Method: "detail", ChatID: 5, N: 20}},
		{data: "garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			svc := &TrackingSearchService{}
			bot, log := createTestBot(svc, 100)

			cq := &tgbotapi.CallbackQuery{
				ID:      "cb-1",
				Data:    tt.data,
				Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 5}},
			}
			bot.handler.HandleCallback(context.Background(), cq)

			if got := svc.last(); got != tt.wantCall {
				t.Errorf("last call = %+v, want %+v", got, tt.wantCall)
			}
			if log.answers != 1 {
				t.Errorf("callback answers = %d, want 1", log.answers)
			}
		})
	}
}

func TestHandler_StartRegistersUser(t *testing.T) {
	users := &MockUserService{}
	bot, log := createTestBot(&TrackingSearchService{}, 100)
	bot.userService = users

	bot.handler.HandleMessage(context.Background(), createTestMessage(1, "/start"))

	if users.Calls != 1 {
		t.Errorf("GetOrCreate calls = %d, want 1", users.Calls)
	}
	if texts := log.texts(); len(texts) != 1 || !strings.Contains(texts[0], "Привет") {
		t.Errorf("replies = %q", texts)
	}
}

func TestMapErrorToMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"shutting down", service.ErrShuttingDown, "Бот перезапускается. Попробуйте через минуту."},
		{"session stopped", session.ErrStopped, "Бот перезапускается. Попробуйте через минуту."},
		{"invalid page", domain.ErrInvalidPage, "Номер страницы должен быть больше нуля."},
		{"empty", domain.ErrEmptyQuery, "Пустой запрос. Отправьте название аниме."},
		{"invalid id", domain.ErrInvalidID, "Некорректный id аниме."},
		{"wrapped", errors.Join(errors.New("context"), domain.ErrInvalidPage), "Номер страницы должен быть больше нуля."},
		{"unknown", errors.New("some random error"), "Произошла ошибка. Попробуйте позже."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErrorToMessage(tt.err)
			if got != tt.want {
				t.Errorf("mapErrorToMessage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHelpCommands(t *testing.T) {
	cmds := helpCommands()

	want := map[string]bool{"search": false, "next": false, "prev": false, "page": false, "anime": false, "clear": false, "stats": false, "help": false}
	for _, c := range cmds {
		if _, ok := want[c.Command]; ok {
			want[c.Command] = true
		}
		if c.Description == "" {
			t.Errorf("command %q has empty description", c.Command)
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("command %q missing from menu", name)
		}
	}
}
