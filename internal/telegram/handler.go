package telegram

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/anime-search-bot/internal/domain"
	"github.com/kitbuilder587/anime-search-bot/internal/service"
	"github.com/kitbuilder587/anime-search-bot/internal/session"
)

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

const helpText = `<b>Поиск аниме</b>

Просто отправьте название, я найду его в каталоге MyAnimeList.
Каждое новое сообщение заменяет предыдущий запрос.

<b>Команды:</b>
/search название - Искать (то же, что просто текст)
/next - Следующая страница
/prev - Предыдущая страница
/page N - Перейти на страницу N
/anime ID - Карточка аниме по id
/clear - Сбросить поиск
/stats - Статистика бота
/help - Показать эту справку`

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}
	h.bot.logger.Info("received message",
		zap.Int64("chat_id", chatID),
		zap.String("username", username),
		zap.Bool("is_command", msg.IsCommand()),
	)

	if !h.allow(chatID) {
		return
	}

	cmd, err := ParseCommand(msg.Text)
	if err != nil {
		h.bot.Send(chatID, usageFor(cmd.Kind))
		return
	}

	h.dispatch(ctx, chatID, username, cmd)
}

func (h *Handler) HandleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	h.bot.AnswerCallback(cq.ID)

	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	chatID := cq.Message.Chat.ID

	if !h.allow(chatID) {
		return
	}

	cmd, err := ParseCallback(cq.Data)
	if err != nil {
		h.bot.logger.Warn("bad callback data", zap.String("data", cq.Data), zap.Int64("chat_id", chatID))
		return
	}

	h.dispatch(ctx, chatID, "", cmd)
}

func (h *Handler) allow(chatID int64) bool {
	if h.bot.rateLimiter.Allow(chatID) {
		return true
	}

	wait := h.bot.rateLimiter.RetryAfter(chatID)
	h.bot.logger.Warn("rate limit exceeded",
		zap.Int64("chat_id", chatID),
		zap.Duration("retry_after", wait),
	)
	h.bot.RecordRateLimitHit()
	h.bot.Send(chatID, fmt.Sprintf("Слишком много сообщений. Подождите %d сек.", int(math.Ceil(wait.Seconds()))))
	return false
}

func (h *Handler) dispatch(ctx context.Context, chatID int64, username string, cmd Command) {
	svc := h.bot.searchService

	var err error
	switch cmd.Kind {
	case CmdStart:
		h.handleStart(ctx, chatID, username)
	case CmdHelp:
		h.bot.Send(chatID, helpText)
	case CmdQuery:
		if domain.IsBlank(cmd.Text) {
			h.bot.Send(chatID, usageFor(CmdQuery))
			return
		}
		err = svc.Query(chatID, cmd.Text)
	case CmdClear:
		if err = svc.Clear(chatID); err == nil {
			h.bot.Send(chatID, FormatSearchState(domain.InitialSessionState()))
		}
	case CmdPage:
		err = svc.Page(chatID, cmd.N)
	case CmdNext:
		err = svc.NextPage(chatID)
	case CmdPrev:
		err = svc.PrevPage(chatID)
	case CmdAnime:
		h.handleAnime(ctx, chatID, cmd.N)
	case CmdStats:
		h.bot.Send(chatID, FormatStats(svc.Stats(ctx)))
	default:
		h.bot.Send(chatID, "Неизвестная команда. Используйте /help для справки.")
	}

	if err != nil {
		h.bot.logger.Warn("command failed",
			zap.Int64("chat_id", chatID),
			zap.Int("kind", int(cmd.Kind)),
			zap.Error(err),
		)
		h.bot.Send(chatID, mapErrorToMessage(err))
	}
}

func (h *Handler) handleStart(ctx context.Context, chatID int64, username string) {
	if _, err := h.bot.userService.GetOrCreate(ctx, chatID, username); err != nil {
		h.bot.logger.Error("failed to create user", zap.Error(err))
	}
	h.bot.Send(chatID, "Привет! Отправьте название аниме, и я его найду.\n\nИспользуйте /help для просмотра доступных команд.")
}

func (h *Handler) handleAnime(ctx context.Context, chatID int64, id int) {
	h.bot.SendTyping(chatID)

	st, applied, err := h.bot.searchService.Detail(ctx, chatID, id)
	if err != nil {
		h.bot.Send(chatID, mapErrorToMessage(err))
		return
	}
	// перебит более новым /anime, ответит он
	if !applied {
		return
	}

	text := FormatDetail(st)
	if text == "" {
		return
	}
	for _, part := range SplitMessage(text, maxMessageLen) {
		if err := h.bot.Send(chatID, part); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}
}

func usageFor(kind CommandKind) string {
	switch kind {
	case CmdPage:
		return "Укажите номер страницы: /page 2"
	case CmdAnime:
		return "Укажите id аниме: /anime 20"
	case CmdQuery:
		return "Пустой запрос. Отправьте название аниме."
	default:
		return "Неизвестная команда. Используйте /help для справки."
	}
}

func mapErrorToMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrShuttingDown), errors.Is(err, session.ErrStopped):
		return "Бот перезапускается. Попробуйте через минуту."
	case errors.Is(err, domain.ErrInvalidPage):
		return "Номер страницы должен быть больше нуля."
	case errors.Is(err, domain.ErrEmptyQuery):
		return "Пустой запрос. Отправьте название аниме."
	case errors.Is(err, domain.ErrInvalidID):
		return "Некорректный id аниме."
	default:
		return "Произошла ошибка. Попробуйте позже."
	}
}

// helpCommands - список для меню команд телеграма
func helpCommands() []tgbotapi.BotCommand {
	var out []tgbotapi.BotCommand
	for _, line := range strings.Split(helpText, "\n") {
		if !strings.HasPrefix(line, "/") {
			continue
		}
		name, desc, ok := strings.Cut(line, " - ")
		if !ok {
			continue
		}
		name = strings.Fields(name)[0]
		out = append(out, tgbotapi.BotCommand{Command: strings.TrimPrefix(name, "/"), Description: desc})
	}
	return out
}
