package telegram

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/anime-search-bot/internal/domain"
	"github.com/kitbuilder587/anime-search-bot/internal/metrics"
	"github.com/kitbuilder587/anime-search-bot/internal/ratelimit"
	"github.com/kitbuilder587/anime-search-bot/internal/service"
)

// SearchService - то, что боту нужно от реестра поисковых сессий
type SearchService interface {
	OnStateChange(fn service.StateFunc)
	Query(chatID int64, text string) error
	Clear(chatID int64) error
	Page(chatID int64, page int) error
	NextPage(chatID int64) error
	PrevPage(chatID int64) error
	Detail(ctx context.Context, chatID int64, id int) (domain.DetailState, bool, error)
	Stats(ctx context.Context) service.Stats
}

type BotConfig struct {
	Token string
	Debug bool
}

type Bot struct {
	api     *tgbotapi.BotAPI
	request func(c tgbotapi.Chattable) error

	userService   service.UserService
	searchService SearchService
	logger        *zap.Logger
	metrics       *metrics.Metrics
	handler       *Handler
	rateLimiter   *ratelimit.Limiter
	renders       *renderQueue
	updates       *updateQueue
	wg            sync.WaitGroup
}

func New(cfg BotConfig, userSvc service.UserService, searchSvc SearchService, limiter *ratelimit.Limiter, logger *zap.Logger, m *metrics.Metrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	api.Debug = cfg.Debug

	bot := newBot(userSvc, searchSvc, limiter, logger, m)
	bot.api = api
	bot.request = func(c tgbotapi.Chattable) error {
		_, err := api.Request(c)
		return err
	}

	if err := bot.request(tgbotapi.NewSetMyCommands(helpCommands()...)); err != nil {
		bot.logger.Warn("failed to set bot commands", zap.Error(err))
	}

	bot.logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
	)

	return bot, nil
}

func newBot(userSvc service.UserService, searchSvc SearchService, limiter *ratelimit.Limiter, logger *zap.Logger, m *metrics.Metrics) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.Config{})
	}

	bot := &Bot{
		userService:   userSvc,
		searchService: searchSvc,
		logger:        logger,
		metrics:       m,
		rateLimiter:   limiter,
		renders:       newRenderQueue(),
	}
	bot.handler = NewHandler(bot)
	bot.updates = newUpdateQueue(bot.handleUpdate)
	searchSvc.OnStateChange(bot.renders.push)
	return bot
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.renders.run(ctx, b.renderState)
	}()

	b.logger.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping, waiting for handlers to finish")
			b.api.StopReceivingUpdates()
			b.updates.wait()
			b.wg.Wait()
			b.logger.Info("all handlers finished")
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil && update.CallbackQuery == nil {
				continue
			}
			b.updates.push(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msgType := "callback"
	if update.Message != nil {
		msgType = "query"
		if update.Message.IsCommand() {
			msgType = "command"
		}
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in update handler",
				zap.Any("panic", r),
				zap.Int64("chat_id", updateChatID(update)),
			)
			b.recordMessage(msgType, "panic")
		}
	}()

	if update.Message != nil {
		b.handler.HandleMessage(ctx, update.Message)
	} else {
		b.handler.HandleCallback(ctx, update.CallbackQuery)
	}
	b.recordMessage(msgType, "processed")
}

// renderState вызывается из renderQueue, по одному чату за раз
func (b *Bot) renderState(chatID int64, st domain.SessionState) {
	switch st.Status {
	case domain.StatusLoading:
		b.SendTyping(chatID)
	case domain.StatusSuccess, domain.StatusError:
		if err := b.SendWithKeyboard(chatID, FormatSearchState(st), ResultsKeyboard(st)); err != nil {
			b.logger.Error("failed to send search results", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	// Idle на /clear отвечает сам обработчик команды
}

func (b *Bot) Send(chatID int64, text string) error {
	return b.SendWithKeyboard(chatID, text, nil)
}

func (b *Bot) SendWithKeyboard(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	if b.request == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	return b.request(msg)
}

func (b *Bot) SendTyping(chatID int64) {
	if b.request == nil {
		return
	}
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if err := b.request(action); err != nil {
		b.logger.Debug("failed to send typing action", zap.Error(err))
	}
}

func (b *Bot) AnswerCallback(id string) {
	if b.request == nil {
		return
	}
	if err := b.request(tgbotapi.NewCallback(id, "")); err != nil {
		b.logger.Debug("failed to answer callback", zap.Error(err))
	}
}

func (b *Bot) RecordRateLimitHit() {
	if b.metrics != nil {
		b.metrics.RecordInboundRateLimit()
	}
}

func (b *Bot) recordMessage(msgType, status string) {
	if b.metrics != nil {
		b.metrics.RecordMessage(msgType, status)
	}
}

func updateChatID(update tgbotapi.Update) int64 {
	if update.Message != nil && update.Message.Chat != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil {
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}
