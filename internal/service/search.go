package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/anime-search-bot/internal/cache"
	"github.com/kitbuilder587/anime-search-bot/internal/domain"
	"github.com/kitbuilder587/anime-search-bot/internal/metrics"
	"github.com/kitbuilder587/anime-search-bot/internal/repository"
	"github.com/kitbuilder587/anime-search-bot/internal/search"
	"github.com/kitbuilder587/anime-search-bot/internal/session"
)

var ErrShuttingDown = errors.New("search service is shutting down")

const (
	defaultIdleTimeout     = 30 * time.Minute
	defaultJanitorInterval = time.Minute
)

// StateFunc получает каждое новое состояние сессии чата.
// Зовётся из цикла сессии, блокироваться нельзя.
type StateFunc func(chatID int64, state domain.SessionState)

// CacheStatser - источник счётчиков кеша для /stats
type CacheStatser interface {
	Stats() cache.Stats
}

type SearchConfig struct {
	Debounce        time.Duration
	IdleTimeout     time.Duration
	JanitorInterval time.Duration
}

type Stats struct {
	ActiveSessions int
	Users          int
	Cache          cache.Stats
}

type chat struct {
	session  *session.Session
	detail   *session.DetailView
	cancel   context.CancelFunc
	lastSeen time.Time
}

// SearchService держит по одной поисковой сессии на чат.
// Сессия создаётся при первом обращении и выселяется после IdleTimeout тишины.
type SearchService struct {
	client   search.Client
	repo     repository.SessionRepository
	users    UserService
	cache    CacheStatser
	cfg      SearchConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
	onChange StateFunc
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	g      errgroup.Group

	mu     sync.Mutex
	chats  map[int64]*chat
	closed bool
}

type SearchServiceDeps struct {
	Client   search.Client
	Sessions repository.SessionRepository
	Users    UserService
	Cache    CacheStatser
	Config   SearchConfig
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

func NewSearchService(deps SearchServiceDeps) *SearchService {
	if deps.Config.IdleTimeout <= 0 {
		deps.Config.IdleTimeout = defaultIdleTimeout
	}
	if deps.Config.JanitorInterval <= 0 {
		deps.Config.JanitorInterval = defaultJanitorInterval
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &SearchService{
		client:  deps.Client,
		repo:    deps.Sessions,
		users:   deps.Users,
		cache:   deps.Cache,
		cfg:     deps.Config,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		chats:   make(map[int64]*chat),
	}
}

// OnStateChange ставит обработчик состояний. Вызывать до первого обращения к сессиям.
func (s *SearchService) OnStateChange(fn StateFunc) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Run выселяет простаивающие сессии до отмены ctx, затем останавливает все
func (s *SearchService) Run(ctx context.Context) error {
	tick := time.NewTicker(s.cfg.JanitorInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return nil
		case <-tick.C:
			s.evictIdle()
		}
	}
}

// Shutdown останавливает все сессии и ждёт, пока они допишут состояние
func (s *SearchService) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	n := len(s.chats)
	s.chats = make(map[int64]*chat)
	s.mu.Unlock()

	s.cancel()
	if err := s.g.Wait(); err != nil {
		s.logger.Warn("session exited with error", zap.Error(err))
	}
	if s.metrics != nil {
		for range n {
			s.metrics.DecActiveSessions()
		}
	}
	s.logger.Info("search sessions stopped", zap.Int("count", n))
}

// Query - очередное значение поискового ввода чата
func (s *SearchService) Query(chatID int64, text string) error {
	c, err := s.acquire(chatID)
	if err != nil {
		return err
	}
	c.session.SubmitQuery(text)
	return nil
}

// Clear сбрасывает сессию чата в Idle. Возвращается после применения сброса.
func (s *SearchService) Clear(chatID int64) error {
	c, err := s.acquire(chatID)
	if err != nil {
		return err
	}
	c.detail.Reset()
	c.session.SubmitQuery("")
	return nil
}

func (s *SearchService) Page(chatID int64, page int) error {
	c, err := s.acquire(chatID)
	if err != nil {
		return err
	}
	return c.session.SubmitPageChange(page)
}

func (s *SearchService) NextPage(chatID int64) error {
	c, err := s.acquire(chatID)
	if err != nil {
		return err
	}
	return c.session.NextPage()
}

func (s *SearchService) PrevPage(chatID int64) error {
	c, err := s.acquire(chatID)
	if err != nil {
		return err
	}
	return c.session.PrevPage()
}

// State - текущее состояние чата; false, если сессии нет
func (s *SearchService) State(chatID int64) (domain.SessionState, bool) {
	s.mu.Lock()
	c, ok := s.chats[chatID]
	s.mu.Unlock()

	if !ok {
		return domain.InitialSessionState(), false
	}
	return c.session.State(), true
}

// Detail грузит карточку аниме. applied=false, если её перебил более новый запрос того же чата.
func (s *SearchService) Detail(ctx context.Context, chatID int64, id int) (domain.DetailState, bool, error) {
	c, err := s.acquire(chatID)
	if err != nil {
		return domain.DetailState{}, false, err
	}
	st, applied := c.detail.Load(ctx, id)
	return st, applied, nil
}

func (s *SearchService) Stats(ctx context.Context) Stats {
	s.mu.Lock()
	st := Stats{ActiveSessions: len(s.chats)}
	s.mu.Unlock()

	if s.cache != nil {
		st.Cache = s.cache.Stats()
	}
	if s.users != nil {
		n, err := s.users.Count(ctx)
		if err != nil {
			s.logger.Warn("failed to count users", zap.Error(err))
		}
		st.Users = n
	}
	return st
}

func (s *SearchService) acquire(chatID int64) (*chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrShuttingDown
	}

	now := s.now()
	if c, ok := s.chats[chatID]; ok {
		c.lastSeen = now
		return c, nil
	}

	c := s.spawn(chatID)
	c.lastSeen = now
	s.chats[chatID] = c
	return c, nil
}

// spawn вызывается под s.mu
func (s *SearchService) spawn(chatID int64) *chat {
	logger := s.logger.With(zap.Int64("chat_id", chatID))

	var store session.StateStore
	if s.repo != nil {
		store = NewStateStore(s.repo, chatID)
	}

	sess := session.New(s.client, store, session.Config{Debounce: s.cfg.Debounce}, logger, s.metrics)
	if fn := s.onChange; fn != nil {
		sess.Subscribe(func(st domain.SessionState) {
			fn(chatID, st)
		})
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.g.Go(func() error {
		return sess.Run(ctx)
	})

	if s.metrics != nil {
		s.metrics.IncActiveSessions()
	}
	logger.Debug("search session started", zap.String("session_id", sess.ID()))

	return &chat{
		session: sess,
		detail:  session.NewDetailView(s.client, logger),
		cancel:  cancel,
	}
}

func (s *SearchService) evictIdle() {
	cutoff := s.now().Add(-s.cfg.IdleTimeout)

	var evicted []*chat
	s.mu.Lock()
	for id, c := range s.chats {
		if c.lastSeen.Before(cutoff) {
			evicted = append(evicted, c)
			delete(s.chats, id)
		}
	}
	s.mu.Unlock()

	for _, c := range evicted {
		c.detail.Reset()
		c.cancel()
		<-c.session.Done()
		if s.metrics != nil {
			s.metrics.DecActiveSessions()
		}
	}
	if len(evicted) > 0 {
		s.logger.Info("idle sessions evicted", zap.Int("count", len(evicted)))
	}
}
