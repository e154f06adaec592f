package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/anime-search-bot/internal/coordinator"
	"github.com/kitbuilder587/anime-search-bot/internal/debounce"
	"github.com/kitbuilder587/anime-search-bot/internal/domain"
	"github.com/kitbuilder587/anime-search-bot/internal/metrics"
	"github.com/kitbuilder587/anime-search-bot/internal/search"
)

var ErrStopped = errors.New("session stopped")

const (
	defaultPersistTimeout = 5 * time.Second
	defaultQueueSize      = 64
)

type Config struct {
	Debounce       time.Duration
	PersistTimeout time.Duration
	QueueSize      int
}

// Listener получает копию состояния после каждого перехода.
// Вызывается из цикла сессии: не должен блокироваться и звать SubmitQuery("").
type Listener func(state domain.SessionState)

// Session - машина состояний поиска. Все мутации SessionState происходят
// в одной горутине Run, по одному событию за раз.
type Session struct {
	id      string
	client  search.Client
	logger  *zap.Logger
	metrics *metrics.Metrics

	coord     *coordinator.Coordinator
	debouncer *debounce.Debouncer
	persister *persister

	events chan event
	// stopping закрывается, как только цикл перестал читать events
	stopping chan struct{}
	done     chan struct{}

	stateMu sync.RWMutex
	state   domain.SessionState

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

func New(client search.Client, store StateStore, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Session {
	if cfg.Debounce <= 0 {
		cfg.Debounce = debounce.DefaultDelay
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	id := uuid.NewString()
	logger = logger.With(zap.String("session_id", id))

	s := &Session{
		id:        id,
		client:    client,
		logger:    logger,
		metrics:   m,
		coord:     coordinator.New(context.Background()),
		persister: newPersister(store, cfg.PersistTimeout, logger),
		events:    make(chan event, cfg.QueueSize),
		stopping:  make(chan struct{}),
		done:      make(chan struct{}),
		state:     domain.InitialSessionState(),
		listeners: make(map[int]Listener),
	}
	s.debouncer = debounce.New(cfg.Debounce, func(value string) {
		s.enqueue(queryChanged{text: value})
	})
	return s
}

func (s *Session) ID() string { return s.id }

// Done закрывается после выхода из Run
func (s *Session) Done() <-chan struct{} { return s.done }

// Run крутит цикл событий до отмены ctx. Перед первым событием один раз
// читает начальные query/page из StateStore.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.coord.CancelLive()
	defer s.debouncer.Stop()
	// до Stop: срабатывающий таймер держит лок дебаунсера, пока пишет в events
	defer close(s.stopping)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.persister.run(gctx)
		return nil
	})
	g.Go(func() error {
		s.restore(gctx)
		return s.loop(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// SubmitQuery - сырое значение поля ввода. Непустое ждёт паузы debounce;
// пустое сбрасывает сессию в Idle и возвращается только после применения сброса.
func (s *Session) SubmitQuery(text string) {
	s.debouncer.Push(text)
	if domain.IsBlank(text) {
		s.sync()
	}
}

// SubmitPageChange - переход на страницу p, игнорируется при пустом запросе
func (s *Session) SubmitPageChange(page int) error {
	if page < 1 {
		return domain.ErrInvalidPage
	}
	if !s.enqueue(pageChanged{page: page}) {
		return ErrStopped
	}
	return nil
}

func (s *Session) NextPage() error {
	if !s.enqueue(pageStep{delta: 1}) {
		return ErrStopped
	}
	return nil
}

func (s *Session) PrevPage() error {
	if !s.enqueue(pageStep{delta: -1}) {
		return ErrStopped
	}
	return nil
}

// State - снимок текущего состояния
func (s *Session) State() domain.SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state.Clone()
}

func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// sync ждёт, пока цикл обработает все ранее поставленные события
func (s *Session) sync() {
	b := barrier{done: make(chan struct{})}
	if !s.enqueue(b) {
		return
	}
	select {
	case <-b.done:
	case <-s.stopping:
	}
}

func (s *Session) enqueue(ev event) bool {
	select {
	case <-s.stopping:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.stopping:
		return false
	}
}

func (s *Session) loop(ctx context.Context) error {
	for {
		// отмена важнее очереди событий
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

func (s *Session) restore(ctx context.Context) {
	if s.persister.store == nil {
		return
	}

	loadCtx, cancel := context.WithTimeout(ctx, s.persister.timeout)
	defer cancel()

	query, page, err := s.persister.store.Load(loadCtx)
	if err != nil {
		s.logger.Warn("failed to load initial session state", zap.Error(err))
		return
	}
	s.handle(restored{query: query, page: page})
}

func (s *Session) handle(ev event) {
	switch e := ev.(type) {
	case queryChanged:
		s.onQueryChanged(e.text)
	case pageChanged:
		s.onPageChanged(e.page)
	case pageStep:
		s.onPageStep(e.delta)
	case restored:
		s.onRestored(e.query, e.page)
	case requestSucceeded:
		s.onSucceeded(e.token, e.result)
	case requestFailed:
		s.onFailed(e.token, e.err)
	case barrier:
		close(e.done)
	}
}

func (s *Session) onQueryChanged(text string) {
	query := strings.TrimSpace(text)

	if query == "" {
		s.coord.CancelLive()
		s.mutate(func(st *domain.SessionState) {
			*st = domain.InitialSessionState()
		})
		s.persister.push("", 1)
		s.logger.Debug("query cleared")
		return
	}

	// выдача прошлого запроса к новому не относится
	s.mutate(func(st *domain.SessionState) {
		st.Query = query
		st.Page = 1
		st.Results = []domain.AnimeSummary{}
		st.Pagination = domain.EmptyPagination()
		st.Status = domain.StatusLoading
		st.Error = ""
	})
	s.persister.push(query, 1)
	s.startSearch(query, 1)
}

func (s *Session) onPageChanged(page int) {
	current := s.peek()
	if domain.IsBlank(current.Query) {
		s.logger.Debug("page change ignored, no active query", zap.Int("page", page))
		return
	}
	if page < 1 {
		return
	}

	// результаты прошлой страницы остаются видны до ответа
	s.mutate(func(st *domain.SessionState) {
		st.Page = page
		st.Status = domain.StatusLoading
		st.Error = ""
	})
	s.persister.push(current.Query, page)
	s.startSearch(current.Query, page)
}

func (s *Session) onPageStep(delta int) {
	current := s.peek()
	target := current.Page + delta
	if target < 1 {
		return
	}
	// пока грузится следующая страница, держимся последней известной пагинации
	total := current.Pagination.TotalPages
	if target > total && (total > 0 || current.Status == domain.StatusSuccess) {
		return
	}
	s.onPageChanged(target)
}

func (s *Session) onRestored(query string, page int) {
	q := domain.NewSearchQuery(query, page)
	if q.IsBlank() {
		return
	}

	s.logger.Info("restoring session", zap.String("query", q.Text), zap.Int("page", q.Page))
	s.mutate(func(st *domain.SessionState) {
		st.Query = q.Text
		st.Page = q.Page
		st.Status = domain.StatusLoading
		st.Error = ""
	})
	s.startSearch(q.Text, q.Page)
}

func (s *Session) onSucceeded(tok *coordinator.Token, result *domain.SearchResultPage) {
	if !s.coord.Complete(tok) {
		s.discardStale(tok)
		return
	}

	items := make([]domain.AnimeSummary, len(result.Items))
	copy(items, result.Items)

	s.mutate(func(st *domain.SessionState) {
		st.Results = items
		st.Pagination = result.Pagination
		st.Status = domain.StatusSuccess
		st.Error = ""
	})
}

func (s *Session) onFailed(tok *coordinator.Token, err error) {
	kind := domain.Classify(err)

	if !s.coord.Complete(tok) {
		s.discardStale(tok)
		return
	}
	// отмена - штатная ситуация, пользователю не показываем
	if kind == domain.KindCancelled {
		s.logger.Debug("request cancelled", zap.Uint64("token", tok.ID()))
		return
	}

	s.logger.Warn("search failed", zap.String("kind", kind.String()), zap.Error(err))
	msg := domain.UserMessage(err)
	s.mutate(func(st *domain.SessionState) {
		st.Status = domain.StatusError
		st.Error = msg
	})
}

func (s *Session) discardStale(tok *coordinator.Token) {
	s.logger.Debug("stale response discarded", zap.Uint64("token", tok.ID()))
	if s.metrics != nil {
		s.metrics.RecordStaleResponse()
	}
}

func (s *Session) startSearch(query string, page int) {
	tok := s.coord.Start()
	s.logger.Debug("search started",
		zap.String("query", query),
		zap.Int("page", page),
		zap.Uint64("token", tok.ID()),
	)

	if s.metrics != nil {
		s.metrics.IncRequestsInFlight()
	}
	go func() {
		if s.metrics != nil {
			defer s.metrics.DecRequestsInFlight()
		}
		result, err := s.client.SearchAnime(tok.Context(), query, page)
		if err != nil {
			s.enqueue(requestFailed{token: tok, err: err})
			return
		}
		s.enqueue(requestSucceeded{token: tok, result: result})
	}()
}

// peek читает состояние из цикла; писатель только он, лок не нужен
func (s *Session) peek() domain.SessionState {
	return s.state
}

func (s *Session) mutate(fn func(st *domain.SessionState)) {
	s.stateMu.Lock()
	fn(&s.state)
	snapshot := s.state.Clone()
	s.stateMu.Unlock()

	s.notify(snapshot)
}

func (s *Session) notify(state domain.SessionState) {
	s.listenersMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l(state.Clone())
	}
}
