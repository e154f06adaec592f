package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kitbuilder587/anime-search-bot/internal/coordinator"
	"github.com/kitbuilder587/anime-search-bot/internal/domain"
	"github.com/kitbuilder587/anime-search-bot/internal/search"
)

// DetailView - карточка одного аниме. Новый Load отменяет предыдущий.
type DetailView struct {
	client search.Client
	coord  *coordinator.Coordinator
	logger *zap.Logger

	mu      sync.RWMutex
	state   domain.DetailState
	current *coordinator.Token
}

func NewDetailView(client search.Client, logger *zap.Logger) *DetailView {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DetailView{
		client: client,
		coord:  coordinator.New(context.Background()),
		logger: logger,
	}
}

// Load блокируется до ответа. applied=false, если запрос был перебит
// более новым Load и его результат выброшен.
func (v *DetailView) Load(ctx context.Context, id int) (state domain.DetailState, applied bool) {
	if id <= 0 {
		// неверный id тоже новее идущей загрузки: её ответ не должен его перезаписать
		v.mu.Lock()
		defer v.mu.Unlock()
		v.coord.CancelLive()
		v.current = nil
		v.state = domain.DetailState{ID: id, Status: domain.StatusError, Error: domain.ErrInvalidID.Error()}
		return v.state, true
	}

	// выдача токена и переход в loading атомарны относительно других Load
	v.mu.Lock()
	tok := v.coord.Start()
	v.current = tok
	v.state = domain.DetailState{ID: id, Status: domain.StatusLoading}
	v.mu.Unlock()

	stop := context.AfterFunc(ctx, tok.Cancel)
	defer stop()

	anime, err := v.client.GetAnimeByID(tok.Context(), id)

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.coord.Complete(tok) {
		if v.current != tok {
			v.logger.Debug("stale detail response discarded", zap.Int("id", id))
			return v.state, false
		}
		// токен отменил сам вызывающий, более нового Load не было
		v.current = nil
		v.state = domain.DetailState{ID: id, Status: domain.StatusIdle}
		return v.state, true
	}
	v.current = nil

	switch kind := domain.Classify(err); kind {
	case domain.KindNone:
		v.state = domain.DetailState{ID: id, Status: domain.StatusSuccess, Anime: anime}
	case domain.KindCancelled:
		v.state = domain.DetailState{ID: id, Status: domain.StatusIdle}
	case domain.KindNotFound:
		v.state = domain.DetailState{ID: id, Status: domain.StatusError, NotFound: true, Error: domain.UserMessage(err)}
	default:
		v.logger.Warn("detail fetch failed", zap.Int("id", id), zap.String("kind", kind.String()), zap.Error(err))
		v.state = domain.DetailState{ID: id, Status: domain.StatusError, Error: domain.UserMessage(err)}
	}
	return v.state, true
}

// Reset отменяет загрузку и очищает карточку
func (v *DetailView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.coord.CancelLive()
	v.current = nil
	v.state = domain.DetailState{}
}

func (v *DetailView) State() domain.DetailState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}
