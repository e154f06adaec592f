package session

import (
	"github.com/kitbuilder587/anime-search-bot/internal/coordinator"
	"github.com/kitbuilder587/anime-search-bot/internal/domain"
)

// event - всё, что меняет SessionState, проходит через одну очередь
type event interface {
	isEvent()
}

type queryChanged struct {
	text string
}

type pageChanged struct {
	page int
}

// pageStep - next/prev относительно текущей страницы
type pageStep struct {
	delta int
}

type restored struct {
	query string
	page  int
}

type requestSucceeded struct {
	token  *coordinator.Token
	result *domain.SearchResultPage
}

type requestFailed struct {
	token *coordinator.Token
	err   error
}

// barrier закрывает done, когда все события до него обработаны
type barrier struct {
	done chan struct{}
}

func (queryChanged) isEvent()     {}
func (pageChanged) isEvent()      {}
func (pageStep) isEvent()         {}
func (restored) isEvent()         {}
func (requestSucceeded) isEvent() {}
func (requestFailed) isEvent()    {}
func (barrier) isEvent()          {}
