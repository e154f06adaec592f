package domain

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// SessionState - наблюдаемое состояние поисковой сессии.
// Error пустой, если последний запрос не упал.
type SessionState struct {
	Query      string
	Page       int
	Results    []AnimeSummary
	Pagination PaginationMeta
	Status     Status
	Error      string
}

func InitialSessionState() SessionState {
	return SessionState{
		Page:       1,
		Results:    []AnimeSummary{},
		Pagination: EmptyPagination(),
		Status:     StatusIdle,
	}
}

// Clone копирует слайс результатов, чтобы подписчики не делили память с сессией
func (s SessionState) Clone() SessionState {
	out := s
	out.Results = make([]AnimeSummary, len(s.Results))
	copy(out.Results, s.Results)
	return out
}

// DetailState - состояние карточки аниме
type DetailState struct {
	ID       int
	Status   Status
	Anime    *AnimeDetail
	NotFound bool
	Error    string
}
