package domain

// Anime - запись из каталога (общая для выдачи поиска и карточки)
type Anime struct {
	MalID         int
	Title         string
	TitleEnglish  string
	TitleJapanese string
	ImageURL      string
	LargeImageURL string
	Synopsis      string
	Score         float64
	Episodes      int
	Status        string
	Aired         string
	Genres        []Named
	Studios       []Named
}

type Named struct {
	MalID int
	Name  string
}

// AnimeSummary - элемент выдачи поиска
type AnimeSummary = Anime

// AnimeDetail - карточка, полученная по id
type AnimeDetail = Anime

// DisplayTitle возвращает английское название если оно есть.
func (a Anime) DisplayTitle() string {
	if a.TitleEnglish != "" {
		return a.TitleEnglish
	}
	return a.Title
}

type PaginationMeta struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int
	HasNextPage bool
}

// EmptyPagination - состояние пагинации до первого запроса и после очистки
func EmptyPagination() PaginationMeta {
	return PaginationMeta{CurrentPage: 1, TotalPages: 1}
}

// Validate проверяет currentPage <= totalPages при непустой выдаче.
func (p PaginationMeta) Validate() error {
	if p.CurrentPage < 1 {
		return ErrInvalidPage
	}
	if p.TotalItems > 0 && p.CurrentPage > p.TotalPages {
		return ErrInvalidPagination
	}
	return nil
}

// SearchResultPage - одна страница выдачи, порядок Items = порядок релевантности апстрима
type SearchResultPage struct {
	Items      []AnimeSummary
	Pagination PaginationMeta
}
