package domain

import (
	"strings"
)

const MaxQueryLength = 200

// SearchQuery - нормализованный текст запроса и активная страница
type SearchQuery struct {
	Text string
	Page int
}

func NewSearchQuery(text string, page int) SearchQuery {
	q := SearchQuery{Text: text, Page: page}
	q.Sanitize()
	return q
}

func (q SearchQuery) IsBlank() bool {
	return IsBlank(q.Text)
}

func (q SearchQuery) Validate() error {
	if q.IsBlank() {
		return ErrEmptyQuery
	}
	if q.Page < 1 {
		return ErrInvalidPage
	}
	return nil
}

func (q *SearchQuery) Sanitize() {
	q.Text = strings.TrimSpace(q.Text)
	if len(q.Text) > MaxQueryLength {
		q.Text = truncateRunes(q.Text, MaxQueryLength)
	}
	if q.Page < 1 {
		q.Page = 1
	}
}

// IsBlank - пустая строка или только пробелы
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// обрезаем по границе руны, чтобы не ломать кириллицу и японский
func truncateRunes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := 0
	for i := range s {
		if i > maxBytes {
			break
		}
		cut = i
	}
	return s[:cut]
}
