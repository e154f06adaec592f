package telegram

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kitbuilder587/anime-search-bot/internal/domain"
	"github.com/kitbuilder587/anime-search-bot/internal/service"
)

const (
	maxMessageLen  = 4096 // лимит телеграма
	maxSynopsisLen = 1500
	buttonsPerRow  = 5
)

// FormatSearchState - текст сообщения для Success/Error/Idle. Loading не рендерится.
func FormatSearchState(st domain.SessionState) string {
	switch st.Status {
	case domain.StatusError:
		return "⚠️ " + html.EscapeString(st.Error)
	case domain.StatusIdle:
		return "Поиск сброшен. Отправьте название аниме."
	case domain.StatusLoading:
		return fmt.Sprintf("Ищу «%s»...", html.EscapeString(st.Query))
	}

	if len(st.Results) == 0 {
		return fmt.Sprintf("По запросу «%s» ничего не найдено.", html.EscapeString(st.Query))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>«%s»</b>: страница %d из %d (всего %d)\n\n",
		html.EscapeString(st.Query),
		st.Pagination.CurrentPage,
		st.Pagination.TotalPages,
		st.Pagination.TotalItems,
	))

	for i, a := range st.Results {
		sb.WriteString(fmt.Sprintf("%d. <b>%s</b>", i+1, html.EscapeString(a.DisplayTitle())))
		if meta := summaryMeta(a); meta != "" {
			sb.WriteString("\n   " + meta)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// ResultsKeyboard - кнопки карточек и листания. nil, если кнопок нет.
func ResultsKeyboard(st domain.SessionState) *tgbotapi.InlineKeyboardMarkup {
	if st.Status != domain.StatusSuccess {
		return nil
	}

	var rows [][]tgbotapi.InlineKeyboardButton

	var row []tgbotapi.InlineKeyboardButton
	for i, a := range st.Results {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(i+1), animeCallback(a.MalID)))
		if len(row) == buttonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	var nav []tgbotapi.InlineKeyboardButton
	page := st.Pagination.CurrentPage
	if page > 1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("« Назад", pageCallback(page-1)))
	}
	if st.Pagination.HasNextPage {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Вперёд »", pageCallback(page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	if len(rows) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func FormatDetail(st domain.DetailState) string {
	switch {
	case st.NotFound:
		return fmt.Sprintf("Аниме #%d не найдено.", st.ID)
	case st.Status == domain.StatusError:
		return "⚠️ " + html.EscapeString(st.Error)
	case st.Anime == nil:
		return ""
	}

	a := st.Anime
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("<b>%s</b>\n", html.EscapeString(a.DisplayTitle())))
	if a.TitleJapanese != "" {
		sb.WriteString(html.EscapeString(a.TitleJapanese) + "\n")
	}
	sb.WriteString("\n")

	if meta := summaryMeta(*a); meta != "" {
		sb.WriteString(meta + "\n")
	}
	if a.Status != "" {
		sb.WriteString("Статус: " + html.EscapeString(a.Status) + "\n")
	}
	if a.Aired != "" {
		sb.WriteString("Выход: " + html.EscapeString(a.Aired) + "\n")
	}
	if len(a.Genres) > 0 {
		sb.WriteString("Жанры: " + html.EscapeString(joinNames(a.Genres)) + "\n")
	}
	if len(a.Studios) > 0 {
		sb.WriteString("Студия: " + html.EscapeString(joinNames(a.Studios)) + "\n")
	}
	if a.Synopsis != "" {
		sb.WriteString("\n" + html.EscapeString(truncateText(a.Synopsis, maxSynopsisLen)) + "\n")
	}
	if a.LargeImageURL != "" || a.ImageURL != "" {
		img := a.LargeImageURL
		if img == "" {
			img = a.ImageURL
		}
		sb.WriteString(fmt.Sprintf("\n<a href=\"%s\">Постер</a>", html.EscapeString(img)))
	}

	return sb.String()
}

func FormatStats(st service.Stats) string {
	return fmt.Sprintf("<b>Статистика</b>\n\nАктивных сессий: %d\nПользователей: %d\nВ кеше поиска: %d\nВ кеше карточек: %d",
		st.ActiveSessions,
		st.Users,
		st.Cache.SearchEntries,
		st.Cache.DetailEntries,
	)
}

func summaryMeta(a domain.Anime) string {
	var parts []string
	if a.Score > 0 {
		parts = append(parts, fmt.Sprintf("★ %.2f", a.Score))
	}
	if a.Episodes > 0 {
		parts = append(parts, fmt.Sprintf("%d эп.", a.Episodes))
	}
	return strings.Join(parts, " · ")
}

func joinNames(items []domain.Named) string {
	names := make([]string, 0, len(items))
	for _, n := range items {
		names = append(names, n.Name)
	}
	return strings.Join(names, ", ")
}

func truncateText(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes-3]) + "..."
}

func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		if splitPoint <= 0 || splitPoint > len(text) {
			splitPoint = maxLen
		}

		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

func findSafeSplitPoint(text string, maxLen int) int {
	// пробел или перевод строки вне HTML-тега
	for i := maxLen - 1; i > maxLen/2; i-- {
		if i >= len(text) || isInsideHTMLTag(text, i) {
			continue
		}
		if text[i] == '\n' || text[i] == ' ' {
			return i + 1
		}
	}

	// режем внутри тега: ищем его конец
	if isInsideHTMLTag(text, maxLen) {
		for i := maxLen; i < len(text); i++ {
			if text[i] == '>' {
				return i + 1
			}
		}
	}

	for i := maxLen - 1; i > 0; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i + 1
		}
	}

	return maxLen
}

func isInsideHTMLTag(text string, pos int) bool {
	if pos >= len(text) || pos < 0 {
		return false
	}
	for i := pos; i >= 0; i-- {
		if text[i] == '>' {
			return false
		}
		if text[i] == '<' {
			return true
		}
	}
	return false
}
