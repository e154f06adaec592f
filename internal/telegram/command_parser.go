package telegram

import (
	"errors"
	"strconv"
	"strings"
)

var ErrBadArgument = errors.New("bad command argument")

type CommandKind int

const (
	CmdQuery CommandKind = iota
	CmdStart
	CmdHelp
	CmdClear
	CmdPage
	CmdNext
	CmdPrev
	CmdAnime
	CmdStats
	CmdUnknown
)

// Command - разобранное сообщение. Text - сырой ввод для CmdQuery, N - номер страницы или id.
type Command struct {
	Kind CommandKind
	Text string
	N    int
}

const (
	callbackPage  = "page"
	callbackAnime = "anime"
)

// /page 2, /anime 20, /next ... -> команда
// обычный текст -> CmdQuery как есть, обрезку пробелов делает сессия
func ParseCommand(text string) (Command, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return Command{Kind: CmdQuery, Text: text}, nil
	}

	parts := strings.SplitN(trimmed, " ", 2)
	name := strings.ToLower(parts[0][1:])
	// /page@my_bot 2
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	var rest string
	if len(parts) > 1 {
		rest = normalizeSpaces(parts[1])
	}

	switch name {
	case "start":
		return Command{Kind: CmdStart}, nil
	case "help":
		return Command{Kind: CmdHelp}, nil
	case "search", "s":
		return Command{Kind: CmdQuery, Text: rest}, nil
	case "clear":
		return Command{Kind: CmdClear}, nil
	case "next":
		return Command{Kind: CmdNext}, nil
	case "prev":
		return Command{Kind: CmdPrev}, nil
	case "stats":
		return Command{Kind: CmdStats}, nil
	case "page":
		n, err := positiveInt(rest)
		if err != nil {
			return Command{Kind: CmdPage}, err
		}
		return Command{Kind: CmdPage, N: n}, nil
	case "anime":
		n, err := positiveInt(rest)
		if err != nil {
			return Command{Kind: CmdAnime}, err
		}
		return Command{Kind: CmdAnime, N: n}, nil
	default:
		return Command{Kind: CmdUnknown, Text: name}, nil
	}
}

// ParseCallback разбирает data инлайн-кнопки: "page:2", "anime:20"
func ParseCallback(data string) (Command, error) {
	name, arg, ok := strings.Cut(data, ":")
	if !ok {
		return Command{Kind: CmdUnknown}, ErrBadArgument
	}

	n, err := positiveInt(arg)
	if err != nil {
		return Command{Kind: CmdUnknown}, err
	}

	switch name {
	case callbackPage:
		return Command{Kind: CmdPage, N: n}, nil
	case callbackAnime:
		return Command{Kind: CmdAnime, N: n}, nil
	default:
		return Command{Kind: CmdUnknown}, ErrBadArgument
	}
}

func pageCallback(page int) string {
	return callbackPage + ":" + strconv.Itoa(page)
}

func animeCallback(id int) string {
	return callbackAnime + ":" + strconv.Itoa(id)
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, ErrBadArgument
	}
	return n, nil
}

func normalizeSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
