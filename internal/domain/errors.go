package domain

import (
	"context"
	"errors"
	"fmt"
)

const DefaultRetryAfterSeconds = 60

var (
	ErrNotFound  = errors.New("not found")
	ErrCancelled = errors.New("request cancelled")
)

var (
	ErrEmptyQuery        = errors.New("empty query")
	ErrInvalidPage       = errors.New("page must be >= 1")
	ErrInvalidPagination = errors.New("current page exceeds total pages")
	ErrInvalidID         = errors.New("invalid anime id")
)

var ErrSessionNotFound = errors.New("saved session not found")

// RateLimitedError - апстрим ответил 429
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %d seconds", e.RetryAfterSeconds)
}

// NetworkError - любой не-2xx ответ или сбой транспорта (включая таймаут)
type NetworkError struct {
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *NetworkError) Unwrap() error { return e.Err }

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindCancelled
	KindRateLimited
	KindNetwork
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCancelled:
		return "cancelled"
	case KindRateLimited:
		return "rate_limited"
	case KindNetwork:
		return "network"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Classify сводит ошибку к одному из видов таксономии.
// context.Canceled считается отменой, всё неизвестное - сетевой ошибкой.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return KindRateLimited
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindNetwork
}

// UserMessage - текст ошибки для пользователя. Для отмены возвращает "".
func UserMessage(err error) string {
	var rl *RateLimitedError
	switch Classify(err) {
	case KindNone, KindCancelled:
		return ""
	case KindRateLimited:
		errors.As(err, &rl)
		return fmt.Sprintf("Too many requests, please retry in %d seconds", rl.RetryAfterSeconds)
	case KindNotFound:
		return "Anime not found"
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return "Network error: " + ne.Error()
	}
	return "Network error: " + err.Error()
}
