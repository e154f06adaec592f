package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"cancelled", ErrCancelled, KindCancelled},
		{"context canceled", context.Canceled, KindCancelled},
		{"wrapped cancel", fmt.Errorf("search: %w", ErrCancelled), KindCancelled},
		{"rate limited", &RateLimitedError{RetryAfterSeconds: 30}, KindRateLimited},
		{"wrapped rate limited", fmt.Errorf("search: %w", &RateLimitedError{RetryAfterSeconds: 5}), KindRateLimited},
		{"not found", ErrNotFound, KindNotFound},
		{"network", &NetworkError{Message: "status 500"}, KindNetwork},
		{"deadline is network", context.DeadlineExceeded, KindNetwork},
		{"unknown", errors.New("boom"), KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(ErrCancelled); got != "" {
		t.Errorf("UserMessage(cancelled) = %q, want empty", got)
	}

	got := UserMessage(&RateLimitedError{RetryAfterSeconds: 30})
	if !strings.Contains(got, "30") {
		t.Errorf("UserMessage(rate limited) = %q, want retry hint", got)
	}

	got = UserMessage(&NetworkError{Message: "status 503"})
	if !strings.Contains(got, "status 503") {
		t.Errorf("UserMessage(network) = %q", got)
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{Message: "do request", Err: context.DeadlineExceeded}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("NetworkError should unwrap to its cause")
	}
}
