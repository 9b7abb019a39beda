package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestPermanent(t *testing.T) {
	base := errors.New("bad filter")
	p := Permanent(base)

	if !errors.Is(p, base) {
		t.Fatal("Permanent does not unwrap to the original error")
	}
	if !IsPermanent(fmt.Errorf("wrapped: %w", p)) {
		t.Fatal("IsPermanent lost through wrapping")
	}
	if IsPermanent(base) {
		t.Fatal("plain error reported permanent")
	}
	if Permanent(nil) != nil {
		t.Fatal("Permanent(nil) != nil")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("connection reset"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"timeout", fmt.Errorf("%w: %w", ErrTimeout, context.DeadlineExceeded), true},
		{"canceled", fmt.Errorf("fetch: %w", context.Canceled), false},
		{"circuit open", ErrCircuitOpen, false},
		{"permanent", Permanent(errors.New("x")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
