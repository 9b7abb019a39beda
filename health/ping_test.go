package health

import (
	"context"
	"errors"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingChecker(t *testing.T) {
	errRefused := errors.New("connection refused")

	tests := []struct {
		name    string
		pinger  Pinger
		want    Status
		wantErr error
	}{
		{"reachable", pingFunc(func(context.Context) error { return nil }), StatusHealthy, nil},
		{"unreachable", pingFunc(func(context.Context) error { return errRefused }), StatusUnhealthy, errRefused},
		{"nil pinger", nil, StatusUnhealthy, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewPingChecker("store", tt.pinger)
			if checker.Name() != "store" {
				t.Errorf("Name() = %q, want store", checker.Name())
			}
			got := checker.Check(context.Background())
			if got.Status != tt.want {
				t.Errorf("Status = %v, want %v", got.Status, tt.want)
			}
			if tt.wantErr != nil && !errors.Is(got.Error, tt.wantErr) {
				t.Errorf("Error = %v, want %v", got.Error, tt.wantErr)
			}
		})
	}
}
