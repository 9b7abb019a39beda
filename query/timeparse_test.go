package query

import (
	"errors"
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		in           string
		loc          *time.Location
		want         int64
		wantAbsolute bool
		wantErr      bool
	}{
		{name: "days", in: "7d", want: now.Add(-7 * 24 * time.Hour).Unix()},
		{name: "hours", in: "24h", want: now.Add(-24 * time.Hour).Unix()},
		{name: "minutes", in: "30m", want: now.Add(-30 * time.Minute).Unix()},
		{name: "surrounding space", in: " 2h ", want: now.Add(-2 * time.Hour).Unix()},
		{
			name:         "date in default zone",
			in:           "2025-01-01",
			want:         time.Date(2025, 1, 1, 0, 0, 0, 0, DefaultLocation).Unix(),
			wantAbsolute: true,
		},
		{
			name:         "datetime in default zone",
			in:           "2025-01-01 12:30",
			want:         time.Date(2025, 1, 1, 12, 30, 0, 0, DefaultLocation).Unix(),
			wantAbsolute: true,
		},
		{
			name:         "date in given zone",
			in:           "2025-01-01",
			loc:          time.UTC,
			want:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
			wantAbsolute: true,
		},
		{name: "empty", in: "", wantErr: true},
		{name: "garbage", in: "invalid", wantErr: true},
		{name: "unknown unit", in: "3w", wantErr: true},
		{name: "negative", in: "-3d", wantErr: true},
		{name: "largest day count", in: "106751d", want: now.Add(-106751 * 24 * time.Hour).Unix()},
		{name: "day count overflows", in: "99999999999d", wantErr: true},
		{name: "minute count overflows", in: "9999999999999999m", wantErr: true},
		{name: "beyond int64", in: "99999999999999999999h", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, absolute, err := ParseTime(tt.in, now, tt.loc)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTime) {
					t.Fatalf("ParseTime(%q) error = %v, want ErrInvalidTime", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTime(%q) unexpected error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTime(%q) = %d, want %d", tt.in, got, tt.want)
			}
			if absolute != tt.wantAbsolute {
				t.Errorf("ParseTime(%q) absolute = %v, want %v", tt.in, absolute, tt.wantAbsolute)
			}
		})
	}
}
