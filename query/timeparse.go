package query

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultLocation is the zone absolute times are read in when none is
// configured.
var DefaultLocation = time.FixedZone("UTC+8", 8*60*60)

// Absolute time layouts, tried in order.
var absoluteLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02",
}

var relativeTime = regexp.MustCompile(`^(\d+)([dhm])$`)

// ParseTime converts a time expression to a unix timestamp.
//
// Relative expressions ("7d", "24h", "30m") count back from now. Absolute
// ones ("2025-01-01", "2025-01-01 12:30") are read in loc; absolute
// reports which kind s was.
func ParseTime(s string, now time.Time, loc *time.Location) (ts int64, absolute bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, fmt.Errorf("%w: empty", ErrInvalidTime)
	}

	if m := relativeTime.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%w: %q: %v", ErrInvalidTime, s, err)
		}
		unit := time.Minute
		switch m[2] {
		case "d":
			unit = 24 * time.Hour
		case "h":
			unit = time.Hour
		}
		if n > int64(math.MaxInt64/unit) {
			return 0, false, fmt.Errorf("%w: %q: out of range", ErrInvalidTime, s)
		}
		return now.Add(-time.Duration(n) * unit).Unix(), false, nil
	}

	if loc == nil {
		loc = DefaultLocation
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.Unix(), true, nil
		}
	}
	return 0, false, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}
