package utils

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTimestamp parses a user-supplied timestamp. Accepted forms:
// RFC 3339 ("2026-08-27T14:00:00Z"), a bare date ("2026-08-27", taken as
// UTC midnight), and unix epoch seconds or milliseconds.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// Millisecond epochs are 13 digits for any modern date.
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q (want RFC 3339, YYYY-MM-DD, or unix epoch)", s)
}
