package subtitle

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseTimestamp converts HH:MM:SS,mmm (also MM:SS.mmm and SS.mmm) to seconds.
// Comma and period are both accepted as the fraction separator.
func ParseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	clock, frac := s, ""
	if i := strings.IndexAny(s, ",."); i >= 0 {
		clock, frac = s[:i], s[i+1:]
		if frac == "" || len(frac) > 3 || !allDigits(frac) {
			return 0, fmt.Errorf("invalid fraction in timestamp %q", s)
		}
	}

	parts := strings.Split(clock, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	var total float64
	for i, part := range parts {
		if part == "" || !allDigits(part) {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		// minutes and seconds below a larger unit must stay under 60
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("field out of range in timestamp %q", s)
		}
		total = total*60 + float64(n)
	}

	if frac != "" {
		n, _ := strconv.Atoi(frac)
		total += float64(n) / math.Pow10(len(frac))
	}
	return total, nil
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. Negative values clamp to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	ms %= 3_600_000
	m := ms / 60_000
	ms %= 60_000
	sec := ms / 1000
	ms %= 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, sec, ms)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
