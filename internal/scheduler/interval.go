// Package scheduler holds candle-interval helpers shared by the gateway and
// the config layer.
package scheduler

import (
	"strconv"
	"strings"
	"time"
)

var intervalUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseIntervalDuration converts an exchange interval string ("1m", "5m",
// "4h", "1d", "1w") to a duration. The second result is false for anything
// that is not a positive count followed by a known unit.
func ParseIntervalDuration(interval string) (time.Duration, bool) {
	s := strings.ToLower(strings.TrimSpace(interval))
	if len(s) < 2 {
		return 0, false
	}
	unit, ok := intervalUnits[s[len(s)-1]]
	if !ok {
		return 0, false
	}
	count, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || count <= 0 {
		return 0, false
	}
	return time.Duration(count) * unit, true
}
