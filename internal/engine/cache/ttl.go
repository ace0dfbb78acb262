package cache

import (
	"fmt"
	"strconv"
	"time"
)

// Defaults. All of them are configuration, not correctness constants.
const (
	// DefaultTTL is how long recommendations are served from cache.
	DefaultTTL = 24 * time.Hour

	// MaxTTL caps configurable TTLs (30 days).
	MaxTTL = 30 * 24 * time.Hour

	// DefaultMaxEntries is the entry count capacity eviction trims down to.
	DefaultMaxEntries = 50

	// DefaultCleanupInterval throttles opportunistic cleanup on Put.
	DefaultCleanupInterval = time.Hour

	// DefaultSchemaVersion tags the payload shape written by this build.
	DefaultSchemaVersion = "1.0.0"

	// minutesPerHour is used for duration formatting calculations.
	minutesPerHour = 60

	// hoursPerDay is used for duration formatting calculations.
	hoursPerDay = 24
)

// ErrInvalidTTL is returned by ParseTTL for out-of-range values.
var ErrInvalidTTL = fmt.Errorf("TTL must be between 0 and %s", FormatDuration(MaxTTL))

// FormatDuration formats a duration in a human-readable way.
// Examples: "45s", "30m", "2h30m", "3d2h".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}

// ParseTTL parses a TTL given either as whole hours ("24") or as a Go
// duration ("90m", "1h30m"). Zero is allowed and means entries expire as
// soon as they are written.
func ParseTTL(s string) (time.Duration, error) {
	var ttl time.Duration
	if hours, err := strconv.Atoi(s); err == nil {
		ttl = time.Duration(hours) * time.Hour
	} else {
		parsed, parseErr := time.ParseDuration(s)
		if parseErr != nil {
			return 0, fmt.Errorf("invalid TTL format: %w", parseErr)
		}
		ttl = parsed
	}

	if ttl < 0 || ttl > MaxTTL {
		return 0, fmt.Errorf("%w: got %s", ErrInvalidTTL, ttl)
	}
	return ttl, nil
}
