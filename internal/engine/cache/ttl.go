package cache

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// MaxTTLSeconds caps factor cache TTL at one day.
	MaxTTLSeconds = 86400

	minutesPerHour = 60
)

// ErrInvalidTTL is returned for a TTL outside [0, MaxTTLSeconds].
var ErrInvalidTTL = fmt.Errorf("TTL must be between 0 and %d seconds", MaxTTLSeconds)

// TTLFromSeconds converts a configured TTL to a duration. 0 disables caching.
func TTLFromSeconds(seconds int) (time.Duration, error) {
	if seconds < 0 || seconds > MaxTTLSeconds {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}

// ParseTTL parses "900" (seconds) or a duration string such as "15m".
func ParseTTL(s string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(s); err == nil {
		return TTLFromSeconds(seconds)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL format: %w", err)
	}
	return TTLFromSeconds(int(d.Seconds()))
}

// FormatDuration formats a duration compactly, e.g. "45s", "15m", "1h30m".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % minutesPerHour
	if minutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh%dm", hours, minutes)
}
