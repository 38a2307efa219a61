package domain

import "fmt"

// FormatDuration renders milliseconds as "M m S s", or "S s" under a minute
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	minutes := seconds / 60
	secs := seconds % 60
	if minutes > 0 {
		return fmt.Sprintf("%d m %d s", minutes, secs)
	}
	return fmt.Sprintf("%d s", secs)
}
