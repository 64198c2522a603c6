package player

import (
	"fmt"
	"time"
)

// Track is one playable item. ID is stable across rescans; SourcePath is
// what the audio device is handed.
type Track struct {
	ID              string
	Name            string
	SourcePath      string
	DurationSeconds float64
	AddedAt         time.Time
}

// FormatDuration renders a duration in seconds as "M:SS" for display.
// Unknown durations (negative) render as "--:--".
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		return "--:--"
	}
	total := int(seconds + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
