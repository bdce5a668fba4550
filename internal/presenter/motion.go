package presenter

import (
	"fmt"
	"time"
)

// MotionText formats how long ago motion was last seen.
func MotionText(active bool, last, now time.Time) string {
	if active {
		return "now"
	}
	if last.IsZero() {
		return "??"
	}

	ago := now.Sub(last)
	if ago < 0 {
		ago = 0
	}
	minutes := int(ago / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
