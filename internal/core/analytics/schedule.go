package analytics

import (
	"time"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

// IsScheduled reports whether h is due on day. Habits without weekdays are
// due every day.
func IsScheduled(h *domain.Habit, day time.Time) bool {
	if h == nil {
		return false
	}
	if len(h.Weekdays) == 0 {
		return true
	}

	wd := int(day.Weekday())
	for _, d := range h.Weekdays {
		if d == wd {
			return true
		}
	}
	return false
}
