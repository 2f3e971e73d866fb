package analytics

import (
	"time"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

type HabitStreak struct {
	HabitID string `json:"habit_id"`
	Title   string `json:"title"`
	Current int    `json:"current"`
	Longest int    `json:"longest"`
}

// CurrentStreak walks backward from today, one calendar day at a time.
// Unscheduled days are skipped, the first scheduled day without a completion
// ends the walk. At most lookback days are visited.
func CurrentStreak(h *domain.Habit, completions domain.Completions, today time.Time, lookback int) int {
	if h == nil {
		return 0
	}
	if lookback <= 0 {
		lookback = DefaultStreakLookback
	}

	start := Midnight(today)
	streak := 0
	for i := 0; i < lookback; i++ {
		day := start.AddDate(0, 0, -i)
		if !IsScheduled(h, day) {
			continue
		}
		if !completions.IsCompleted(h.ID, dayKey(day)) {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak is the longest run of completed scheduled days inside r.
func LongestStreak(h *domain.Habit, completions domain.Completions, r DateRange) int {
	if h == nil {
		return 0
	}

	run, best := 0, 0
	r.Each(func(day time.Time) {
		if !IsScheduled(h, day) {
			return
		}
		if completions.IsCompleted(h.ID, dayKey(day)) {
			run++
			if run > best {
				best = run
			}
			return
		}
		run = 0
	})
	return best
}

// Streaks computes both streaks for every habit, in habit order.
func Streaks(habits []*domain.Habit, completions domain.Completions, r DateRange, today time.Time, lookback int) []HabitStreak {
	out := make([]HabitStreak, 0, len(habits))
	for _, h := range habits {
		if h == nil {
			continue
		}
		out = append(out, HabitStreak{
			HabitID: h.ID,
			Title:   h.Title,
			Current: CurrentStreak(h, completions, today, lookback),
			Longest: LongestStreak(h, completions, r),
		})
	}
	return out
}
