package analytics

import (
	"math"
	"time"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

type DayAggregate struct {
	Date      string `json:"date"`
	Possible  int    `json:"possible"`
	Completed int    `json:"completed"`
	Rate      int    `json:"rate"`
}

// AggregateDays computes, for each day of r, how many scheduled habits were
// completed. The result is in ascending date order and has one element per
// day, or none at all when there are no habits.
func AggregateDays(habits []*domain.Habit, completions domain.Completions, r DateRange) []DayAggregate {
	if len(habits) == 0 || r.Empty() {
		return []DayAggregate{}
	}

	out := make([]DayAggregate, 0, r.Days())
	r.Each(func(day time.Time) {
		out = append(out, aggregateDay(habits, completions, day))
	})
	return out
}

func aggregateDay(habits []*domain.Habit, completions domain.Completions, day time.Time) DayAggregate {
	key := dayKey(day)
	agg := DayAggregate{Date: key}

	for _, h := range habits {
		if !IsScheduled(h, day) {
			continue
		}
		agg.Possible++
		if completions.IsCompleted(h.ID, key) {
			agg.Completed++
		}
	}

	agg.Rate = percent(agg.Completed, agg.Possible)
	return agg
}

// PooledRate sums completed and possible over days. ok is false when no
// habit was scheduled on any of them.
func PooledRate(days []DayAggregate) (rate float64, ok bool) {
	completed, possible := 0, 0
	for _, d := range days {
		completed += d.Completed
		possible += d.Possible
	}
	if possible == 0 {
		return 0, false
	}
	return ratio(completed, possible), true
}

func percent(part, whole int) int {
	return int(math.Round(ratio(part, whole)))
}

func ratio(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}
