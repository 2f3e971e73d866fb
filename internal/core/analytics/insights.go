package analytics

import (
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

type InsightKind string

const (
	InsightBestDay      InsightKind = "best_day"
	InsightWorstDay     InsightKind = "worst_day"
	InsightStreakLeader InsightKind = "streak_leader"
	InsightTrend        InsightKind = "trend"

	TrendUp   = "up"
	TrendDown = "down"
)

type Insight struct {
	Kind      InsightKind `json:"kind"`
	Headline  string      `json:"headline"`
	Subject   string      `json:"subject,omitempty"`
	Direction string      `json:"direction,omitempty"`
	Value     float64     `json:"value"`
	Baseline  float64     `json:"baseline,omitempty"`
}

type WeekdayStat struct {
	Weekday     int     `json:"weekday"`
	Name        string  `json:"name"`
	Occurrences int     `json:"occurrences"`
	Completions int     `json:"completions"`
	Rate        float64 `json:"rate"`
}

// Trend compares the last seven days with the seven before them.
// Defined is false when either window had nothing scheduled.
type Trend struct {
	Recent    float64 `json:"recent"`
	Prior     float64 `json:"prior"`
	Delta     float64 `json:"delta"`
	Direction string  `json:"direction,omitempty"`
	Defined   bool    `json:"defined"`
}

// RankWeekdays returns seven entries, Sunday first.
func RankWeekdays(habits []*domain.Habit, completions domain.Completions, r DateRange) []WeekdayStat {
	stats := make([]WeekdayStat, 7)
	for i := range stats {
		stats[i] = WeekdayStat{Weekday: i, Name: time.Weekday(i).String()}
	}

	r.Each(func(day time.Time) {
		ws := &stats[int(day.Weekday())]
		key := dayKey(day)
		for _, h := range habits {
			if !IsScheduled(h, day) {
				continue
			}
			ws.Occurrences++
			if completions.IsCompleted(h.ID, key) {
				ws.Completions++
			}
		}
	})

	for i := range stats {
		stats[i].Rate = ratio(stats[i].Completions, stats[i].Occurrences)
	}
	return stats
}

// BestAndWorst picks the highest and lowest rate among weekdays that had at
// least one scheduled habit. Ties go to the earlier weekday.
func BestAndWorst(stats []WeekdayStat) (best, worst WeekdayStat, ok bool) {
	for _, s := range stats {
		if s.Occurrences == 0 {
			continue
		}
		if !ok {
			best, worst, ok = s, s, true
			continue
		}
		if s.Rate > best.Rate {
			best = s
		}
		if s.Rate < worst.Rate {
			worst = s
		}
	}
	return best, worst, ok
}

// StreakLeader returns the habit with the longest current streak.
func StreakLeader(streaks []HabitStreak) (HabitStreak, bool) {
	var leader HabitStreak
	found := false
	for _, s := range streaks {
		if !found || s.Current > leader.Current {
			leader, found = s, true
		}
	}
	return leader, found
}

func ComputeTrend(habits []*domain.Habit, completions domain.Completions, today time.Time, delta float64) Trend {
	end := Midnight(today)
	recentDays := AggregateDays(habits, completions, DateRange{Start: end.AddDate(0, 0, -6), End: end})
	priorDays := AggregateDays(habits, completions, DateRange{Start: end.AddDate(0, 0, -13), End: end.AddDate(0, 0, -7)})

	recent, okRecent := PooledRate(recentDays)
	prior, okPrior := PooledRate(priorDays)
	if !okRecent || !okPrior {
		return Trend{}
	}

	t := Trend{Recent: recent, Prior: prior, Delta: recent - prior, Defined: true}
	switch {
	case t.Delta > delta:
		t.Direction = TrendUp
	case t.Delta < -delta:
		t.Direction = TrendDown
	}
	return t
}

// DeriveInsights emits insights in a fixed category order (best day, worst
// day, streak leader, trend) and truncates to opts.MaxInsights.
func DeriveInsights(weekdays []WeekdayStat, streaks []HabitStreak, trend Trend, opts Options) []Insight {
	opts = opts.WithDefaults()
	out := []Insight{}

	if best, worst, ok := BestAndWorst(weekdays); ok {
		out = append(out, Insight{
			Kind:     InsightBestDay,
			Headline: fmt.Sprintf("%s is your strongest day (%.0f%% completed)", best.Name, best.Rate),
			Subject:  best.Name,
			Value:    best.Rate,
		})

		if worst.Rate > 0 && best.Rate-worst.Rate > opts.WorstDayGap {
			out = append(out, Insight{
				Kind:     InsightWorstDay,
				Headline: fmt.Sprintf("%s needs attention (%.0f%% vs %.0f%% on %s)", worst.Name, worst.Rate, best.Rate, best.Name),
				Subject:  worst.Name,
				Value:    worst.Rate,
				Baseline: best.Rate,
			})
		}
	}

	if leader, ok := StreakLeader(streaks); ok && leader.Current >= opts.MinLeaderStreak {
		out = append(out, Insight{
			Kind:     InsightStreakLeader,
			Headline: fmt.Sprintf("%s is on a %d-day streak", leader.Title, leader.Current),
			Subject:  leader.HabitID,
			Value:    float64(leader.Current),
		})
	}

	if trend.Defined && trend.Direction != "" {
		verb := "up"
		if trend.Direction == TrendDown {
			verb = "down"
		}
		diff := trend.Delta
		if diff < 0 {
			diff = -diff
		}
		out = append(out, Insight{
			Kind:      InsightTrend,
			Headline:  fmt.Sprintf("Completion is %s %.0f points this week (%.0f%% vs %.0f%%)", verb, diff, trend.Recent, trend.Prior),
			Direction: trend.Direction,
			Value:     trend.Recent,
			Baseline:  trend.Prior,
		})
	}

	if len(out) > opts.MaxInsights {
		out = out[:opts.MaxInsights]
	}
	return out
}

// Insights runs the whole derivation over r as of today.
func Insights(habits []*domain.Habit, completions domain.Completions, r DateRange, today time.Time, opts Options) []Insight {
	opts = opts.WithDefaults()
	if len(habits) == 0 {
		return []Insight{}
	}
	weekdays := RankWeekdays(habits, completions, r)
	streaks := Streaks(habits, completions, r, today, opts.StreakLookback)
	trend := ComputeTrend(habits, completions, today, opts.TrendDelta)
	return DeriveInsights(weekdays, streaks, trend, opts)
}
