package analytics

import (
	"time"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

// Snapshot is the read-only input of an aggregation pass.
type Snapshot struct {
	Habits      []*domain.Habit
	Completions domain.Completions
}

type RangeInfo struct {
	Start string `json:"start_date"`
	End   string `json:"end_date"`
	Days  int    `json:"days"`
}

// Report is everything the dashboard renders for one range. Values returned
// by Memo are shared between callers and must be treated as read-only.
type Report struct {
	Range       RangeInfo      `json:"range"`
	TotalHabits int            `json:"total_habits"`
	OverallRate float64        `json:"overall_completion_rate"`
	Days        []DayAggregate `json:"days"`
	Streaks     []HabitStreak  `json:"streaks"`
	Weekdays    []WeekdayStat  `json:"weekdays"`
	Trend       Trend          `json:"trend"`
	Insights    []Insight      `json:"insights"`
}

func Summarize(s Snapshot, r DateRange, today time.Time, opts Options) Report {
	opts = opts.WithDefaults()

	rep := Report{
		Range: RangeInfo{
			Start: dayKey(r.Start),
			End:   dayKey(r.End),
			Days:  r.Days(),
		},
		TotalHabits: len(s.Habits),
		Days:        AggregateDays(s.Habits, s.Completions, r),
		Streaks:     Streaks(s.Habits, s.Completions, r, today, opts.StreakLookback),
		Weekdays:    RankWeekdays(s.Habits, s.Completions, r),
		Insights:    []Insight{},
	}

	rep.OverallRate, _ = PooledRate(rep.Days)

	if len(s.Habits) > 0 {
		rep.Trend = ComputeTrend(s.Habits, s.Completions, today, opts.TrendDelta)
		rep.Insights = DeriveInsights(rep.Weekdays, rep.Streaks, rep.Trend, opts)
	}

	return rep
}
