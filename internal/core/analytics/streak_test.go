package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

func TestCurrentStreak(t *testing.T) {
	tests := []struct {
		name     string
		habit    *domain.Habit
		done     []string
		today    string
		lookback int
		want     int
	}{
		{
			name:  "Scenario A: three consecutive days",
			habit: habit("h1"),
			done:  []string{"2024-01-01", "2024-01-02", "2024-01-03"},
			today: "2024-01-03",
			want:  3,
		},
		{
			name:  "Scenario B: gap resets the streak",
			habit: habit("h1"),
			done:  []string{"2024-01-01", "2024-01-03"},
			today: "2024-01-03",
			want:  1,
		},
		{
			name:  "Today scheduled but not done ends the walk immediately",
			habit: habit("h1"),
			done:  []string{"2024-01-01", "2024-01-02"},
			today: "2024-01-03",
			want:  0,
		},
		{
			name:  "Scenario C: unscheduled Tuesday does not break Mon/Wed/Fri",
			habit: habit("h1", 1, 3, 5),
			done:  []string{"2024-01-01", "2024-01-03", "2024-01-05"},
			today: "2024-01-06",
			want:  3,
		},
		{
			name:  "Empty history",
			habit: habit("h1"),
			today: "2024-01-03",
			want:  0,
		},
		{
			name:     "Lookback caps a long streak",
			habit:    habit("h1"),
			done:     []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"},
			today:    "2024-01-05",
			lookback: 3,
			want:     3,
		},
		{
			name:     "Schedule outside the lookback window yields zero",
			habit:    habit("h1", 6),
			done:     []string{"2024-01-06"},
			today:    "2024-01-10",
			lookback: 3,
			want:     0,
		},
		{
			name:  "Nil habit",
			today: "2024-01-03",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := completed("h1", tt.done...)
			got := analytics.CurrentStreak(tt.habit, c, day(tt.today), tt.lookback)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrentStreak_Monotonicity(t *testing.T) {
	h := habit("h1")
	c := domain.Completions{}
	start := day("2024-01-01")

	for i := 0; i < 20; i++ {
		d := start.AddDate(0, 0, i)
		before := analytics.CurrentStreak(h, c, d.AddDate(0, 0, -1), 0)

		c.Set("h1", d.Format(domain.DateLayout), domain.CompletionRecord{Completed: true})

		assert.Equal(t, before+1, analytics.CurrentStreak(h, c, d, 0), "day %d", i)
	}

	gap := start.AddDate(0, 0, 20)
	assert.Equal(t, 0, analytics.CurrentStreak(h, c, gap, 0), "a scheduled miss resets the streak")
}

func TestCurrentStreak_ScheduleSkipNonInterference(t *testing.T) {
	// Mon/Wed/Fri habit with a stale record on the unscheduled Tuesday.
	h := habit("h1", 1, 3, 5)
	base := completed("h1", "2024-01-01", "2024-01-03")
	withStale := completed("h1", "2024-01-01", "2024-01-02", "2024-01-03")
	r := analytics.NewDateRange(day("2024-01-01"), day("2024-01-07"))

	assert.Equal(t,
		analytics.CurrentStreak(h, base, day("2024-01-03"), 0),
		analytics.CurrentStreak(h, withStale, day("2024-01-03"), 0))
	assert.Equal(t,
		analytics.CurrentStreak(h, base, day("2024-01-02"), 0),
		analytics.CurrentStreak(h, withStale, day("2024-01-02"), 0))
	assert.Equal(t,
		analytics.LongestStreak(h, base, r),
		analytics.LongestStreak(h, withStale, r))
}

func TestLongestStreak(t *testing.T) {
	r := analytics.NewDateRange(day("2024-01-01"), day("2024-01-03"))

	t.Run("Scenario B: longest is one", func(t *testing.T) {
		c := completed("h1", "2024-01-01", "2024-01-03")
		assert.Equal(t, 1, analytics.LongestStreak(habit("h1"), c, r))
	})

	t.Run("Best run in the middle of the range", func(t *testing.T) {
		wide := analytics.NewDateRange(day("2024-01-01"), day("2024-01-10"))
		c := completed("h1", "2024-01-01", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-06", "2024-01-09")
		assert.Equal(t, 4, analytics.LongestStreak(habit("h1"), c, wide))
	})

	t.Run("Completions outside the range are ignored", func(t *testing.T) {
		c := completed("h1", "2023-12-30", "2023-12-31", "2024-01-01")
		assert.Equal(t, 1, analytics.LongestStreak(habit("h1"), c, r))
	})

	t.Run("Empty range", func(t *testing.T) {
		rev := analytics.NewDateRange(day("2024-01-03"), day("2024-01-01"))
		assert.Equal(t, 0, analytics.LongestStreak(habit("h1"), completed("h1", "2024-01-02"), rev))
	})
}

func TestStreaks(t *testing.T) {
	r := analytics.NewDateRange(day("2024-01-01"), day("2024-01-03"))
	habits := []*domain.Habit{habit("a"), nil, habit("b")}
	c := merge(
		completed("a", "2024-01-01", "2024-01-02", "2024-01-03"),
		completed("b", "2024-01-01"),
	)

	got := analytics.Streaks(habits, c, r, day("2024-01-03"), 0)

	require.Len(t, got, 2)
	assert.Equal(t, analytics.HabitStreak{HabitID: "a", Title: "Habit a", Current: 3, Longest: 3}, got[0])
	assert.Equal(t, analytics.HabitStreak{HabitID: "b", Title: "Habit b", Current: 0, Longest: 1}, got[1])
}
