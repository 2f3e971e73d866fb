package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

func dayRates(days []analytics.DayAggregate) []int {
	out := make([]int, len(days))
	for i, d := range days {
		out[i] = d.Rate
	}
	return out
}

func TestAggregateDays(t *testing.T) {
	r := analytics.NewDateRange(day("2024-01-01"), day("2024-01-03"))

	t.Run("Scenario A: every day completed", func(t *testing.T) {
		h := habit("h1")
		c := completed("h1", "2024-01-01", "2024-01-02", "2024-01-03")

		days := analytics.AggregateDays([]*domain.Habit{h}, c, r)

		require.Len(t, days, 3)
		assert.Equal(t, []int{100, 100, 100}, dayRates(days))
		assert.Equal(t, "2024-01-01", days[0].Date)
		assert.Equal(t, "2024-01-03", days[2].Date)
	})

	t.Run("Scenario B: gap on the second day", func(t *testing.T) {
		h := habit("h1")
		c := completed("h1", "2024-01-01", "2024-01-03")

		days := analytics.AggregateDays([]*domain.Habit{h}, c, r)

		assert.Equal(t, []int{100, 0, 100}, dayRates(days))
		assert.Equal(t, 1, days[1].Possible)
		assert.Equal(t, 0, days[1].Completed)
	})

	t.Run("Scenario C: unscheduled Tuesday is not possible", func(t *testing.T) {
		// 2024-01-01 is a Monday.
		h := habit("mwf", 1, 3, 5)
		c := completed("mwf", "2024-01-01", "2024-01-03")

		days := analytics.AggregateDays([]*domain.Habit{h}, c, r)

		require.Len(t, days, 3)
		assert.Equal(t, analytics.DayAggregate{Date: "2024-01-02", Possible: 0, Completed: 0, Rate: 0}, days[1])
		assert.Equal(t, []int{100, 0, 100}, dayRates(days))
	})

	t.Run("Rates are rounded percentages", func(t *testing.T) {
		habits := []*domain.Habit{habit("a"), habit("b"), habit("c")}
		c := merge(
			completed("a", "2024-01-01", "2024-01-02"),
			completed("b", "2024-01-02"),
		)

		days := analytics.AggregateDays(habits, c, r)

		assert.Equal(t, []int{33, 67, 0}, dayRates(days))
	})

	t.Run("Explicit false record counts as not completed", func(t *testing.T) {
		c := domain.Completions{}
		c.Set("h1", "2024-01-01", domain.CompletionRecord{Completed: false})

		days := analytics.AggregateDays([]*domain.Habit{habit("h1")}, c, r)

		assert.Equal(t, 0, days[0].Completed)
		assert.Equal(t, 1, days[0].Possible)
	})

	t.Run("Records of unknown habits are ignored", func(t *testing.T) {
		c := completed("ghost", "2024-01-01")

		days := analytics.AggregateDays([]*domain.Habit{habit("h1")}, c, r)

		assert.Equal(t, 0, days[0].Completed)
	})

	t.Run("No habits yields an empty sequence", func(t *testing.T) {
		days := analytics.AggregateDays(nil, completed("h1", "2024-01-01"), r)

		assert.NotNil(t, days)
		assert.Empty(t, days)
	})

	t.Run("Nil completions never panic", func(t *testing.T) {
		days := analytics.AggregateDays([]*domain.Habit{habit("h1")}, nil, r)

		assert.Equal(t, []int{0, 0, 0}, dayRates(days))
	})

	t.Run("Reverse range is empty", func(t *testing.T) {
		rev := analytics.NewDateRange(day("2024-01-03"), day("2024-01-01"))

		days := analytics.AggregateDays([]*domain.Habit{habit("h1")}, nil, rev)

		assert.Empty(t, days)
	})
}

func TestAggregateDays_RateBounds(t *testing.T) {
	r := analytics.NewDateRange(day("2024-01-01"), day("2024-02-29"))
	habits := []*domain.Habit{habit("a"), habit("b", 1, 2), habit("c", 6), habit("d", 0)}
	c := merge(
		completed("a", "2024-01-01", "2024-01-05", "2024-02-10"),
		completed("b", "2024-01-01", "2024-01-02", "2024-01-03"),
		completed("c", "2024-01-06", "2024-01-07"),
		completed("d", "2024-01-07", "2024-02-11"),
	)

	for _, d := range analytics.AggregateDays(habits, c, r) {
		assert.GreaterOrEqual(t, d.Rate, 0)
		assert.LessOrEqual(t, d.Rate, 100)
		assert.LessOrEqual(t, d.Completed, d.Possible)
		if d.Possible == 0 {
			assert.Equal(t, 0, d.Rate)
		}
	}
}

func TestPooledRate(t *testing.T) {
	rate, ok := analytics.PooledRate([]analytics.DayAggregate{
		{Possible: 2, Completed: 1},
		{Possible: 0, Completed: 0},
		{Possible: 2, Completed: 2},
	})
	assert.True(t, ok)
	assert.InDelta(t, 75.0, rate, 0.001)

	rate, ok = analytics.PooledRate([]analytics.DayAggregate{{Possible: 0}})
	assert.False(t, ok)
	assert.Equal(t, 0.0, rate)
}
