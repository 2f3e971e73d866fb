package analytics

const (
	DefaultWorstDayGap     = 15.0
	DefaultTrendDelta      = 10.0
	DefaultMinLeaderStreak = 3
	DefaultMaxInsights     = 4
	DefaultStreakLookback  = 90
)

// Options holds the tunable thresholds of insight derivation. Zero fields
// fall back to the defaults.
type Options struct {
	// WorstDayGap is the minimum gap, in percentage points, between the best
	// and the worst weekday before the worst one is reported.
	WorstDayGap float64
	// TrendDelta is the minimum week-over-week change, in percentage points.
	TrendDelta float64
	// MinLeaderStreak is the shortest current streak worth reporting.
	MinLeaderStreak int
	MaxInsights     int
	// StreakLookback bounds the backward walk of CurrentStreak, in days.
	StreakLookback int
}

func DefaultOptions() Options {
	return Options{
		WorstDayGap:     DefaultWorstDayGap,
		TrendDelta:      DefaultTrendDelta,
		MinLeaderStreak: DefaultMinLeaderStreak,
		MaxInsights:     DefaultMaxInsights,
		StreakLookback:  DefaultStreakLookback,
	}
}

// WithDefaults replaces every non-positive field with its default.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.WorstDayGap <= 0 {
		o.WorstDayGap = def.WorstDayGap
	}
	if o.TrendDelta <= 0 {
		o.TrendDelta = def.TrendDelta
	}
	if o.MinLeaderStreak <= 0 {
		o.MinLeaderStreak = def.MinLeaderStreak
	}
	if o.MaxInsights <= 0 {
		o.MaxInsights = def.MaxInsights
	}
	if o.StreakLookback <= 0 {
		o.StreakLookback = def.StreakLookback
	}
	return o
}
