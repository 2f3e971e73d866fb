package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

const (
	DefaultMaxRangeDays      = 366
	DefaultStreakHistoryDays = 365
	trendWindowDays          = 14
)

// StatsRecorder receives timing for every aggregation pass.
type StatsRecorder interface {
	ObserveAggregation(op string, took time.Duration, memoHit bool)
}

type StatsConfig struct {
	Options      analytics.Options
	MemoSize     int
	DefaultRange string
	// MaxRangeDays caps explicit start/end windows.
	MaxRangeDays      int
	StreakHistoryDays int
}

type StatsService struct {
	habitRepo domain.HabitRepository
	entryRepo domain.HabitEntryRepository
	userRepo  domain.UserRepository

	opts         analytics.Options
	memo         *analytics.Memo
	defaultRange string
	maxRangeDays int
	historyDays  int

	recorder StatsRecorder
	now      func() time.Time
}

func NewStatsService(habitRepo domain.HabitRepository, entryRepo domain.HabitEntryRepository, userRepo domain.UserRepository, cfg StatsConfig) *StatsService {
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = DefaultMaxRangeDays
	}
	if cfg.StreakHistoryDays <= 0 {
		cfg.StreakHistoryDays = DefaultStreakHistoryDays
	}
	if cfg.DefaultRange == "" {
		cfg.DefaultRange = fmt.Sprint(analytics.DefaultRangeDays)
	}

	return &StatsService{
		habitRepo:    habitRepo,
		entryRepo:    entryRepo,
		userRepo:     userRepo,
		opts:         cfg.Options.WithDefaults(),
		memo:         analytics.NewMemo(cfg.MemoSize),
		defaultRange: cfg.DefaultRange,
		maxRangeDays: cfg.MaxRangeDays,
		historyDays:  cfg.StreakHistoryDays,
		now:          time.Now,
	}
}

func (s *StatsService) SetRecorder(r StatsRecorder) {
	s.recorder = r
}

func (s *StatsService) observe(op string, start time.Time, hit bool) {
	if s.recorder != nil {
		s.recorder.ObserveAggregation(op, time.Since(start), hit)
	}
}

func locationOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// fetchWindow widens a local calendar range so entries stored in UTC near
// midnight are not lost before they are bucketed into local days.
func fetchWindow(r analytics.DateRange) (time.Time, time.Time) {
	return r.Start.AddDate(0, 0, -1).UTC(), r.End.AddDate(0, 0, 2).UTC()
}

type snapshot struct {
	habits  []*domain.Habit
	entries []*domain.HabitEntry
}

func (s *StatsService) load(ctx context.Context, userID string, window analytics.DateRange) (*snapshot, error) {
	var snap snapshot
	from, to := fetchWindow(window)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		habits, err := s.habitRepo.ListByUserID(gctx, userID)
		if err != nil {
			return fmt.Errorf("stats: list habits: %w", err)
		}
		snap.habits = habits
		return nil
	})
	g.Go(func() error {
		entries, err := s.entryRepo.ListByUserIDAndDateRange(gctx, userID, from, to)
		if err != nil {
			return fmt.Errorf("stats: list entries: %w", err)
		}
		snap.entries = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *StatsService) checkExplicitRange(start, end time.Time) error {
	if start.After(end) {
		return fmt.Errorf("%w: start after end", domain.ErrInvalidRange)
	}
	if days := analytics.NewDateRange(start, end).Days(); days > s.maxRangeDays {
		return fmt.Errorf("%w: %d days exceeds the %d day limit", domain.ErrInvalidRange, days, s.maxRangeDays)
	}
	return nil
}

// GetWeeklyStats reports per-habit progress over an explicit window. Days a
// habit is not scheduled on still show their logged value but do not count
// towards its completion rate.
func (s *StatsService) GetWeeklyStats(ctx context.Context, input domain.StatsInput) (*domain.WeeklyStats, error) {
	started := time.Now()
	loc := locationOrUTC(input.Location)
	r := analytics.NewDateRange(input.StartDate.In(loc), input.EndDate.In(loc))
	if err := s.checkExplicitRange(r.Start, r.End); err != nil {
		return nil, err
	}

	snap, err := s.load(ctx, input.UserID, r)
	if err != nil {
		return nil, err
	}

	completions := domain.BuildCompletions(snap.habits, snap.entries, loc)
	values := dailyValues(snap.entries, loc)

	stats := &domain.WeeklyStats{
		StartDate:   r.Start.Format(domain.DateLayout),
		EndDate:     r.End.Format(domain.DateLayout),
		TotalHabits: len(snap.habits),
		HabitStats:  make([]domain.HabitStat, 0, len(snap.habits)),
	}

	totalScheduled, totalCompleted := 0, 0
	for _, h := range snap.habits {
		hs := domain.HabitStat{
			HabitID:       h.ID,
			HabitTitle:    h.Title,
			Color:         h.Color,
			Icon:          h.Icon,
			TargetValue:   h.TargetValue,
			Unit:          h.Unit,
			DailyProgress: make([]int, 0, r.Days()),
		}

		r.Each(func(day time.Time) {
			key := day.Format(domain.DateLayout)
			val := values[h.ID][key]
			hs.TotalValue += val
			hs.DailyProgress = append(hs.DailyProgress, val)

			if !analytics.IsScheduled(h, day) {
				return
			}
			hs.DaysScheduled++
			if completions.IsCompleted(h.ID, key) {
				hs.DaysCompleted++
			}
		})

		if hs.DaysScheduled > 0 {
			hs.CompletionRate = float64(hs.DaysCompleted) / float64(hs.DaysScheduled) * 100
		}
		totalScheduled += hs.DaysScheduled
		totalCompleted += hs.DaysCompleted
		stats.HabitStats = append(stats.HabitStats, hs)
	}

	if totalScheduled > 0 {
		stats.OverallRate = float64(totalCompleted) / float64(totalScheduled) * 100
	}

	s.observe("weekly", started, false)
	return stats, nil
}

func dailyValues(entries []*domain.HabitEntry, loc *time.Location) map[string]map[string]int {
	out := make(map[string]map[string]int)
	for _, e := range entries {
		if e == nil || e.DeletedAt != nil {
			continue
		}
		if out[e.HabitID] == nil {
			out[e.HabitID] = make(map[string]int)
		}
		out[e.HabitID][e.DayKey(loc)] += e.Value
	}
	return out
}

func (s *StatsService) resolve(ctx context.Context, input domain.DashboardInput, today time.Time) (analytics.DateRange, error) {
	loc := today.Location()
	if !input.StartDate.IsZero() || !input.EndDate.IsZero() {
		if input.StartDate.IsZero() || input.EndDate.IsZero() {
			return analytics.DateRange{}, fmt.Errorf("%w: both start and end are required", domain.ErrInvalidRange)
		}
		start, end := input.StartDate.In(loc), input.EndDate.In(loc)
		if err := s.checkExplicitRange(start, end); err != nil {
			return analytics.DateRange{}, err
		}
		return analytics.ResolveRange(analytics.RangeRequest{Start: start, End: end}, today), nil
	}

	req := analytics.RangeRequest{Token: input.Range}
	if req.Token == "" {
		req.Token = s.defaultRange
	}
	if n, err := strconv.Atoi(strings.TrimSpace(req.Token)); err == nil && n > s.maxRangeDays {
		return analytics.DateRange{}, fmt.Errorf("%w: range of %d days exceeds the %d day limit", domain.ErrInvalidRange, n, s.maxRangeDays)
	}
	if analytics.IsRangeAll(req.Token) {
		user, err := s.userRepo.GetByID(ctx, input.UserID)
		if err != nil {
			return analytics.DateRange{}, fmt.Errorf("stats: load user: %w", err)
		}
		req.AccountAgeDays = user.AccountAgeDays(today)
	}
	return analytics.ResolveRange(req, today), nil
}

// GetDashboard builds the full report for the requested window. Streaks and
// trend are always evaluated as of today, so the fetched history covers
// whichever reaches further back: the window or the lookback.
func (s *StatsService) GetDashboard(ctx context.Context, input domain.DashboardInput) (*analytics.Report, error) {
	started := time.Now()
	loc := locationOrUTC(input.Location)
	today := analytics.Midnight(s.now().In(loc))

	r, err := s.resolve(ctx, input, today)
	if err != nil {
		return nil, err
	}

	window := r
	lookback := s.opts.StreakLookback
	if lookback < trendWindowDays {
		lookback = trendWindowDays
	}
	if earliest := today.AddDate(0, 0, -lookback); window.Empty() || earliest.Before(window.Start) {
		window.Start = earliest
	}
	if window.End.Before(today) {
		window.End = today
	}

	snap, err := s.load(ctx, input.UserID, window)
	if err != nil {
		return nil, err
	}

	rep, hit := s.memo.Summarize(analytics.Snapshot{
		Habits:      snap.habits,
		Completions: domain.BuildCompletions(snap.habits, snap.entries, loc),
	}, r, today, s.opts)

	s.observe("dashboard", started, hit)
	return &rep, nil
}

func (s *StatsService) GetInsights(ctx context.Context, input domain.DashboardInput) ([]analytics.Insight, error) {
	rep, err := s.GetDashboard(ctx, input)
	if err != nil {
		return nil, err
	}
	return rep.Insights, nil
}

// GetHabitStreak computes both counters live for one habit as of today.
func (s *StatsService) GetHabitStreak(ctx context.Context, input domain.StreakInput) (*analytics.HabitStreak, error) {
	started := time.Now()
	loc := locationOrUTC(input.Location)
	today := analytics.Midnight(s.now().In(loc))

	habit, err := s.habitRepo.GetByID(ctx, input.HabitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != input.UserID {
		return nil, domain.ErrHabitNotFound
	}

	history := analytics.NewDateRange(today.AddDate(0, 0, -s.historyDays), today)
	from, to := fetchWindow(history)
	entries, err := s.entryRepo.ListByHabitID(ctx, habit.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("stats: list entries for %s: %w", habit.ID, err)
	}

	completions := domain.BuildCompletions([]*domain.Habit{habit}, entries, loc)
	streak := analytics.HabitStreak{
		HabitID: habit.ID,
		Title:   habit.Title,
		Current: analytics.CurrentStreak(habit, completions, today, s.opts.StreakLookback),
		Longest: analytics.LongestStreak(habit, completions, history),
	}

	s.observe("streak", started, false)
	return &streak, nil
}
