package workers

import (
	"context"
	"log"
	"time"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

const (
	DefaultQueueSize   = 100
	DefaultHistoryDays = 365
)

type HabitRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Habit, error)
	UpdateStreaks(ctx context.Context, id string, current, longest int) error
}

type EntryRepository interface {
	ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]*domain.HabitEntry, error)
}

// Job outcomes reported to a JobRecorder.
const (
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
)

type JobRecorder interface {
	ObserveStreakJob(outcome string)
}

type StreakJob struct {
	HabitID string
}

type Config struct {
	QueueSize int
	// Lookback bounds the backward walk for the current streak.
	Lookback int
	// HistoryDays is how far back the longest streak is searched.
	HistoryDays int
	Location    *time.Location
}

type StreakWorker struct {
	habitRepo HabitRepository
	entryRepo EntryRepository
	jobs      chan StreakJob
	lookback  int
	history   int
	loc       *time.Location
	now       func() time.Time
	recorder  JobRecorder
}

func NewStreakWorker(hRepo HabitRepository, eRepo EntryRepository, cfg Config) *StreakWorker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = analytics.DefaultStreakLookback
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = DefaultHistoryDays
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &StreakWorker{
		habitRepo: hRepo,
		entryRepo: eRepo,
		jobs:      make(chan StreakJob, cfg.QueueSize),
		lookback:  cfg.Lookback,
		history:   cfg.HistoryDays,
		loc:       cfg.Location,
		now:       time.Now,
	}
}

func (w *StreakWorker) SetRecorder(r JobRecorder) {
	w.recorder = r
}

func (w *StreakWorker) record(outcome string) {
	if w.recorder != nil {
		w.recorder.ObserveStreakJob(outcome)
	}
}

func (w *StreakWorker) Start(ctx context.Context) {
	go func() {
		log.Println("[WORKER] streak worker started")
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				log.Println("[WORKER] streak worker shutting down")
				return
			}
		}
	}()
}

func (w *StreakWorker) Enqueue(habitID string) {
	select {
	case w.jobs <- StreakJob{HabitID: habitID}:
	default:
		log.Printf("[WORKER] queue full, dropping job for habit %s", habitID)
		w.record(OutcomeDropped)
	}
}

func (w *StreakWorker) processJob(ctx context.Context, job StreakJob) {
	habit, err := w.habitRepo.GetByID(ctx, job.HabitID)
	if err != nil {
		log.Printf("[WORKER] fetching habit %s: %v", job.HabitID, err)
		w.record(OutcomeFailed)
		return
	}

	today := analytics.Midnight(w.now().In(w.loc))
	from := today.AddDate(0, 0, -w.history)
	// One extra day on each side so entries stored in UTC still land on
	// the right local calendar day.
	entries, err := w.entryRepo.ListByHabitID(ctx, job.HabitID, from.AddDate(0, 0, -1), today.AddDate(0, 0, 2))
	if err != nil {
		log.Printf("[WORKER] fetching entries for %s: %v", job.HabitID, err)
		w.record(OutcomeFailed)
		return
	}

	current, longest := w.calculateStreaks(habit, entries, today)

	if habit.CurrentStreak == current && habit.LongestStreak == longest {
		w.record(OutcomeUnchanged)
		return
	}
	habit.UpdateStreak(current, longest)
	if err := w.habitRepo.UpdateStreaks(ctx, habit.ID, habit.CurrentStreak, habit.LongestStreak); err != nil {
		log.Printf("[WORKER] storing streak for %s: %v", job.HabitID, err)
		w.record(OutcomeFailed)
		return
	}
	w.record(OutcomeUpdated)
	log.Printf("[WORKER] streak updated for %s: current=%d longest=%d", habit.ID, habit.CurrentStreak, habit.LongestStreak)
}

// calculateStreaks uses the schedule-aware calculator. A stored counter is
// read throughout the day, so a scheduled day that is still open does not
// break the streak until it has passed.
func (w *StreakWorker) calculateStreaks(habit *domain.Habit, entries []*domain.HabitEntry, today time.Time) (int, int) {
	completions := domain.BuildCompletions([]*domain.Habit{habit}, entries, w.loc)

	anchor := today
	if analytics.IsScheduled(habit, today) && !completions.IsCompleted(habit.ID, today.Format(domain.DateLayout)) {
		anchor = today.AddDate(0, 0, -1)
	}

	current := analytics.CurrentStreak(habit, completions, anchor, w.lookback)
	window := analytics.NewDateRange(today.AddDate(0, 0, -w.history), today)
	longest := analytics.LongestStreak(habit, completions, window)
	if longest < current {
		longest = current
	}
	return current, longest
}
