package services

import (
	"context"
	"time"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

// StreakQueue schedules a streak recomputation for a habit.
type StreakQueue interface {
	Enqueue(habitID string)
}

type EntryService struct {
	repo      domain.HabitEntryRepository
	habitRepo domain.HabitRepository
	streaks   StreakQueue
}

func NewEntryService(repo domain.HabitEntryRepository, habitRepo domain.HabitRepository, streaks StreakQueue) *EntryService {
	return &EntryService{
		repo:      repo,
		habitRepo: habitRepo,
		streaks:   streaks,
	}
}

type CreateEntryInput struct {
	HabitID        string
	UserID         string
	CompletionDate time.Time
	Value          int
	Notes          string
}

type UpdateEntryInput struct {
	ID             string
	UserID         string
	CompletionDate *time.Time
	Value          int
	Notes          string
	Version        int
}

func (s *EntryService) enqueue(habitID string) {
	if s.streaks != nil {
		s.streaks.Enqueue(habitID)
	}
}

func (s *EntryService) Create(ctx context.Context, input CreateEntryInput) (*domain.HabitEntry, error) {
	entry := domain.NewHabitEntry(input.HabitID, input.UserID, input.CompletionDate, input.Value)
	entry.Notes = input.Notes

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.ownedHabit(ctx, entry.HabitID, entry.UserID); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.enqueue(entry.HabitID)

	return entry, nil
}

// Update leaves the version bump to the repository, which owns the
// optimistic lock.
func (s *EntryService) Update(ctx context.Context, input UpdateEntryInput) (*domain.HabitEntry, error) {
	existing, err := s.GetByID(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Version > 0 && existing.Version != input.Version {
		return nil, domain.ErrEntryConflict
	}

	existing.Value = input.Value
	existing.Notes = input.Notes
	if input.CompletionDate != nil {
		existing.CompletionDate = input.CompletionDate.UTC()
	}

	if err := existing.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}

	s.enqueue(existing.HabitID)

	return existing, nil
}

func (s *EntryService) GetByID(ctx context.Context, id string, userID string) (*domain.HabitEntry, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return entry, nil
}

func (s *EntryService) ListByHabitID(ctx context.Context, habitID string, userID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	if to.Before(from) {
		return nil, domain.ErrInvalidRange
	}
	if _, err := s.ownedHabit(ctx, habitID, userID); err != nil {
		return nil, err
	}

	return s.repo.ListByHabitID(ctx, habitID, from, to)
}

func (s *EntryService) Delete(ctx context.Context, id string, userID string) error {
	entry, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.enqueue(entry.HabitID)

	return nil
}

func (s *EntryService) GetDelta(ctx context.Context, userID string, since time.Time) ([]*domain.HabitEntry, error) {
	return s.repo.GetChanges(ctx, userID, since)
}

func (s *EntryService) ownedHabit(ctx context.Context, habitID, userID string) (*domain.Habit, error) {
	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return habit, nil
}
