package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

const maxClientIDLen = 64

var ErrInvalidHabitID = errors.New("invalid habit id")

type HabitService struct {
	repo domain.HabitRepository
}

func NewHabitService(repo domain.HabitRepository) *HabitService {
	return &HabitService{
		repo: repo,
	}
}

// CreateHabitInput may carry a client generated ID so offline clients can
// retry a create without producing duplicates.
type CreateHabitInput struct {
	ID            string
	UserID        string
	Title         string
	Description   string
	Color         string
	Icon          string
	Type          string
	ReminderTime  string
	Unit          string
	TargetValue   int
	Interval      int
	Weekdays      []int
	FrequencyType string
}

// UpdateHabitInput is a partial update: nil fields keep their stored value.
// Version, when set, must match the stored version.
type UpdateHabitInput struct {
	ID            string
	UserID        string
	Title         *string
	Description   *string
	Color         *string
	Icon          *string
	Type          *string
	ReminderTime  *string
	Unit          *string
	TargetValue   *int
	Interval      *int
	Weekdays      *[]int
	FrequencyType *string
	Version       int
}

func pick[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}

func (s *HabitService) Create(ctx context.Context, input CreateHabitInput) (*domain.Habit, error) {
	habit, err := buildHabit(input)
	if err != nil {
		return nil, err
	}

	if input.ID != "" {
		existing, err := s.repo.GetByID(ctx, habit.ID)
		switch {
		case err == nil:
			if existing.UserID != input.UserID {
				return nil, domain.ErrHabitAlreadyExists
			}
			return existing, nil
		case !errors.Is(err, domain.ErrHabitNotFound):
			return nil, err
		}
	}

	err = s.repo.Create(ctx, habit)
	if errors.Is(err, domain.ErrHabitAlreadyExists) && input.ID != "" {
		// The id belongs to a soft-deleted row.
		if err := s.repo.Restore(ctx, habit); err != nil {
			if errors.Is(err, domain.ErrHabitNotFound) {
				return nil, domain.ErrHabitAlreadyExists
			}
			return nil, fmt.Errorf("habit service: restore %s: %w", habit.ID, err)
		}
		return habit, nil
	}
	if err != nil {
		return nil, err
	}

	return habit, nil
}

func buildHabit(input CreateHabitInput) (*domain.Habit, error) {
	habit, err := domain.NewHabit(input.Title, input.UserID)
	if err != nil {
		return nil, err
	}

	if id := strings.TrimSpace(input.ID); id != "" {
		if len(id) > maxClientIDLen {
			return nil, ErrInvalidHabitID
		}
		habit.ID = id
	}

	settings := domain.HabitSettings{
		Title:        input.Title,
		Description:  input.Description,
		Color:        input.Color,
		Icon:         input.Icon,
		Type:         input.Type,
		ReminderTime: input.ReminderTime,
		Unit:         input.Unit,
		TargetValue:  input.TargetValue,
		Interval:     input.Interval,
		Weekdays:     input.Weekdays,
	}
	if settings.Type == "" {
		settings.Type = habit.Type
	}
	if err := habit.Update(settings); err != nil {
		return nil, err
	}

	if input.FrequencyType != "" {
		if err := habit.SetFrequency(input.FrequencyType); err != nil {
			return nil, err
		}
	}

	return habit, nil
}

func (s *HabitService) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *HabitService) GetDelta(ctx context.Context, userID string, lastSync time.Time) ([]*domain.Habit, error) {
	return s.repo.GetChanges(ctx, userID, lastSync)
}

// Update applies a partial update. An update for an unknown id that carries a
// title is treated as a create, so a client that missed the original create
// converges.
func (s *HabitService) Update(ctx context.Context, input UpdateHabitInput) (*domain.Habit, error) {
	habit, err := s.repo.GetByID(ctx, input.ID)
	if errors.Is(err, domain.ErrHabitNotFound) && input.Title != nil {
		return s.Create(ctx, createFromUpdate(input))
	}
	if err != nil {
		return nil, err
	}

	if habit.UserID != input.UserID {
		return nil, domain.ErrHabitNotFound
	}

	if input.Version > 0 && habit.Version != input.Version {
		return nil, fmt.Errorf("%w: client v%d vs server v%d", domain.ErrHabitConflict, input.Version, habit.Version)
	}

	cur := habit.Settings()
	err = habit.Update(domain.HabitSettings{
		Title:        pick(input.Title, cur.Title),
		Description:  pick(input.Description, cur.Description),
		Color:        pick(input.Color, cur.Color),
		Icon:         pick(input.Icon, cur.Icon),
		Type:         pick(input.Type, cur.Type),
		ReminderTime: pick(input.ReminderTime, cur.ReminderTime),
		Unit:         pick(input.Unit, cur.Unit),
		TargetValue:  pick(input.TargetValue, cur.TargetValue),
		Interval:     pick(input.Interval, cur.Interval),
		Weekdays:     pick(input.Weekdays, cur.Weekdays),
	})
	if err != nil {
		return nil, err
	}

	if input.FrequencyType != nil {
		if err := habit.SetFrequency(*input.FrequencyType); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}
	return habit, nil
}

func createFromUpdate(input UpdateHabitInput) CreateHabitInput {
	return CreateHabitInput{
		ID:            input.ID,
		UserID:        input.UserID,
		Title:         pick(input.Title, ""),
		Description:   pick(input.Description, ""),
		Color:         pick(input.Color, ""),
		Icon:          pick(input.Icon, ""),
		Type:          pick(input.Type, ""),
		ReminderTime:  pick(input.ReminderTime, ""),
		Unit:          pick(input.Unit, ""),
		TargetValue:   pick(input.TargetValue, 0),
		Interval:      pick(input.Interval, 0),
		Weekdays:      pick(input.Weekdays, nil),
		FrequencyType: pick(input.FrequencyType, ""),
	}
}

func (s *HabitService) Delete(ctx context.Context, id string, userID string) error {
	habit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if habit.UserID != userID {
		return domain.ErrHabitNotFound
	}

	return s.repo.Delete(ctx, id)
}
