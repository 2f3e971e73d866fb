package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrHabitNotFound = errors.New("habit not found")
)

type HabitRepository interface {
	// Create persists a new habit definition in the storage.
	Create(ctx context.Context, habit *Habit) error

	// GetByID retrieves a habit by its unique identifier.
	GetByID(ctx context.Context, id string) (*Habit, error)

	// ListByUserID retrieves all habits associated with a specific user.
	ListByUserID(ctx context.Context, userID string) ([]*Habit, error)

	// Update modifies the state of an existing habit. habit.Version must be the
	// version the caller read; on success it holds the new one.
	Update(ctx context.Context, habit *Habit) error

	// Restore brings back a soft-deleted habit owned by habit.UserID,
	// overwriting it with the given definition.
	Restore(ctx context.Context, habit *Habit) error

	// Delete soft-deletes a habit so that sync clients can observe the removal.
	Delete(ctx context.Context, id string) error

	// GetChanges [SYNC] Returns only the deltas (changes) occurring after a specific date.
	GetChanges(ctx context.Context, userID string, since time.Time) ([]*Habit, error)

	// UpdateStreaks stores the denormalized streak counters computed by the streak worker.
	UpdateStreaks(ctx context.Context, id string, current, longest int) error
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
