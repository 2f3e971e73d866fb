package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidEntry = errors.New("invalid habit entry data")
)

// DateLayout is the calendar-day key used for completions and stats payloads.
const DateLayout = "2006-01-02"

type HabitEntry struct {
	ID      string `json:"id" db:"id"`
	HabitID string `json:"habit_id" db:"habit_id"`
	UserID  string `json:"user_id" db:"user_id"`

	CompletionDate time.Time `json:"completion_date" db:"completion_date"`
	Value          int       `json:"value" db:"value"`
	Notes          string    `json:"notes" db:"notes"`

	Version   int        `json:"version" db:"version"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func NewHabitEntry(habitID, userID string, date time.Time, value int) *HabitEntry {
	now := time.Now().UTC()

	return &HabitEntry{
		HabitID:        habitID,
		UserID:         userID,
		CompletionDate: date.UTC(),
		Value:          value,

		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *HabitEntry) Validate() error {
	if strings.TrimSpace(e.HabitID) == "" {
		return fmt.Errorf("%w: habit_id is required", ErrInvalidEntry)
	}
	if strings.TrimSpace(e.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidEntry)
	}
	if e.Value < 0 {
		return fmt.Errorf("%w: value cannot be negative", ErrInvalidEntry)
	}
	if e.CompletionDate.IsZero() {
		return fmt.Errorf("%w: completion_date is required", ErrInvalidEntry)
	}
	return nil
}

// DayKey returns the calendar day the entry falls on in loc.
func (e *HabitEntry) DayKey(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return e.CompletionDate.In(loc).Format(DateLayout)
}
