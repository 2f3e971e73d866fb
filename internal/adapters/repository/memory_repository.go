package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

var (
	_ domain.HabitRepository      = (*InMemoryHabitRepository)(nil)
	_ domain.HabitEntryRepository = (*InMemoryEntryRepository)(nil)
	_ domain.UserRepository       = (*InMemoryUserRepository)(nil)
)

// The in-memory repositories follow the Postgres semantics (soft deletes,
// server-side version bumps, copies in and out) so the API can run without
// a database.

type InMemoryHabitRepository struct {
	store map[string]*domain.Habit

	mu sync.RWMutex
}

func NewInMemoryHabitRepository() *InMemoryHabitRepository {
	return &InMemoryHabitRepository{
		store: make(map[string]*domain.Habit),
	}
}

func copyHabit(h *domain.Habit) *domain.Habit {
	cp := *h
	if h.Weekdays != nil {
		cp.Weekdays = append([]int(nil), h.Weekdays...)
	}
	return &cp
}

func (r *InMemoryHabitRepository) Create(_ context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store[habit.ID]; exists {
		return domain.ErrHabitAlreadyExists
	}

	habit.Version = 1
	r.store[habit.ID] = copyHabit(habit)
	return nil
}

func (r *InMemoryHabitRepository) GetByID(_ context.Context, id string) (*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habit, ok := r.store[id]
	if !ok || habit.DeletedAt != nil {
		return nil, domain.ErrHabitNotFound
	}
	return copyHabit(habit), nil
}

func (r *InMemoryHabitRepository) ListByUserID(_ context.Context, userID string) ([]*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habits := []*domain.Habit{}
	for _, h := range r.store {
		if h.UserID == userID && h.DeletedAt == nil {
			habits = append(habits, copyHabit(h))
		}
	}

	sort.Slice(habits, func(i, j int) bool {
		if habits[i].SortOrder != habits[j].SortOrder {
			return habits[i].SortOrder < habits[j].SortOrder
		}
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})

	return habits, nil
}

func (r *InMemoryHabitRepository) Update(_ context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.store[habit.ID]
	if !ok || stored.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}
	if stored.Version != habit.Version {
		return domain.ErrHabitConflict
	}

	habit.Version++
	habit.UpdatedAt = time.Now().UTC()
	habit.CurrentStreak, habit.LongestStreak = stored.CurrentStreak, stored.LongestStreak
	r.store[habit.ID] = copyHabit(habit)
	return nil
}

func (r *InMemoryHabitRepository) Restore(_ context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.store[habit.ID]
	if !ok || stored.DeletedAt == nil || stored.UserID != habit.UserID {
		return domain.ErrHabitNotFound
	}

	habit.Version = stored.Version + 1
	habit.CreatedAt = stored.CreatedAt
	habit.UpdatedAt = time.Now().UTC()
	habit.DeletedAt, habit.ArchivedAt, habit.EndDate = nil, nil, nil
	habit.CurrentStreak, habit.LongestStreak = 0, 0
	r.store[habit.ID] = copyHabit(habit)
	return nil
}

func (r *InMemoryHabitRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	habit, ok := r.store[id]
	if !ok || habit.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}

	now := time.Now().UTC()
	habit.DeletedAt = &now
	habit.UpdatedAt = now
	habit.Version++
	return nil
}

func (r *InMemoryHabitRepository) GetChanges(_ context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habits := []*domain.Habit{}
	for _, h := range r.store {
		if h.UserID == userID && h.UpdatedAt.After(since) {
			habits = append(habits, copyHabit(h))
		}
	}
	sort.Slice(habits, func(i, j int) bool {
		return habits[i].UpdatedAt.Before(habits[j].UpdatedAt)
	})
	return habits, nil
}

func (r *InMemoryHabitRepository) UpdateStreaks(_ context.Context, id string, current, longest int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	habit, ok := r.store[id]
	if !ok || habit.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}
	habit.CurrentStreak, habit.LongestStreak = current, longest
	habit.UpdatedAt = time.Now().UTC()
	return nil
}

// habitAlive lets the entry store hide entries of deleted habits the way the
// Postgres join does.
func (r *InMemoryHabitRepository) habitAlive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.store[id]
	return ok && h.DeletedAt == nil
}

type InMemoryEntryRepository struct {
	store  map[string]*domain.HabitEntry
	habits *InMemoryHabitRepository

	mu sync.RWMutex
}

// NewInMemoryEntryRepository checks habit references against habits when it
// is not nil.
func NewInMemoryEntryRepository(habits *InMemoryHabitRepository) *InMemoryEntryRepository {
	return &InMemoryEntryRepository{
		store:  make(map[string]*domain.HabitEntry),
		habits: habits,
	}
}

func copyEntry(e *domain.HabitEntry) *domain.HabitEntry {
	cp := *e
	return &cp
}

func (r *InMemoryEntryRepository) alive(habitID string) bool {
	return r.habits == nil || r.habits.habitAlive(habitID)
}

func (r *InMemoryEntryRepository) Create(_ context.Context, entry *domain.HabitEntry) error {
	if !r.alive(entry.HabitID) {
		return ErrEntryReference
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if _, exists := r.store[entry.ID]; exists {
		return domain.ErrEntryConflict
	}
	r.store[entry.ID] = copyEntry(entry)
	return nil
}

func (r *InMemoryEntryRepository) Update(_ context.Context, entry *domain.HabitEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.store[entry.ID]
	if !ok || stored.DeletedAt != nil {
		return domain.ErrEntryNotFound
	}
	if stored.Version != entry.Version {
		return domain.ErrEntryConflict
	}

	entry.Version++
	entry.UpdatedAt = time.Now().UTC()
	r.store[entry.ID] = copyEntry(entry)
	return nil
}

func (r *InMemoryEntryRepository) Delete(_ context.Context, id string, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.store[id]
	if !ok || entry.DeletedAt != nil || entry.UserID != userID {
		return domain.ErrEntryNotFound
	}

	now := time.Now().UTC()
	entry.DeletedAt = &now
	entry.UpdatedAt = now
	entry.Version++
	return nil
}

func (r *InMemoryEntryRepository) GetByID(_ context.Context, id string) (*domain.HabitEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.store[id]
	if !ok || entry.DeletedAt != nil {
		return nil, domain.ErrEntryNotFound
	}
	return copyEntry(entry), nil
}

func (r *InMemoryEntryRepository) filter(keep func(e *domain.HabitEntry) bool, less func(a, b *domain.HabitEntry) bool) []*domain.HabitEntry {
	r.mu.RLock()
	out := []*domain.HabitEntry{}
	for _, e := range r.store {
		if keep(e) {
			out = append(out, copyEntry(e))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func (r *InMemoryEntryRepository) ListByHabitID(_ context.Context, habitID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	return r.filter(
		func(e *domain.HabitEntry) bool {
			return e.HabitID == habitID && e.DeletedAt == nil && inRange(e.CompletionDate, from, to)
		},
		func(a, b *domain.HabitEntry) bool { return a.CompletionDate.After(b.CompletionDate) },
	), nil
}

func (r *InMemoryEntryRepository) ListByUserIDAndDateRange(_ context.Context, userID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	entries := r.filter(
		func(e *domain.HabitEntry) bool {
			return e.UserID == userID && e.DeletedAt == nil && inRange(e.CompletionDate, from, to)
		},
		func(a, b *domain.HabitEntry) bool { return a.CompletionDate.Before(b.CompletionDate) },
	)

	live := entries[:0]
	for _, e := range entries {
		if r.alive(e.HabitID) {
			live = append(live, e)
		}
	}
	return live, nil
}

func (r *InMemoryEntryRepository) GetChanges(_ context.Context, userID string, since time.Time) ([]*domain.HabitEntry, error) {
	return r.filter(
		func(e *domain.HabitEntry) bool { return e.UserID == userID && e.UpdatedAt.After(since) },
		func(a, b *domain.HabitEntry) bool { return a.UpdatedAt.Before(b.UpdatedAt) },
	), nil
}

type InMemoryUserRepository struct {
	byID    map[string]*domain.User
	byEmail map[string]string

	mu sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *InMemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := r.byEmail[email]; taken {
		return domain.ErrEmailAlreadyExists
	}

	cp := *user
	r.byID[user.ID] = &cp
	r.byEmail[email] = user.ID
	return nil
}

func (r *InMemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *InMemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}
