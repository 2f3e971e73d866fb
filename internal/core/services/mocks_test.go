package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

type MockHabitRepo struct {
	mock.Mock
}

func (m *MockHabitRepo) Create(ctx context.Context, h *domain.Habit) error {
	return m.Called(ctx, h).Error(0)
}

func (m *MockHabitRepo) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Habit), args.Error(1)
}

func (m *MockHabitRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Habit), args.Error(1)
}

func (m *MockHabitRepo) Update(ctx context.Context, h *domain.Habit) error {
	return m.Called(ctx, h).Error(0)
}

func (m *MockHabitRepo) Restore(ctx context.Context, h *domain.Habit) error {
	return m.Called(ctx, h).Error(0)
}

func (m *MockHabitRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockHabitRepo) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Habit), args.Error(1)
}

func (m *MockHabitRepo) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	return m.Called(ctx, id, current, longest).Error(0)
}

type MockHabitEntryRepo struct {
	mock.Mock
}

func (m *MockHabitEntryRepo) Create(ctx context.Context, entry *domain.HabitEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockHabitEntryRepo) Update(ctx context.Context, entry *domain.HabitEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockHabitEntryRepo) Delete(ctx context.Context, id string, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *MockHabitEntryRepo) GetByID(ctx context.Context, id string) (*domain.HabitEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HabitEntry), args.Error(1)
}

func (m *MockHabitEntryRepo) ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	args := m.Called(ctx, habitID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.HabitEntry), args.Error(1)
}

func (m *MockHabitEntryRepo) ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.HabitEntry), args.Error(1)
}

func (m *MockHabitEntryRepo) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.HabitEntry, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.HabitEntry), args.Error(1)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) GenerateToken(userID string) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

// recordingQueue stands in for the streak worker.
type recordingQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *recordingQueue) Enqueue(habitID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, habitID)
}

func (q *recordingQueue) queued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}

// habitStore mimics the Postgres repository: soft deletes, duplicate ids on
// create and a version bump on every write.
type habitStore struct {
	mu            sync.Mutex
	rows          map[string]*domain.Habit
	simulateError error
}

func newHabitStore() *habitStore {
	return &habitStore{rows: make(map[string]*domain.Habit)}
}

func (s *habitStore) put(h *domain.Habit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *h
	s.rows[h.ID] = &cp
}

func (s *habitStore) raw(id string) *domain.Habit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}

func (s *habitStore) Create(_ context.Context, h *domain.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.simulateError != nil {
		return s.simulateError
	}
	if _, exists := s.rows[h.ID]; exists {
		return domain.ErrHabitAlreadyExists
	}
	h.Version = 1
	cp := *h
	s.rows[h.ID] = &cp
	return nil
}

func (s *habitStore) GetByID(_ context.Context, id string) (*domain.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.simulateError != nil {
		return nil, s.simulateError
	}
	h, ok := s.rows[id]
	if !ok || h.DeletedAt != nil {
		return nil, domain.ErrHabitNotFound
	}
	cp := *h
	return &cp, nil
}

func (s *habitStore) ListByUserID(_ context.Context, userID string) ([]*domain.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.Habit{}
	for _, h := range s.rows {
		if h.UserID == userID && h.DeletedAt == nil {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *habitStore) Update(_ context.Context, h *domain.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rows[h.ID]
	if !ok || stored.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}
	if stored.Version != h.Version {
		return domain.ErrHabitConflict
	}
	h.Version++
	cp := *h
	s.rows[h.ID] = &cp
	return nil
}

func (s *habitStore) Restore(_ context.Context, h *domain.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rows[h.ID]
	if !ok || stored.DeletedAt == nil || stored.UserID != h.UserID {
		return domain.ErrHabitNotFound
	}
	h.Version = stored.Version + 1
	h.DeletedAt = nil
	cp := *h
	s.rows[h.ID] = &cp
	return nil
}

func (s *habitStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.rows[id]
	if !ok || h.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}
	now := time.Now().UTC()
	h.DeletedAt = &now
	h.UpdatedAt = now
	h.Version++
	return nil
}

func (s *habitStore) GetChanges(_ context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.Habit{}
	for _, h := range s.rows {
		if h.UserID == userID && h.UpdatedAt.After(since) {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *habitStore) UpdateStreaks(_ context.Context, id string, current, longest int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.rows[id]
	if !ok {
		return domain.ErrHabitNotFound
	}
	h.CurrentStreak, h.LongestStreak = current, longest
	return nil
}
