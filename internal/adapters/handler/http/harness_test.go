package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/comitanigiacomo/kanso-dashboard/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-dashboard/internal/adapters/metrics"
	"github.com/comitanigiacomo/kanso-dashboard/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/services"
)

// queueSpy records streak recomputation requests instead of running a worker.
type queueSpy struct {
	mu  sync.Mutex
	ids []string
}

func (q *queueSpy) Enqueue(habitID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, habitID)
}

func (q *queueSpy) Enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}

type testServer struct {
	router  *gin.Engine
	habits  *repository.InMemoryHabitRepository
	entries *repository.InMemoryEntryRepository
	users   *repository.InMemoryUserRepository
	tokens  *services.TokenService
	queue   *queueSpy
	metrics *metrics.Exporter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	habits := repository.NewInMemoryHabitRepository()
	entries := repository.NewInMemoryEntryRepository(habits)
	users := repository.NewInMemoryUserRepository()
	tokens := services.NewTokenService("test-secret", "kanso-test", time.Hour, users)
	queue := &queueSpy{}
	exporter := metrics.NewExporter(metrics.Config{})

	stats := services.NewStatsService(habits, entries, users, services.StatsConfig{})
	stats.SetRecorder(exporter)

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:  adapterHTTP.NewAuthHandler(services.NewAuthService(users, tokens)),
		HabitHandler: adapterHTTP.NewHabitHandler(services.NewHabitService(habits)),
		EntryHandler: adapterHTTP.NewEntryHandler(services.NewEntryService(entries, habits, queue)),
		StatsHandler: adapterHTTP.NewStatsHandler(stats),
		Tokens:       tokens,
		Metrics:      exporter,
		StartTime:    time.Now(),
	})

	return &testServer{
		router:  router,
		habits:  habits,
		entries: entries,
		users:   users,
		tokens:  tokens,
		queue:   queue,
		metrics: exporter,
	}
}

// newUser stores an account created ageDays ago and returns a bearer token.
func (s *testServer) newUser(t *testing.T, id string, ageDays int) string {
	t.Helper()
	user, err := domain.NewUser(id, id+"@kanso.app")
	require.NoError(t, err)
	user.CreatedAt = time.Now().UTC().AddDate(0, 0, -ageDays)
	require.NoError(t, s.users.Create(context.Background(), user))

	token, err := s.tokens.GenerateToken(id)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// createHabit posts a habit and returns its stored form.
func (s *testServer) createHabit(t *testing.T, token string, payload map[string]any) domain.Habit {
	t.Helper()
	w := s.do(http.MethodPost, "/api/v1/habits", token, payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var h domain.Habit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	return h
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
