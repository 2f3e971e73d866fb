package http_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
)

func TestHabitHandler_Create(t *testing.T) {
	t.Run("Success: Create with schedule", func(t *testing.T) {
		srv := newTestServer(t)
		token := srv.newUser(t, "alice", 10)

		h := srv.createHabit(t, token, map[string]any{
			"title":    "Gym",
			"color":    "#FF5733",
			"weekdays": []int{5, 1, 3, 1},
		})

		assert.NotEmpty(t, h.ID)
		assert.Equal(t, "alice", h.UserID)
		assert.Equal(t, []int{1, 3, 5}, h.Weekdays)
		assert.Equal(t, domain.HabitFreqSpecificDays, h.FrequencyType)
		assert.Equal(t, 1, h.Version)
	})

	t.Run("Success: Client id retry is idempotent", func(t *testing.T) {
		srv := newTestServer(t)
		token := srv.newUser(t, "alice", 10)
		payload := map[string]any{"id": "client-habit-1", "title": "Read"}

		first := srv.createHabit(t, token, payload)
		second := srv.createHabit(t, token, payload)

		assert.Equal(t, "client-habit-1", first.ID)
		assert.Equal(t, first.ID, second.ID)

		list := decode[[]domain.Habit](t, srv.do(http.MethodGet, "/api/v1/habits", token, nil))
		assert.Len(t, list, 1)
	})

	t.Run("Security: Client id owned by someone else", func(t *testing.T) {
		srv := newTestServer(t)
		alice := srv.newUser(t, "alice", 10)
		bob := srv.newUser(t, "bob", 10)
		srv.createHabit(t, alice, map[string]any{"id": "shared-id", "title": "Read"})

		w := srv.do(http.MethodPost, "/api/v1/habits", bob, map[string]any{"id": "shared-id", "title": "Steal"})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Fail: Validation errors are 400", func(t *testing.T) {
		srv := newTestServer(t)
		token := srv.newUser(t, "alice", 10)

		cases := map[string]map[string]any{
			"missing title": {"color": "#FFFFFF"},
			"bad color":     {"title": "X", "color": "red"},
			"bad weekday":   {"title": "X", "weekdays": []int{7}},
			"bad type":      {"title": "X", "type": "vibes"},
			"bad reminder":  {"title": "X", "type": "boolean", "reminder_time": "25:00"},
			"bad frequency": {"title": "X", "frequency_type": "hourly"},
		}
		for name, payload := range cases {
			w := srv.do(http.MethodPost, "/api/v1/habits", token, payload)
			assert.Equal(t, http.StatusBadRequest, w.Code, name)
		}
	})

	t.Run("Security: No token is 401", func(t *testing.T) {
		srv := newTestServer(t)

		w := srv.do(http.MethodPost, "/api/v1/habits", "", map[string]any{"title": "X"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHabitHandler_Update(t *testing.T) {
	t.Run("Success: Partial update keeps untouched fields", func(t *testing.T) {
		srv := newTestServer(t)
		token := srv.newUser(t, "alice", 10)
		h := srv.createHabit(t, token, map[string]any{"title": "Gym", "color": "#123456", "weekdays": []int{1}})

		w := srv.do(http.MethodPut, "/api/v1/habits/"+h.ID, token, map[string]any{"title": "Gym (heavy)", "version": 1})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		updated := decode[domain.Habit](t, w)
		assert.Equal(t, "Gym (heavy)", updated.Title)
		assert.Equal(t, "#123456", updated.Color)
		assert.Equal(t, []int{1}, updated.Weekdays)
		assert.Equal(t, 2, updated.Version)
	})

	t.Run("Success: Empty weekdays switch the habit to daily", func(t *testing.T) {
		srv := newTestServer(t)
		token := srv.newUser(t, "alice", 10)
		h := srv.createHabit(t, token, map[string]any{"title": "Gym", "weekdays": []int{1, 2}})

		w := srv.do(http.MethodPut, "/api/v1/habits/"+h.ID, token, map[string]any{"weekdays": []int{}})
		require.Equal(t, http.StatusOK, w.Code)

		updated := decode[domain.Habit](t, w)
		assert.Empty(t, updated.Weekdays)
		assert.Equal(t, domain.HabitFreqDaily, updated.FrequencyType)
	})

	t.Run("Optimistic Locking: Stale version is 409", func(t *testing.T) {
		srv := newTestServer(t)
		token := srv.newUser(t, "alice", 10)
		h := srv.createHabit(t, token, map[string]any{"title": "Gym"})
		srv.do(http.MethodPut, "/api/v1/habits/"+h.ID, token, map[string]any{"title": "v2", "version": 1})

		w := srv.do(http.MethodPut, "/api/v1/habits/"+h.ID, token, map[string]any{"title": "stale", "version": 1})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "version conflict")
	})

	t.Run("Security: Another user's habit is 404", func(t *testing.T) {
		srv := newTestServer(t)
		alice := srv.newUser(t, "alice", 10)
		bob := srv.newUser(t, "bob", 10)
		h := srv.createHabit(t, alice, map[string]any{"title": "Gym"})

		w := srv.do(http.MethodPut, "/api/v1/habits/"+h.ID, bob, map[string]any{"color": "#000000"})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Fail: Unknown id without title is 404", func(t *testing.T) {
		srv := newTestServer(t)
		token := srv.newUser(t, "alice", 10)

		w := srv.do(http.MethodPut, "/api/v1/habits/ghost", token, map[string]any{"color": "#000000"})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Fail: Malformed JSON is 400", func(t *testing.T) {
		srv := newTestServer(t)
		token := srv.newUser(t, "alice", 10)

		w := srv.do(http.MethodPut, "/api/v1/habits/x", token, `{"title": `)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHabitHandler_DeleteAndSync(t *testing.T) {
	srv := newTestServer(t)
	token := srv.newUser(t, "alice", 10)
	before := time.Now().UTC().Add(-time.Second)

	keep := srv.createHabit(t, token, map[string]any{"title": "Keep"})
	drop := srv.createHabit(t, token, map[string]any{"title": "Drop"})

	t.Run("Success: Delete is 204", func(t *testing.T) {
		w := srv.do(http.MethodDelete, "/api/v1/habits/"+drop.ID, token, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Success: List hides deleted habits", func(t *testing.T) {
		list := decode[[]domain.Habit](t, srv.do(http.MethodGet, "/api/v1/habits", token, nil))
		require.Len(t, list, 1)
		assert.Equal(t, keep.ID, list[0].ID)
	})

	t.Run("Success: Sync reports the tombstone", func(t *testing.T) {
		w := srv.do(http.MethodGet, "/api/v1/habits/sync?last_sync="+url.QueryEscape(before.Format(time.RFC3339)), token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		res := decode[struct {
			Changes []domain.Habit `json:"changes"`
		}](t, w)
		require.Len(t, res.Changes, 2)

		deleted := 0
		for _, h := range res.Changes {
			if h.DeletedAt != nil {
				deleted++
				assert.Equal(t, drop.ID, h.ID)
			}
		}
		assert.Equal(t, 1, deleted)
	})

	t.Run("Fail: Bad last_sync is 400", func(t *testing.T) {
		w := srv.do(http.MethodGet, "/api/v1/habits/sync?last_sync=yesterday", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Fail: Deleting twice is 404", func(t *testing.T) {
		w := srv.do(http.MethodDelete, "/api/v1/habits/"+drop.ID, token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
