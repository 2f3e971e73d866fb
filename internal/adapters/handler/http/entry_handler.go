package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/services"
)

const defaultEntryWindow = 30 * 24 * time.Hour

type EntryHandler struct {
	svc *services.EntryService
}

func NewEntryHandler(svc *services.EntryService) *EntryHandler {
	return &EntryHandler{
		svc: svc,
	}
}

type createEntryRequest struct {
	HabitID        string    `json:"habit_id" binding:"required"`
	CompletionDate time.Time `json:"completion_date" binding:"required"`
	Value          int       `json:"value"`
	Notes          string    `json:"notes"`
}

type updateEntryRequest struct {
	CompletionDate *time.Time `json:"completion_date"`
	Value          int        `json:"value"`
	Notes          string     `json:"notes"`
	Version        int        `json:"version" binding:"required"`
}

type entrySyncResponse struct {
	Changes   []*domain.HabitEntry `json:"changes"`
	Timestamp time.Time            `json:"timestamp"`
}

func (h *EntryHandler) RegisterRoutes(router *gin.RouterGroup) {
	entries := router.Group("/entries")
	{
		entries.POST("", h.Create)
		entries.GET("", h.ListByHabit)
		entries.GET("/sync", h.Sync)
		entries.PUT("/:id", h.Update)
		entries.DELETE("/:id", h.Delete)
	}
}

// Create godoc
// @Summary   Log a completion for a habit
// @Tags      entries
// @Security  BearerAuth
// @Accept    json
// @Produce   json
// @Param     body body createEntryRequest true "Entry"
// @Success   201 {object} domain.HabitEntry
// @Failure   400 {object} errorResponse
// @Failure   403 {object} errorResponse
// @Router    /entries [post]
func (h *EntryHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	entry, err := h.svc.Create(c.Request.Context(), services.CreateEntryInput{
		HabitID:        req.HabitID,
		UserID:         userID,
		CompletionDate: req.CompletionDate,
		Value:          req.Value,
		Notes:          req.Notes,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// Update godoc
// @Summary   Update an entry (optimistic locking on version)
// @Tags      entries
// @Security  BearerAuth
// @Accept    json
// @Produce   json
// @Param     id   path string             true "Entry id"
// @Param     body body updateEntryRequest true "Entry"
// @Success   200 {object} domain.HabitEntry
// @Failure   409 {object} errorResponse
// @Router    /entries/{id} [put]
func (h *EntryHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	entry, err := h.svc.Update(c.Request.Context(), services.UpdateEntryInput{
		ID:             c.Param("id"),
		UserID:         userID,
		CompletionDate: req.CompletionDate,
		Value:          req.Value,
		Notes:          req.Notes,
		Version:        req.Version,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Delete godoc
// @Summary   Soft-delete an entry
// @Tags      entries
// @Security  BearerAuth
// @Param     id path string true "Entry id"
// @Success   204
// @Router    /entries/{id} [delete]
func (h *EntryHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListByHabit godoc
// @Summary   Entries of one habit in [from, to], last 30 days by default
// @Tags      entries
// @Security  BearerAuth
// @Produce   json
// @Param     habit_id query string true  "Habit id"
// @Param     from     query string false "RFC3339 timestamp"
// @Param     to       query string false "RFC3339 timestamp"
// @Success   200 {array} domain.HabitEntry
// @Router    /entries [get]
func (h *EntryHandler) ListByHabit(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	habitID := c.Query("habit_id")
	if habitID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "habit_id is required"})
		return
	}

	to, err := queryTime(c, "to", time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid to, use RFC3339"})
		return
	}
	from, err := queryTime(c, "from", to.Add(-defaultEntryWindow))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid from, use RFC3339"})
		return
	}

	list, err := h.svc.ListByHabitID(c.Request.Context(), habitID, userID, from, to)
	if err != nil {
		handleError(c, err)
		return
	}
	if list == nil {
		list = []*domain.HabitEntry{}
	}

	c.JSON(http.StatusOK, list)
}

// Sync godoc
// @Summary   Entries changed since a timestamp, soft deletes included
// @Tags      entries
// @Security  BearerAuth
// @Produce   json
// @Param     since query string false "RFC3339 timestamp"
// @Success   200 {object} entrySyncResponse
// @Router    /entries/sync [get]
func (h *EntryHandler) Sync(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	since, err := queryTime(c, "since", time.Time{})
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid date format (use RFC3339)"})
		return
	}

	changes, err := h.svc.GetDelta(c.Request.Context(), userID, since)
	if err != nil {
		handleError(c, err)
		return
	}
	if changes == nil {
		changes = []*domain.HabitEntry{}
	}

	c.JSON(http.StatusOK, entrySyncResponse{
		Changes:   changes,
		Timestamp: time.Now().UTC(),
	})
}

func queryTime(c *gin.Context, key string, fallback time.Time) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, raw)
}
