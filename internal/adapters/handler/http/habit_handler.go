package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/services"
)

type HabitHandler struct {
	svc *services.HabitService
}

func NewHabitHandler(svc *services.HabitService) *HabitHandler {
	return &HabitHandler{
		svc: svc,
	}
}

// createHabitRequest accepts an optional client generated id so offline
// clients can retry safely.
type createHabitRequest struct {
	ID            string `json:"id"`
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	Color         string `json:"color"`
	Icon          string `json:"icon"`
	Type          string `json:"type"`
	ReminderTime  string `json:"reminder_time"`
	Unit          string `json:"unit"`
	TargetValue   int    `json:"target_value"`
	Interval      int    `json:"interval"`
	Weekdays      []int  `json:"weekdays"`
	FrequencyType string `json:"frequency_type"`
}

// updateHabitRequest is partial: omitted fields keep their stored value.
type updateHabitRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Color         *string `json:"color"`
	Icon          *string `json:"icon"`
	Type          *string `json:"type"`
	ReminderTime  *string `json:"reminder_time"`
	Unit          *string `json:"unit"`
	TargetValue   *int    `json:"target_value"`
	Interval      *int    `json:"interval"`
	Weekdays      *[]int  `json:"weekdays"`
	FrequencyType *string `json:"frequency_type"`
	Version       int     `json:"version"`
}

type habitSyncResponse struct {
	Changes   []*domain.Habit `json:"changes"`
	Timestamp time.Time       `json:"timestamp"`
}

func (h *HabitHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habits")
	{
		habits.POST("", h.Create)
		habits.GET("", h.List)
		habits.GET("/sync", h.Sync)
		habits.PUT("/:id", h.Update)
		habits.DELETE("/:id", h.Delete)
	}
}

// Create godoc
// @Summary   Create a habit
// @Tags      habits
// @Security  BearerAuth
// @Accept    json
// @Produce   json
// @Param     body body createHabitRequest true "Habit"
// @Success   201 {object} domain.Habit
// @Failure   400 {object} errorResponse
// @Failure   409 {object} errorResponse
// @Router    /habits [post]
func (h *HabitHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	habit, err := h.svc.Create(c.Request.Context(), services.CreateHabitInput{
		ID:            req.ID,
		UserID:        userID,
		Title:         req.Title,
		Description:   req.Description,
		Color:         req.Color,
		Icon:          req.Icon,
		Type:          req.Type,
		ReminderTime:  req.ReminderTime,
		Unit:          req.Unit,
		TargetValue:   req.TargetValue,
		Interval:      req.Interval,
		Weekdays:      req.Weekdays,
		FrequencyType: req.FrequencyType,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, habit)
}

// List godoc
// @Summary   List active habits
// @Tags      habits
// @Security  BearerAuth
// @Produce   json
// @Success   200 {array} domain.Habit
// @Router    /habits [get]
func (h *HabitHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	list, err := h.svc.ListByUserID(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	if list == nil {
		list = []*domain.Habit{}
	}

	c.JSON(http.StatusOK, list)
}

// Sync godoc
// @Summary   Habits changed since last_sync, soft deletes included
// @Tags      habits
// @Security  BearerAuth
// @Produce   json
// @Param     last_sync query string false "RFC3339 timestamp"
// @Success   200 {object} habitSyncResponse
// @Router    /habits/sync [get]
func (h *HabitHandler) Sync(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var lastSync time.Time
	if raw := c.Query("last_sync"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid last_sync format, use RFC3339"})
			return
		}
		lastSync = parsed
	}

	deltas, err := h.svc.GetDelta(c.Request.Context(), userID, lastSync)
	if err != nil {
		handleError(c, err)
		return
	}
	if deltas == nil {
		deltas = []*domain.Habit{}
	}

	c.JSON(http.StatusOK, habitSyncResponse{
		Changes:   deltas,
		Timestamp: time.Now().UTC(),
	})
}

// Update godoc
// @Summary   Partially update a habit (optimistic locking on version)
// @Tags      habits
// @Security  BearerAuth
// @Accept    json
// @Produce   json
// @Param     id   path string             true "Habit id"
// @Param     body body updateHabitRequest true "Changed fields"
// @Success   200 {object} domain.Habit
// @Failure   404 {object} errorResponse
// @Failure   409 {object} errorResponse
// @Router    /habits/{id} [put]
func (h *HabitHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req updateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	habit, err := h.svc.Update(c.Request.Context(), services.UpdateHabitInput{
		ID:            c.Param("id"),
		UserID:        userID,
		Title:         req.Title,
		Description:   req.Description,
		Color:         req.Color,
		Icon:          req.Icon,
		Type:          req.Type,
		ReminderTime:  req.ReminderTime,
		Unit:          req.Unit,
		TargetValue:   req.TargetValue,
		Interval:      req.Interval,
		Weekdays:      req.Weekdays,
		FrequencyType: req.FrequencyType,
		Version:       req.Version,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

// Delete godoc
// @Summary   Soft-delete a habit
// @Tags      habits
// @Security  BearerAuth
// @Param     id path string true "Habit id"
// @Success   204
// @Failure   404 {object} errorResponse
// @Router    /habits/{id} [delete]
func (h *HabitHandler) Delete(c *gin.Context) {
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
