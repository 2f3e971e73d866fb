package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/services"
)

type StatsHandler struct {
	svc *services.StatsService
}

func NewStatsHandler(svc *services.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

func (h *StatsHandler) RegisterRoutes(r *gin.RouterGroup) {
	stats := r.Group("/stats")
	{
		stats.GET("/weekly", h.GetWeeklyStats)
		stats.GET("/dashboard", h.GetDashboard)
		stats.GET("/insights", h.GetInsights)
		stats.GET("/habits/:id/streak", h.GetHabitStreak)
	}
}

type insightsResponse struct {
	Insights []analytics.Insight `json:"insights"`
}

// location reads the optional tz query parameter. Calendar days are cut at
// midnight in this zone; UTC when absent.
func location(c *gin.Context) (*time.Location, bool) {
	name := c.Query("tz")
	if name == "" {
		return time.UTC, true
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid tz, expected an IANA zone name"})
		return nil, false
	}
	return loc, true
}

func queryDate(c *gin.Context, key string, loc *time.Location) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.ParseInLocation(domain.DateLayout, raw, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid " + key + " format, expected YYYY-MM-DD"})
		return time.Time{}, false
	}
	return t, true
}

// dashboardInput collects the shared query parameters of the dashboard
// endpoints. It writes the 400 itself when a parameter is malformed.
func dashboardInput(c *gin.Context, userID string) (domain.DashboardInput, bool) {
	loc, ok := location(c)
	if !ok {
		return domain.DashboardInput{}, false
	}
	start, ok := queryDate(c, "start_date", loc)
	if !ok {
		return domain.DashboardInput{}, false
	}
	end, ok := queryDate(c, "end_date", loc)
	if !ok {
		return domain.DashboardInput{}, false
	}
	return domain.DashboardInput{
		UserID:    userID,
		Range:     c.Query("range"),
		StartDate: start,
		EndDate:   end,
		Location:  loc,
	}, true
}

// GetWeeklyStats godoc
// @Summary   Per-habit progress over a window, the last 7 days by default
// @Tags      stats
// @Security  BearerAuth
// @Produce   json
// @Param     start_date query string false "YYYY-MM-DD"
// @Param     end_date   query string false "YYYY-MM-DD"
// @Param     tz         query string false "IANA time zone"
// @Success   200 {object} domain.WeeklyStats
// @Failure   400 {object} errorResponse
// @Router    /stats/weekly [get]
func (h *StatsHandler) GetWeeklyStats(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	loc, ok := location(c)
	if !ok {
		return
	}
	endDate, ok := queryDate(c, "end_date", loc)
	if !ok {
		return
	}
	if endDate.IsZero() {
		endDate = analytics.Midnight(time.Now().In(loc))
	}
	startDate, ok := queryDate(c, "start_date", loc)
	if !ok {
		return
	}
	if startDate.IsZero() {
		startDate = endDate.AddDate(0, 0, -6)
	}

	stats, err := h.svc.GetWeeklyStats(c.Request.Context(), domain.StatsInput{
		UserID:    userID,
		StartDate: startDate,
		EndDate:   endDate,
		Location:  loc,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetDashboard godoc
// @Summary   Daily completion rates, streaks and insights
// @Tags      stats
// @Security  BearerAuth
// @Produce   json
// @Param     range      query string false "7, 30, 90 or all"
// @Param     start_date query string false "YYYY-MM-DD, overrides range"
// @Param     end_date   query string false "YYYY-MM-DD, overrides range"
// @Param     tz         query string false "IANA time zone"
// @Success   200 {object} analytics.Report
// @Failure   400 {object} errorResponse
// @Router    /stats/dashboard [get]
func (h *StatsHandler) GetDashboard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	input, ok := dashboardInput(c, userID)
	if !ok {
		return
	}

	report, err := h.svc.GetDashboard(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetInsights godoc
// @Summary   Insights only, same parameters as the dashboard
// @Tags      stats
// @Security  BearerAuth
// @Produce   json
// @Param     range query string false "7, 30, 90 or all"
// @Param     tz    query string false "IANA time zone"
// @Success   200 {object} insightsResponse
// @Router    /stats/insights [get]
func (h *StatsHandler) GetInsights(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	input, ok := dashboardInput(c, userID)
	if !ok {
		return
	}

	insights, err := h.svc.GetInsights(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}
	if insights == nil {
		insights = []analytics.Insight{}
	}

	c.JSON(http.StatusOK, insightsResponse{Insights: insights})
}

// GetHabitStreak godoc
// @Summary   Current and longest streak of one habit
// @Tags      stats
// @Security  BearerAuth
// @Produce   json
// @Param     id path  string true  "Habit id"
// @Param     tz query string false "IANA time zone"
// @Success   200 {object} analytics.HabitStreak
// @Failure   404 {object} errorResponse
// @Router    /stats/habits/{id}/streak [get]
func (h *StatsHandler) GetHabitStreak(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	loc, ok := location(c)
	if !ok {
		return
	}

	streak, err := h.svc.GetHabitStreak(c.Request.Context(), domain.StreakInput{
		UserID:   userID,
		HabitID:  c.Param("id"),
		Location: loc,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, streak)
}
