package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-dashboard/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/services"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var badRequestErrors = []error{
	domain.ErrHabitTitleEmpty,
	domain.ErrHabitTitleTooLong,
	domain.ErrHabitDescTooLong,
	domain.ErrHabitInvalidUserID,
	domain.ErrInvalidColor,
	domain.ErrInvalidWeekdays,
	domain.ErrInvalidTarget,
	domain.ErrInvalidInterval,
	domain.ErrInvalidHabitType,
	domain.ErrInvalidReminder,
	domain.ErrInvalidFrequency,
	domain.ErrInvalidEntry,
	domain.ErrInvalidRange,
	domain.ErrInvalidEmail,
	domain.ErrPasswordTooShort,
	services.ErrInvalidHabitID,
}

// handleError maps domain errors onto HTTP statuses. Anything unknown is
// logged and reported as a 500 without leaking details.
func handleError(c *gin.Context, err error) {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid email or password"})

	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, errorResponse{Error: "unauthorized access"})

	case errors.Is(err, domain.ErrEntryNotFound),
		errors.Is(err, domain.ErrHabitNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "resource not found"})

	case errors.Is(err, domain.ErrHabitConflict), errors.Is(err, domain.ErrEntryConflict):
		c.JSON(http.StatusConflict, errorResponse{
			Error:   "version conflict",
			Message: "data has been modified elsewhere, please sync",
		})

	case errors.Is(err, domain.ErrHabitAlreadyExists), errors.Is(err, domain.ErrEmailAlreadyExists):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})

	case errors.Is(err, domain.ErrHabitArchived):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})

	default:
		log.Printf("[ERROR] Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	}
	return userID, ok
}
