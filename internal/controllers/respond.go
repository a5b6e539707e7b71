package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/franciscosanchezn/gin-user-manager/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// respondError maps service errors to status codes. Unknown errors are logged and
// reported as a generic 500 so storage details never reach the client.
func respondError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrValidationFailed, err.Error()))
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrEmailTaken, "User with this email already exists"))
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrInvalidCredentials, "Invalid credentials"))
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrUnauthorized, "Authentication required"))
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, models.NewAPIError(models.ErrForbidden, "Access denied. Only administrators can delete users"))
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrUserNotFound, "User not found"))
	case errors.Is(err, services.ErrClientNotFound):
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, "Client not found"))
	default:
		log.WithError(err).WithFields(log.Fields{
			"action":     action,
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("requestID"),
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Failed to "+action))
	}
}

// respondBindingError reports which fields failed validation
func respondBindingError(c *gin.Context, err error, message string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]interface{}, len(verrs))
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrValidationFailed, message, map[string]interface{}{"fields": fields}))
		return
	}
	c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "Invalid request body"))
}

// parseID reads the :id path parameter
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "Invalid user ID format"))
		return 0, false
	}
	return uint(id), true
}
