package handlers

import (
	"errors"
	"io"
	"strconv"

	"github.com/chachabrian/foodbridge-backend/internal/middleware"
	"github.com/chachabrian/foodbridge-backend/internal/models"
	"github.com/chachabrian/foodbridge-backend/internal/services"
	"github.com/chachabrian/foodbridge-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps service error kinds to HTTP statuses.
func statusFor(kind error) int {
	switch {
	case errors.Is(kind, services.ErrInvalidInput), errors.Is(kind, services.ErrDuplicate):
		return 400
	case errors.Is(kind, services.ErrInvalidCredentials):
		return 401
	case errors.Is(kind, services.ErrForbidden):
		return 403
	case errors.Is(kind, services.ErrNotFound):
		return 404
	case errors.Is(kind, services.ErrConflict), errors.Is(kind, services.ErrInvalidState), errors.Is(kind, services.ErrBusy):
		return 409
	}
	return 500
}

// respondError writes err. Anything that is not a service Error is logged
// and hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		if status := statusFor(svcErr.Kind); status != 500 {
			c.JSON(status, gin.H{"success": false, "message": svcErr.Message})
			return
		}
	}

	middleware.Log(c).Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	_ = c.Error(err)
	c.JSON(500, gin.H{"success": false, "message": "Server error"})
}

// bindJSON binds the body into dst. An empty body leaves dst zeroed so the
// service can report missing fields.
func bindJSON(c *gin.Context, dst interface{}) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	respondBindError(c, err)
	return false
}

func respondBindError(c *gin.Context, err error) {
	if errs := utils.ValidationErrors(err); errs != nil {
		c.JSON(400, gin.H{
			"success": false,
			"message": utils.FormatValidationErrors(errs),
			"errors":  errs,
		})
		return
	}
	if errors.Is(err, models.ErrInvalidCoordinates) {
		c.JSON(400, gin.H{"success": false, "message": models.ErrInvalidCoordinates.Error()})
		return
	}
	c.JSON(400, gin.H{"success": false, "message": "Invalid request body"})
}

// paramID parses a positive numeric path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(400, gin.H{"success": false, "message": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
