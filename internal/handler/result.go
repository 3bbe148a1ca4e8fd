package handler

import (
	"errors"
	"net/http"

	"region-api/internal/models"

	"github.com/gin-gonic/gin"
)

// statusFor maps a failed result to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidCoordinates):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrCapacityExceeded):
		return http.StatusConflict
	case errors.Is(err, models.ErrAuthentication):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeResult(c *gin.Context, res models.Result) {
	if res.Success {
		c.JSON(http.StatusOK, res)
		return
	}
	c.JSON(statusFor(res.Err), res)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.Result{Success: false, Message: message})
}
