package handler

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"taskmanager/internal/repository"
	"taskmanager/internal/validation"
)

// respondError maps domain errors to HTTP responses. Anything unrecognized
// is logged and reported as a 500 without detail.
func respondError(c *gin.Context, logger *log.Logger, err error) {
	var verr *validation.Error
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Validation failed", "errors": verr.Fields})
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "Request body too large"})
	case errors.Is(err, repository.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid ID format"})
	case errors.Is(err, repository.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
	case errors.Is(err, repository.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"message": "Email already in use"})
	default:
		logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"err", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
	}
}

// bindJSON binds the body into req and writes the error response on failure.
func bindJSON(c *gin.Context, logger *log.Logger, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, logger, err)
			return false
		}
		respondError(c, logger, validation.FromBindError(err))
		return false
	}
	return true
}
