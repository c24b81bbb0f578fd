package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/facturas/invoicing"
	"github.com/yourusername/facturas/logger"
)

// respondError maps lifecycle errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var (
		validation *invoicing.ValidationError
		notFound   *invoicing.NotFoundError
		state      *invoicing.StateError
		conflict   *invoicing.SequenceConflictError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "field": validation.Field, "code": "ValidationError"})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error(), "code": "NotFound"})
	case errors.As(err, &state):
		c.JSON(http.StatusConflict, gin.H{"error": state.Error(), "status": state.Status, "code": "InvalidState"})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Another invoice was finalized at the same time, please retry", "code": "SequenceConflict"})
	default:
		if signErr, ok := invoicing.AsSigningError(err); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": signErr.Error(), "reason": signErr.Reason, "code": "SigningError"})
			return
		}
		logger.WithContext(c.Request.Context()).Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// parseID reads a positive numeric path parameter, answering 400 otherwise.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func currentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}
