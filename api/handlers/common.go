package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"

	"github.com/itlsolutions/webmail/internal/errors"
)

// respondWithError maps service errors onto HTTP status codes
func respondWithError(c *gin.Context, err error) {
	switch {
	case pkgerrors.Is(err, errors.ErrEmailNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case pkgerrors.Is(err, errors.ErrSyncInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case pkgerrors.Is(err, errors.ErrIMAPNotConfigured),
		pkgerrors.Is(err, errors.ErrSMTPNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case pkgerrors.Is(err, errors.ErrEmptySubject),
		pkgerrors.Is(err, errors.ErrEmptyBody),
		pkgerrors.Is(err, errors.ErrRecipientsEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
