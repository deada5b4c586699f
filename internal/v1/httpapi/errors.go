// Package httpapi wires the core components (otp, pairroom, rtc, voice)
// onto gin handlers and translates coreerr.Error into HTTP responses.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huang-relay/pairrelay/internal/v1/coreerr"
)

// writeError maps a coreerr.Error's Kind to a status code in one place, so
// no handler decides its own error status.
func writeError(c *gin.Context, err error) {
	var coreErr *coreerr.Error
	if !errors.As(err, &coreErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch coreErr.Kind {
	case coreerr.KindNotFound:
		status = http.StatusNotFound
	case coreerr.KindValidation:
		status = http.StatusBadRequest
	case coreerr.KindUnauthorized:
		status = http.StatusUnauthorized
	case coreerr.KindConflict:
		status = http.StatusConflict
	case coreerr.KindGone:
		status = http.StatusGone
	case coreerr.KindTimeout:
		status = http.StatusGatewayTimeout
	case coreerr.KindInternal:
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{"error": coreErr.Message})
}
