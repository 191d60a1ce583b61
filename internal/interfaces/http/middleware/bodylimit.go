package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dronestore/storefront/internal/interfaces/http/dto"
)

// BodyLimit rejects declared oversize bodies up front and caps streamed ones.
// Reads past the cap fail with *http.MaxBytesError, which
// HandleValidationError turns into a 413.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", GetRequestID(c)))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
