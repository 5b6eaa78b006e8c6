package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKeyRequestID is the Gin context key for the request ID.
const ContextKeyRequestID = "request_id"

// RequestIDHeader is echoed on every response so a candidate support
// ticket can be correlated with server logs.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every request with a unique ID, honoring an
// ID supplied by a trusted proxy when present.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, reqID)
		c.Header(RequestIDHeader, reqID)
		c.Next()
	}
}
