// Package middleware provides Gin middleware shared by the Hermes Router API.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is read from incoming requests and echoed on responses.
const RequestIDHeader = "X-Request-ID"

// RequestIDKey is the Gin context key holding the request ID.
const RequestIDKey = "request_id"

// RequestID keeps the caller's X-Request-ID or generates one, stores it in
// the context under RequestIDKey and sets it on the response. The header is
// also set on the request so forwarded requests carry it to the backend.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
			c.Request.Header.Set(RequestIDHeader, id)
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
