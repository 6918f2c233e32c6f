package api

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "requestID"

// respondWithError writes a consistent JSON error response. Unexpected errors
// are logged and reported as a generic internal error.
func (s *Server) respondWithError(c *gin.Context, err error) {
	err = translateError(err)

	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil && appErr.StatusCode >= 500 {
			s.logger.Error("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path)
		}
		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	s.logger.Error("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method)
	c.JSON(ErrInternalServer.StatusCode, gin.H{
		"error": gin.H{
			"code":    ErrInternalServer.Code,
			"message": ErrInternalServer.Message,
		},
	})
}

// parsePathID parses an int64 path parameter.
func parsePathID(c *gin.Context, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, WithMessage(ErrInvalidInput, "Invalid "+param)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, name string) (int, bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, WithMessage(ErrInvalidInput, "Invalid "+name)
	}
	return n, true, nil
}

// requestLogging logs each request with a generated request id.
func requestLogging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := uuid.New().String()
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		logger.Debug("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP())
	}
}
