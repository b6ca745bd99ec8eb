package handlers

import (
	"net/http"
	"time"

	"github.com/careertrack/careertrack/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const userIDKey = "userID"

// UserResolver turns the identity header into a user row.
type UserResolver interface {
	FindOrCreate(email string) (*models.User, error)
}

// RequestLogger logs every request with latency and status.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger := log.With().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Logger()

		if len(c.Errors) > 0 {
			logger.Error().Msg(c.Errors.String())
		} else {
			logger.Info().Msg("Request processed")
		}
	}
}

// AuthRequired resolves the X-User-Email header to a user and stores the
// ID in the context. A missing header is rejected with the exact message
// the client's offline fallback keys on.
func AuthRequired(users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetHeader("X-User-Email")
		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		user, err := users.FindOrCreate(email)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user: " + err.Error()})
			return
		}
		c.Set(userIDKey, user.ID)
		c.Next()
	}
}

// currentUserID reads the authenticated user ID set by AuthRequired.
func currentUserID(c *gin.Context) uint {
	return c.GetUint(userIDKey)
}
