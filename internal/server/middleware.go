package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	headerAPIKey     = "x-api-key"
	contextUserIDKey = "user_id"
)

// RequestLogger logs one line per request with zap.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// AuthRequired resolves the bearer session token and stores the user
// id on the gin context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := s.resolver.Resolve(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

// APIKeyRequired authenticates external API calls via the x-api-key
// header and applies the per-key rate limit.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(headerAPIKey)
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := s.apiKeySvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		if s.gatewayLimiter.Enabled() {
			result, err := s.gatewayLimiter.Allow(c.Request.Context(), userID)
			if err != nil {
				AbortWithError(c, err)
				return
			}
			if !result.Allowed {
				AbortWithError(c, ErrRateLimited)
				return
			}
		}

		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

func userIDFromContext(c *gin.Context) (snowflake.ID, bool) {
	v, ok := c.Get(contextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(snowflake.ID)
	return id, ok
}
