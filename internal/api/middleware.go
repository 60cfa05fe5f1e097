package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"give4need/internal/common/auth"
	"give4need/internal/common/metrics"

	"github.com/gin-gonic/gin"
)

const userKey = "user"

// authMiddleware accepts the auth cookie or a Bearer token.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token, _ = c.Cookie(s.config.CookieName)
		}

		if token == "" {
			s.unauthorized(c, "missing auth token")
			return
		}
		user, err := s.verifier.Verify(token)
		if err != nil {
			s.logger.Debug("rejected auth token", map[string]interface{}{"path": c.Request.URL.Path, "error": err})
			s.unauthorized(c, "invalid auth token")
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

func (s *Server) unauthorized(c *gin.Context, msg string) {
	redirect := s.config.LoginPath + "?" + url.Values{"redirect": {c.Request.URL.Path}}.Encode()
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "redirect": redirect})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())

		if route == "/health" || route == "/metrics" {
			return
		}
		s.logger.Info("request handled", map[string]interface{}{
			"method":   c.Request.Method,
			"route":    route,
			"status":   status,
			"duration": time.Since(start).String(),
		})
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func currentUser(c *gin.Context) *auth.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*auth.User); ok {
			return u
		}
	}
	return nil
}

func currentUserID(c *gin.Context) string {
	if u := currentUser(c); u != nil {
		return u.ID
	}
	return ""
}
