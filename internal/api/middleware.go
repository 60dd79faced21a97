package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rongwang/invoice-sheets/internal/config"
	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/service"
)

// SessionHeader carries the session token issued at sign-in
const SessionHeader = "X-Session-Token"

// Context keys set by AuthMiddleware
const (
	userIDKey      = "userId"
	accessTokenKey = "accessToken"
)

// AuthMiddleware returns a Gin middleware for authentication. The Google
// access token comes in the Authorization header and the session token in
// X-Session-Token.
func AuthMiddleware(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authentication required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			abortUnauthorized(c, "Invalid token format")
			return
		}

		session := c.GetHeader(SessionHeader)
		if session == "" {
			abortUnauthorized(c, "Session token required")
			return
		}

		userID, err := svc.VerifySession(session)
		if err != nil {
			abortUnauthorized(c, "Invalid session token")
			return
		}

		c.Set(userIDKey, userID)
		c.Set(accessTokenKey, parts[1])
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Status:  "error",
		Code:    "UNAUTHORIZED",
		Message: message,
	})
}

// CORS allows the browser front end to call the API with its auth headers
func CORS(conf config.CORSConfig) gin.HandlerFunc {
	origins := conf.Origins()
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", SessionHeader},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           conf.MaxAge,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// RequestLogger logs one line per request
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	log := logger.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"user_id", c.GetString(userIDKey),
		)
	}
}
