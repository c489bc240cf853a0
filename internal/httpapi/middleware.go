package httpapi

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"

// RequestID ensures every request carries a correlation id, grounded on
// the teacher's identically-named middleware
// (internal/http/middleware/request_id.go): reuse a client-supplied
// X-Request-ID if present and sane, otherwise mint a uuid.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if l := len(id); l < 1 || l > 64 {
			id = uuid.New().String()
		}
		c.Header("X-Request-ID", id)
		c.Set(requestIDKey, id)
		c.Next()
	}
}

// ZapLogger logs one structured line per request, same field set and
// status-to-level mapping as the teacher's ZapLogger (cmd/zmux-server/main.go).
func ZapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		var errs []error
		for _, ge := range c.Errors {
			if ge.Err != nil {
				errs = append(errs, ge.Err)
			}
		}
		joined := errors.Join(errs...)

		fields := []zap.Field{
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", latency),
		}
		if joined != nil {
			fields = append(fields, zap.Error(joined))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// BasicAuth gates the admin surface behind a username/password pair or an
// already-established session, grounded on the teacher's Authentication
// middleware (internal/http/middleware/auth.go) trimmed to the two checks
// this control plane actually needs — there is no bearer-token tier here
// since nothing external mints tokens for it.
func BasicAuth(username, password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if uid, _ := session.Get("uid").(string); uid != "" {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if ok &&
			subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1 &&
			subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1 {
			session.Set("uid", user)
			_ = session.Save()
			c.Next()
			return
		}

		c.Header("WWW-Authenticate", `Basic realm="mlfqkernel"`)
		c.AbortWithStatus(401)
	}
}
