package middleware

import (
	"bitwise74/meet-api/internal/auth"
	"bitwise74/meet-api/internal/model"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Sessions resolves the session behind a request
type Sessions interface {
	Session(ctx context.Context, r *http.Request) (*auth.Identity, error)
	WriteCookie(w http.ResponseWriter, sess *model.Session) error
}

const (
	SignInPath = "/sign-in"
	HomePath   = "/"
)

// loadSession resolves and stores the identity on the request. ok is false
// when the store failed and the request was aborted.
func loadSession(c *gin.Context, s Sessions, abort func(c *gin.Context)) (id *auth.Identity, ok bool) {
	id, err := s.Session(c.Request.Context(), c.Request)
	if err != nil {
		zap.L().Error("Failed to resolve session", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
		abort(c)
		return nil, false
	}

	if id == nil {
		return nil, true
	}

	if id.Refreshed {
		if err := s.WriteCookie(c.Writer, &id.Session); err != nil {
			zap.L().Error("Failed to refresh session cookie", zap.Error(err))
		}
	}

	c.Set("userID", id.User.ID)
	c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))

	return id, true
}

func abortJSON(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": c.GetString("requestID"),
	})
}

func abortPage(c *gin.Context) {
	c.AbortWithStatus(http.StatusInternalServerError)
}

// RequireSession rejects API requests without a valid session
func RequireSession(s Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := loadSession(c, s, abortJSON)
		if !ok {
			return
		}

		if id == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Unauthorized",
				"requestID": c.GetString("requestID"),
			})
			return
		}

		c.Next()
	}
}

// OptionalSession attaches the identity when there is one
func OptionalSession(s Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := loadSession(c, s, abortJSON); ok {
			c.Next()
		}
	}
}

// AuthGate sends anonymous visitors of a protected page to the sign in
// page before anything is rendered
func AuthGate(s Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := loadSession(c, s, abortPage)
		if !ok {
			return
		}

		if id == nil {
			c.Redirect(http.StatusFound, SignInPath)
			c.Abort()
			return
		}

		c.Next()
	}
}

// GuestOnly sends signed in users away from the sign in and sign up pages
func GuestOnly(s Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := loadSession(c, s, abortPage)
		if !ok {
			return
		}

		if id != nil {
			c.Redirect(http.StatusFound, HomePath)
			c.Abort()
			return
		}

		c.Next()
	}
}
