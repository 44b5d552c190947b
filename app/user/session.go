package user

import (
	"bitwise74/meet-api/internal/auth"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserSession returns the current user and session, or null when anonymous
func UserSession(c *gin.Context) {
	id, ok := auth.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusOK, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    id.User,
		"session": id.Session,
	})
}
