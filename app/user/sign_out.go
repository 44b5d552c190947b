package user

import (
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/pkg/metrics"
	"net/http"

	"github.com/gin-gonic/gin"
)

func UserSignOut(c *gin.Context, d *internal.Deps) {
	err := d.Auth.SignOut(c.Request.Context(), c.Request)
	metrics.AuthEvent("sign_out", err)

	if err != nil {
		abortWith(c, err, "Failed to delete session")
		return
	}

	d.Auth.ClearCookie(c.Writer)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}
