package user

import (
	"bitwise74/meet-api/internal"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserProviders lists the social providers that can be used to sign in
func UserProviders(c *gin.Context, d *internal.Deps) {
	c.JSON(http.StatusOK, gin.H{
		"providers": d.Auth.EnabledProviders(),
	})
}
