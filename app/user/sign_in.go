package user

import (
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/pkg/forms"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func UserSignIn(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data forms.SignInForm
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	id, err := d.Auth.SignInEmail(c.Request.Context(), data, RequestMeta(c))
	if err != nil {
		abortWith(c, err, "Failed to sign in user")
		return
	}

	token, err := d.Auth.SessionToken(&id.Session)
	if err != nil {
		abortWith(c, err, "Failed to sign session token")
		return
	}

	if err := d.Auth.WriteCookie(c.Writer, &id.Session); err != nil {
		abortWith(c, err, "Failed to write session cookie")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        id.User,
		"token":       token,
		"callbackURL": forms.SafeCallback(data.CallbackURL),
	})
}
