package user

import (
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/pkg/forms"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func UserSignUp(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data forms.SignUpForm
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	user, sess, err := d.Auth.SignUpEmail(c.Request.Context(), data, RequestMeta(c))
	if err != nil {
		abortWith(c, err, "Failed to sign up user")
		return
	}

	// Sign up doesn't start a session while the email is unverified
	if sess == nil {
		c.JSON(http.StatusOK, gin.H{
			"user":                 user,
			"verificationRequired": true,
		})
		return
	}

	token, err := d.Auth.SessionToken(sess)
	if err != nil {
		abortWith(c, err, "Failed to sign session token")
		return
	}

	if err := d.Auth.WriteCookie(c.Writer, sess); err != nil {
		abortWith(c, err, "Failed to write session cookie")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"token":       token,
		"callbackURL": forms.SafeCallback(data.CallbackURL),
	})
}
