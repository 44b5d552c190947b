package user

import (
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/pkg/forms"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserVerifyEmail consumes the token from a verification mail
func UserVerifyEmail(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No verification token provided",
			"requestID": requestID,
		})
		return
	}

	user, err := d.Auth.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		abortWith(c, err, "Failed to verify email")
		return
	}

	if callback := c.Query("callbackURL"); callback != "" {
		c.Redirect(http.StatusFound, forms.SafeCallback(callback))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": true,
		"user":   user,
	})
}

type resendBody struct {
	Email string `json:"email"`
}

// UserSendVerification mails a new verification link. The answer is the
// same for unknown addresses.
func UserSendVerification(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data resendBody
	if err := c.ShouldBindJSON(&data); err != nil || data.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid email",
			"requestID": requestID,
		})
		return
	}

	if err := d.Auth.SendVerification(c.Request.Context(), data.Email); err != nil {
		abortWith(c, err, "Failed to send verification email")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": true,
	})
}
