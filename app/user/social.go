package user

import (
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/internal/auth"
	"bitwise74/meet-api/pkg/forms"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserSocialStart returns the provider URL the browser has to visit
func UserSocialStart(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data forms.SocialForm
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if errs := forms.Validate(&data); errs != nil {
		abortWith(c, errs, "")
		return
	}

	provider, err := auth.ParseProvider(data.Provider)
	if err != nil {
		abortWith(c, err, "")
		return
	}

	redirect, err := d.Auth.SocialStart(c.Request.Context(), provider, data.CallbackURL)
	if err != nil {
		abortWith(c, err, "Failed to start social sign in")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":      redirect,
		"redirect": true,
	})
}

// UserSocialCallback finishes a social sign in and sends the browser to
// its callback URL, or back to the sign in page with the error
func UserSocialCallback(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	fail := func(msg string) {
		q := url.Values{}
		q.Set("error", msg)

		c.Redirect(http.StatusFound, "/sign-in?"+q.Encode())
	}

	if e := c.Query("error"); e != "" {
		zap.L().Debug("Provider denied authorization", zap.String("error", e), zap.String("requestID", requestID))
		fail(auth.ErrSocialSignIn.Error())
		return
	}

	provider, err := auth.ParseProvider(c.Param("provider"))
	if err != nil {
		fail(err.Error())
		return
	}

	id, callbackURL, err := d.Auth.SocialCallback(c.Request.Context(), provider, c.Query("code"), c.Query("state"), RequestMeta(c))
	if err != nil {
		if StatusOf(err) == 0 {
			zap.L().Error("Failed to finish social sign in", zap.Error(err), zap.String("requestID", requestID))
		} else {
			zap.L().Debug("Social sign in rejected", zap.Error(err), zap.String("requestID", requestID))
		}

		fail(Message(err))
		return
	}

	if err := d.Auth.WriteCookie(c.Writer, &id.Session); err != nil {
		zap.L().Error("Failed to write session cookie", zap.Error(err), zap.String("requestID", requestID))
		fail(Message(err))
		return
	}

	c.Redirect(http.StatusFound, callbackURL)
}
