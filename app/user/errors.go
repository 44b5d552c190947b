package user

import (
	"bitwise74/meet-api/internal/auth"
	"bitwise74/meet-api/pkg/forms"
	"bitwise74/meet-api/pkg/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusOf maps an auth service error to the status code shown to clients.
// Zero means the error is internal.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailNotVerified):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, auth.ErrAccountNotLinked):
		return http.StatusConflict
	case errors.Is(err, auth.ErrUnknownProvider),
		errors.Is(err, auth.ErrProviderDisabled),
		errors.Is(err, auth.ErrInvalidState),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrNoEmail):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrSocialSignIn):
		return http.StatusUnauthorized
	}

	return 0
}

// Message returns the text shown to users for err
func Message(err error) string {
	var errs forms.Errors
	if errors.As(err, &errs) {
		return errs.Error()
	}

	// Social sign in failures wrap the provider error
	if errors.Is(err, auth.ErrSocialSignIn) {
		return auth.ErrSocialSignIn.Error()
	}

	if StatusOf(err) == 0 {
		return "Internal server error"
	}

	return err.Error()
}

func abortWith(c *gin.Context, err error, logMsg string) {
	var errs forms.Errors
	if errors.As(err, &errs) {
		util.ValidationError(c, errs)
		return
	}

	status := StatusOf(err)
	if status == 0 {
		util.InternalError(c, logMsg, err)
		return
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":     Message(err),
		"requestID": c.GetString("requestID"),
	})
}

// RequestMeta is what gets stored with a new session
func RequestMeta(c *gin.Context) auth.RequestMeta {
	return auth.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
