package page

import (
	"bitwise74/meet-api/app/user"
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/internal/auth"
	"bitwise74/meet-api/pkg/forms"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SignIn(c *gin.Context, d *internal.Deps) {
	c.HTML(http.StatusOK, "sign_in.html", data{
		Title:       "Sign in",
		Error:       c.Query("error"),
		CallbackURL: forms.SafeCallback(c.Query("callbackURL")),
		Providers:   d.Auth.EnabledProviders(),
	})
}

func SignInSubmit(c *gin.Context, d *internal.Deps) {
	var form forms.SignInForm
	bind(c, &form, c.ShouldBind)

	id, err := d.Auth.SignInEmail(c.Request.Context(), form, user.RequestMeta(c))
	if err != nil {
		renderFailure(c, d, "sign_in.html", "Sign in", err, form.CallbackURL, map[string]string{
			"email": form.Email,
		})
		return
	}

	if err := d.Auth.WriteCookie(c.Writer, &id.Session); err != nil {
		internalError(c, "Failed to write session cookie", err)
		return
	}

	c.Redirect(http.StatusSeeOther, forms.SafeCallback(form.CallbackURL))
}

func SignUp(c *gin.Context, d *internal.Deps) {
	c.HTML(http.StatusOK, "sign_up.html", data{
		Title:       "Sign up",
		CallbackURL: forms.SafeCallback(c.Query("callbackURL")),
		Providers:   d.Auth.EnabledProviders(),
	})
}

func SignUpSubmit(c *gin.Context, d *internal.Deps) {
	var form forms.SignUpForm
	bind(c, &form, c.ShouldBind)

	_, sess, err := d.Auth.SignUpEmail(c.Request.Context(), form, user.RequestMeta(c))
	if err != nil {
		renderFailure(c, d, "sign_up.html", "Sign up", err, form.CallbackURL, map[string]string{
			"name":  form.Name,
			"email": form.Email,
		})
		return
	}

	if sess == nil {
		c.HTML(http.StatusOK, "sign_in.html", data{
			Title:       "Sign in",
			Notice:      "Check your inbox to verify your email, then sign in",
			CallbackURL: forms.SafeCallback(form.CallbackURL),
			Providers:   d.Auth.EnabledProviders(),
		})
		return
	}

	if err := d.Auth.WriteCookie(c.Writer, sess); err != nil {
		internalError(c, "Failed to write session cookie", err)
		return
	}

	c.Redirect(http.StatusSeeOther, forms.SafeCallback(form.CallbackURL))
}

// SocialSubmit sends the browser to the provider's consent screen
func SocialSubmit(c *gin.Context, d *internal.Deps) {
	var form forms.SocialForm
	bind(c, &form, c.ShouldBind)

	provider, err := auth.ParseProvider(form.Provider)
	if err != nil {
		renderFailure(c, d, "sign_in.html", "Sign in", err, form.CallbackURL, nil)
		return
	}

	redirect, err := d.Auth.SocialStart(c.Request.Context(), provider, form.CallbackURL)
	if err != nil {
		renderFailure(c, d, "sign_in.html", "Sign in", err, form.CallbackURL, nil)
		return
	}

	c.Redirect(http.StatusSeeOther, redirect)
}

func SignOut(c *gin.Context, d *internal.Deps) {
	if err := d.Auth.SignOut(c.Request.Context(), c.Request); err != nil {
		internalError(c, "Failed to delete session", err)
		return
	}

	d.Auth.ClearCookie(c.Writer)
	c.Redirect(http.StatusSeeOther, "/sign-in")
}

// renderFailure shows the form again with the field errors or the single
// message the service returned
func renderFailure(c *gin.Context, d *internal.Deps, tmpl, title string, err error, callbackURL string, values map[string]string) {
	page := data{
		Title:       title,
		Values:      values,
		CallbackURL: forms.SafeCallback(callbackURL),
		Providers:   d.Auth.EnabledProviders(),
	}

	var errs forms.Errors
	status := http.StatusBadRequest

	switch {
	case errors.As(err, &errs):
		page.Fields = errs
	case user.StatusOf(err) != 0:
		status = user.StatusOf(err)
		page.Error = user.Message(err)
	default:
		zap.L().Error("Failed to process "+title, zap.Error(err), zap.String("requestID", c.GetString("requestID")))
		status = http.StatusInternalServerError
		page.Error = "Something went wrong, please try again"
	}

	c.HTML(status, tmpl, page)
}
