package agent

import (
	"bitwise74/meet-api/internal/store"
	"bitwise74/meet-api/pkg/forms"
	"bitwise74/meet-api/pkg/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

func abortWith(c *gin.Context, err error, logMsg string) {
	var errs forms.Errors

	switch {
	case errors.As(err, &errs):
		util.ValidationError(c, errs)
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Agent not found. It either doesn't exist or you don't own it",
			"requestID": c.GetString("requestID"),
		})
	default:
		util.InternalError(c, logMsg, err)
	}
}
