// Package util contains any functions used across the application that don't match
// any other package
package util

import (
	"bitwise74/meet-api/pkg/forms"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// InternalError logs err and answers with a generic 500
func InternalError(c *gin.Context, msg string, err error) {
	requestID := c.GetString("requestID")

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})

	zap.L().Error(msg, zap.Error(err), zap.String("requestID", requestID))
}

// ValidationError answers with the field level messages of errs
func ValidationError(c *gin.Context, errs forms.Errors) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":     "Invalid request body",
		"fields":    errs,
		"requestID": c.GetString("requestID"),
	})
}
