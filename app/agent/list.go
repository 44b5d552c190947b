package agent

import (
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/internal/store"
	"net/http"

	"github.com/gin-gonic/gin"
)

func AgentList(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var filter store.AgentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid query parameters",
			"requestID": requestID,
		})
		return
	}

	page, err := d.Agents.List(c.Request.Context(), userID, filter)
	if err != nil {
		abortWith(c, err, "Failed to list agents")
		return
	}

	c.JSON(http.StatusOK, page)
}
