package agent

import (
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/pkg/forms"
	"net/http"

	"github.com/gin-gonic/gin"
)

func AgentUpdate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data forms.AgentPatch
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if data.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Nothing to update",
			"requestID": requestID,
		})
		return
	}

	agent, err := d.Agents.Update(c.Request.Context(), userID, c.Param("id"), data)
	if err != nil {
		abortWith(c, err, "Failed to update agent")
		return
	}

	c.JSON(http.StatusOK, agent)
}
