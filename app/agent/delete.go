package agent

import (
	"bitwise74/meet-api/internal"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AgentDelete removes an agent together with its meetings
func AgentDelete(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	agent, err := d.Agents.Delete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		abortWith(c, err, "Failed to delete agent")
		return
	}

	c.JSON(http.StatusOK, agent)
}
