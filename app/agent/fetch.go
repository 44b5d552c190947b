package agent

import (
	"bitwise74/meet-api/internal"
	"net/http"

	"github.com/gin-gonic/gin"
)

func AgentFetch(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	agent, err := d.Agents.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		abortWith(c, err, "Failed to fetch agent from db")
		return
	}

	c.JSON(http.StatusOK, agent)
}
