package agent

import (
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/pkg/forms"
	"net/http"

	"github.com/gin-gonic/gin"
)

func AgentCreate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data forms.AgentForm
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	agent, err := d.Agents.Create(c.Request.Context(), userID, data)
	if err != nil {
		abortWith(c, err, "Failed to create agent")
		return
	}

	c.JSON(http.StatusCreated, agent)
}
