package meeting

import (
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/pkg/forms"
	"net/http"

	"github.com/gin-gonic/gin"
)

func MeetingCreate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data forms.MeetingForm
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	meeting, err := d.Meetings.Create(c.Request.Context(), userID, data)
	if err != nil {
		abortWith(c, err, "Failed to create meeting")
		return
	}

	c.JSON(http.StatusCreated, meeting)
}
