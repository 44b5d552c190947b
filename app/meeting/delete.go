package meeting

import (
	"bitwise74/meet-api/internal"
	"net/http"

	"github.com/gin-gonic/gin"
)

func MeetingDelete(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	meeting, err := d.Meetings.Delete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		abortWith(c, err, "Failed to delete meeting")
		return
	}

	c.JSON(http.StatusOK, meeting)
}
