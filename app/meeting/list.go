package meeting

import (
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/internal/store"
	"net/http"

	"github.com/gin-gonic/gin"
)

func MeetingList(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var filter store.MeetingFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid query parameters",
			"requestID": requestID,
		})
		return
	}

	page, err := d.Meetings.List(c.Request.Context(), userID, filter)
	if err != nil {
		abortWith(c, err, "Failed to list meetings")
		return
	}

	if d.S3 != nil {
		for i := range page.Items {
			PresignURLs(c.Request.Context(), d, &page.Items[i])
		}
	}

	c.JSON(http.StatusOK, page)
}
