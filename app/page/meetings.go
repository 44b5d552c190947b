package page

import (
	"bitwise74/meet-api/app/meeting"
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/internal/store"
	"bitwise74/meet-api/pkg/forms"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

func Meetings(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var filter store.MeetingFilter
	bind(c, &filter, c.ShouldBindQuery)

	list, err := d.Meetings.List(c.Request.Context(), userID, filter)
	if err != nil {
		var errs forms.Errors
		if !errors.As(err, &errs) {
			internalError(c, "Failed to list meetings", err)
			return
		}

		// Unknown status filters are dropped instead of failing the page
		filter.Status = ""
		if list, err = d.Meetings.List(c.Request.Context(), userID, filter); err != nil {
			internalError(c, "Failed to list meetings", err)
			return
		}
	}

	c.HTML(http.StatusOK, "meetings.html", data{
		Title:    "Meetings",
		User:     currentUser(c),
		Search:   filter.Search,
		Page:     pageOf(filter.Page),
		Pages:    list.TotalPages,
		Meetings: list,
	})
}

func Meeting(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	m, err := d.Meetings.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(c, "Meeting not found. It either doesn't exist or you don't own it")
			return
		}

		internalError(c, "Failed to fetch meeting", err)
		return
	}

	if d.S3 != nil {
		meeting.PresignURLs(c.Request.Context(), d, m)
	}

	c.HTML(http.StatusOK, "meeting.html", data{
		Title:   m.Name,
		User:    currentUser(c),
		Meeting: m,
	})
}
