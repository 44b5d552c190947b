package meeting

import (
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/internal/model"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func MeetingFetch(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	meeting, err := d.Meetings.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		abortWith(c, err, "Failed to fetch meeting from db")
		return
	}

	if d.S3 != nil {
		PresignURLs(c.Request.Context(), d, meeting)
	}

	c.JSON(http.StatusOK, meeting)
}

// PresignURLs swaps s3:// recording and transcript URLs for temporary
// links. A URL that fails to presign is left out of the response.
func PresignURLs(ctx context.Context, d *internal.Deps, m *model.Meeting) {
	for _, u := range []**string{&m.RecordingURL, &m.TranscriptURL} {
		if *u == nil {
			continue
		}

		link, err := d.S3.Presign(ctx, **u)
		if err != nil {
			zap.L().Warn("Failed to presign meeting URL", zap.String("meetingID", m.ID), zap.Error(err))
			*u = nil
			continue
		}

		*u = &link
	}
}
