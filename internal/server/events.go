package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleEvents streams every loop event as a server-sent event named after
// its kind. The latest event is replayed first so a new viewer starts with
// the current figures.
func (r *Router) handleEvents(c *gin.Context) {
	board := r.mgr.Board()
	ch, cancel := board.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Content-Type", "text/event-stream")
	c.Status(http.StatusOK)

	if e, ok := board.Latest(); ok {
		c.SSEvent(string(e.Kind), e)
	}
	// Headers go out now so clients see the stream before the first report.
	c.Writer.Flush()

	done := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-done:
			return false
		case e, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Kind), e)
			return true
		}
	})
}
