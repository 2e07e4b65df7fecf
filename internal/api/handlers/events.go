package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"creditmeter/internal/infrastructure/events"
)

// SweepEvents streams sweep-run outcomes over SSE — the operational view
// of the sweeper's health between Prometheus scrapes.
func SweepEvents(c *gin.Context) {
	broker := events.GetBroker()
	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	c.Stream(func(w io.Writer) bool {
		if evt, ok := <-ch; ok {
			c.SSEvent("sweep_run", evt)
			return true
		}
		return false
	})
}
