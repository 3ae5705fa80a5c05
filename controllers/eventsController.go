package controllers

import (
	"io"
	"sync"
	"time"

	"urbanconnect-be/events"
	"urbanconnect-be/models"
	"urbanconnect-be/services"

	"github.com/gin-gonic/gin"
)

type EventsController struct {
	hub       *events.Hub
	keepAlive time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

func NewEventsController(hub *events.Hub) *EventsController {
	return &EventsController{hub: hub, keepAlive: 25 * time.Second, done: make(chan struct{})}
}

// Close ends every open stream.
func (ec *EventsController) Close() {
	ec.closeOnce.Do(func() { close(ec.done) })
}

// Stream pushes committed issue changes to dashboards as server-sent events.
func (ec *EventsController) Stream(c *gin.Context) {
	viewer := actor(c)
	ch, cancel := ec.hub.Subscribe()
	defer cancel()

	ticker := time.NewTicker(ec.keepAlive)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-ec.done:
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), visibleTo(viewer, ev))
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		}
	})
}

// visibleTo hides the reporter of other citizens' issues. Admins see every
// reporter.
func visibleTo(viewer *services.Actor, ev events.Event) events.Event {
	if viewer != nil && (viewer.Role == models.RoleAdmin || viewer.UserID.Hex() == ev.UserID) {
		return ev
	}
	ev.UserID = ""
	return ev
}
