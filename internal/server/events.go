package server

import (
	"github.com/gin-gonic/gin"
	"github.com/yungbote/bucketd/internal/events"
)

type EventsHandler struct {
	hub *events.Hub
}

func NewEventsHandler(hub *events.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// GET /api/events/stream
func (h *EventsHandler) Stream(c *gin.Context) {
	client := h.hub.Register()
	defer h.hub.Close(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
