package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{log: log, hub: hub}
}

// Stream serves the live event feed over SSE. Clients pick channels with
// ?channels=readings,anomalies; unknown or missing values fall back to both.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	channels := realtime.ParseChannels(c.Query("channels"))
	client := h.hub.Subscribe(channels...)
	defer h.hub.Unsubscribe(client)

	h.log.Info("SSE stream open",
		"clientId", client.ID.String(),
		"channels", strings.Join(channels, ","),
	)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
	h.log.Info("SSE stream closed", "clientId", client.ID.String())
}
