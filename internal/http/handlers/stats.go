package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/http/response"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/medicine"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/stats"
)

type StatsHandler struct {
	stats    *stats.Aggregator
	registry *medicine.Registry
}

func NewStatsHandler(agg *stats.Aggregator, registry *medicine.Registry) *StatsHandler {
	return &StatsHandler{stats: agg, registry: registry}
}

func (h *StatsHandler) Global(c *gin.Context) {
	response.RespondOK(c, gin.H{"stats": h.stats.Global(h.registry.Names())})
}

// Batch returns the per-batch rollup. A batch nobody has reported on yet is a
// 404, not a failure; consumers poll before the first reading lands.
func (h *StatsHandler) Batch(c *gin.Context) {
	batchID := c.Param("batchId")
	snapshot, ok := h.stats.Batch(batchID)
	if !ok {
		response.RespondError(c, http.StatusNotFound, "batch_not_found",
			fmt.Errorf("no readings recorded for batch %q", batchID))
		return
	}
	response.RespondOK(c, gin.H{"batchId": batchID, "stats": snapshot})
}
