package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/http/response"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/ml"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

type ReadingHandler struct {
	engine *ml.Engine
}

func NewReadingHandler(engine *ml.Engine) *ReadingHandler {
	return &ReadingHandler{engine: engine}
}

// Temperature and humidity are pointers so that a literal 0 still binds;
// "required" on a plain float64 would reject it.
type readingRequest struct {
	BatchID      string    `json:"batchId" binding:"required"`
	DeviceID     string    `json:"deviceId" binding:"required"`
	MedicineType string    `json:"medicineType"`
	Temperature  *float64  `json:"temperature" binding:"required"`
	Humidity     *float64  `json:"humidity" binding:"required"`
	Timestamp    time.Time `json:"timestamp"`
}

// Ingest accepts a single sensor reading, runs it through the analysis
// pipeline and returns the stored reading together with its verdict.
func (h *ReadingHandler) Ingest(c *gin.Context) {
	var req readingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_reading", err)
		return
	}

	enriched, err := h.engine.Process(c.Request.Context(), types.Reading{
		BatchID:      req.BatchID,
		DeviceID:     req.DeviceID,
		MedicineType: req.MedicineType,
		Temperature:  *req.Temperature,
		Humidity:     *req.Humidity,
		Timestamp:    req.Timestamp,
	})
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_reading", err)
		return
	}

	response.RespondOK(c, gin.H{
		"ok":         true,
		"data":       enriched.Reading,
		"mlAnalysis": enriched.Analysis(),
	})
}
