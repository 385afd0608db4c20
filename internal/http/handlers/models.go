package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/http/response"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/medicine"
)

type ModelHandler struct {
	registry *medicine.Registry
}

func NewModelHandler(registry *medicine.Registry) *ModelHandler {
	return &ModelHandler{registry: registry}
}

func (h *ModelHandler) List(c *gin.Context) {
	response.RespondOK(c, gin.H{"models": h.registry.Models()})
}
