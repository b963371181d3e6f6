package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/services"
	"github.com/yoockh/voicetasks/internal/utils"
)

type ExtractionHandler struct {
	svc services.ExtractionService
}

func NewExtractionHandler(svc services.ExtractionService) *ExtractionHandler {
	return &ExtractionHandler{svc: svc}
}

// Extract handles POST /extract-tasks {text} -> {tasks}.
func (h *ExtractionHandler) Extract(c *gin.Context) {
	const op = "ExtractionHandler.Extract"

	var req models.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid JSON body", err))
		return
	}

	tasks, err := h.svc.Extract(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ExtractResponse{Tasks: tasks})
}
