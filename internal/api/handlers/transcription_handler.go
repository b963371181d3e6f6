package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/services"
	"github.com/yoockh/voicetasks/internal/utils"
)

type TranscriptionHandler struct {
	svc services.TranscriptionService
}

func NewTranscriptionHandler(svc services.TranscriptionService) *TranscriptionHandler {
	return &TranscriptionHandler{svc: svc}
}

// Transcribe handles POST /transcribe-audio {audio, mime_type?} -> {text}.
func (h *TranscriptionHandler) Transcribe(c *gin.Context) {
	const op = "TranscriptionHandler.Transcribe"

	var req models.TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid JSON body", err))
		return
	}
	if req.Audio == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "No audio data provided", nil))
		return
	}

	text, err := h.svc.Transcribe(c.Request.Context(), req.Audio, req.MIMEType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.TranscribeResponse{Text: text})
}
