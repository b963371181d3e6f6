package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicetasks/internal/api/handlers"
	"github.com/yoockh/voicetasks/internal/api/middleware"
	"github.com/yoockh/voicetasks/internal/metrics"
)

type Deps struct {
	Transcription *handlers.TranscriptionHandler
	Extraction    *handlers.ExtractionHandler
	Voice         *handlers.VoiceWSHandler
	Metrics       *metrics.Metrics
	Log           *logrus.Logger
}

// NewRouter builds the engine with the standard middleware chain and every
// route registered.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.CORS(), middleware.RequestLogger(d.Log), middleware.Metrics(d.Metrics))
	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	// Same handlers under the functions prefix the web client calls.
	for _, g := range []*gin.RouterGroup{r.Group("/"), r.Group("/functions/v1")} {
		g.POST("/transcribe-audio", d.Transcription.Transcribe)
		g.POST("/extract-tasks", d.Extraction.Extract)
	}

	// WebSocket
	r.GET("/ws/voice", d.Voice.Voice)
}
