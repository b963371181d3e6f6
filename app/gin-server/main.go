package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicetasks/config"
	"github.com/yoockh/voicetasks/internal/api/handlers"
	"github.com/yoockh/voicetasks/internal/api/routes"
	"github.com/yoockh/voicetasks/internal/cache"
	"github.com/yoockh/voicetasks/internal/logger"
	"github.com/yoockh/voicetasks/internal/metrics"
	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/providers/llm"
	"github.com/yoockh/voicetasks/internal/providers/stt"
	"github.com/yoockh/voicetasks/internal/services"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.New("info").WithError(err).Fatal("config error")
	}
	log := logger.New(cfg.Logging.Level)
	if !log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Init Redis
	var c cache.Cache = cache.Nop{}
	rdb, err := config.InitRedis(ctx, cfg.Cache)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, caching disabled")
	} else if rdb != nil {
		defer rdb.Close()
		c = cache.NewRedisCache(rdb)
		log.Info("redis connected")
	}

	transcriber, err := stt.NewFromConfig(ctx, cfg.Transcription, log, func(backend string, attempts int, status models.JobStatus) {
		m.RecordPollAttempts(backend, attempts, string(status))
	})
	if err != nil {
		log.WithError(err).Fatal("transcription backend init error")
	}
	defer transcriber.Close()

	model, err := llm.NewFromConfig(ctx, cfg.Extraction, cfg.Transcription.RequestTimeout())
	if err != nil {
		log.WithError(err).Fatal("extraction provider init error")
	}
	defer model.Close()

	ts := services.NewTranscriptionService(transcriber, cfg.Transcription.Backend, c, cfg.Cache.TTL(), m, log)
	es := services.NewExtractionService(model, c, cfg.Cache.TTL(), m, log)

	r := routes.NewRouter(routes.Deps{
		Transcription: handlers.NewTranscriptionHandler(ts),
		Extraction:    handlers.NewExtractionHandler(es),
		Voice:         handlers.NewVoiceWSHandler(ts, es, m, log),
		Metrics:       m,
		Log:           log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":       srv.Addr,
			"backend":    cfg.Transcription.Backend,
			"extraction": cfg.Extraction.Provider,
		}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
