package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicetasks/internal/cache"
	"github.com/yoockh/voicetasks/internal/metrics"
	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/providers/llm"
	"github.com/yoockh/voicetasks/internal/utils"
)

// TaskExtractionPrompt is the fixed instruction sent with every transcript.
// The model is asked to default time and priority itself; Extract re-checks
// both anyway.
const TaskExtractionPrompt = `Eres un asistente que extrae tareas de texto en español.
Analiza el texto y extrae todas las tareas mencionadas con su hora y prioridad.
Si no se menciona la hora, usa "09:00" por defecto.
Si no se menciona la prioridad, usa "medium" por defecto.

Responde SOLO con un array JSON de tareas en este formato exacto:
[
  {
    "title": "Título de la tarea",
    "time": "HH:MM",
    "priority": "low" | "medium" | "high"
  }
]

NO agregues explicaciones, solo el JSON.`

type ExtractionService interface {
	// Extract returns the tasks mentioned in transcript, possibly none.
	Extract(ctx context.Context, transcript string) ([]models.TaskRecord, error)
}

type extractionService struct {
	model   llm.Provider
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *logrus.Logger
}

func NewExtractionService(model llm.Provider, c cache.Cache, ttl time.Duration, m *metrics.Metrics, log *logrus.Logger) ExtractionService {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &extractionService{model: model, cache: c, ttl: ttl, metrics: m, log: log}
}

func (s *extractionService) Extract(ctx context.Context, transcript string) (tasks []models.TaskRecord, err error) {
	const op = "ExtractionService.Extract"

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "No text provided", nil)
	}

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordExtraction(s.model.Name(), resultCode(err), time.Since(start).Seconds(), len(tasks))
		}
	}()

	key := cache.Key("tasks", []byte(s.model.Name()), []byte(transcript))
	var cached []models.TaskRecord
	hit, cerr := s.cache.GetJSON(ctx, key, &cached)
	if cerr != nil {
		s.log.WithError(cerr).Warn("task cache lookup failed")
	}
	if s.metrics != nil {
		s.metrics.RecordCacheLookup("tasks", hit)
	}
	if hit {
		return cached, nil
	}

	answer, err := s.model.Complete(ctx, TaskExtractionPrompt, transcript)
	if err != nil {
		s.log.WithError(err).WithField("provider", s.model.Name()).Error("task extraction request failed")
		return nil, err
	}

	parsed, err := ParseTasks(answer)
	if err != nil {
		s.log.WithError(err).WithField("answer", answer).Error("failed to parse AI response")
		return nil, err
	}

	tasks = make([]models.TaskRecord, 0, len(parsed))
	for _, t := range parsed {
		if !t.Normalize() {
			s.log.WithField("task", t).Warn("dropping task without title")
			continue
		}
		tasks = append(tasks, t)
	}

	if err := s.cache.SetJSON(ctx, key, tasks, s.ttl); err != nil {
		s.log.WithError(err).Warn("task cache store failed")
	}

	s.log.WithFields(logrus.Fields{
		"provider": s.model.Name(),
		"tasks":    len(tasks),
	}).Info("tasks extracted")
	return tasks, nil
}

// resultCode labels an outcome for metrics.
func resultCode(err error) string {
	if err == nil {
		return "OK"
	}
	return string(utils.CodeOf(err))
}
