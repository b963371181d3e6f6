package services

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicetasks/internal/cache"
	"github.com/yoockh/voicetasks/internal/metrics"
	"github.com/yoockh/voicetasks/internal/providers/stt"
	"github.com/yoockh/voicetasks/internal/utils"
)

// DefaultAudioMIMEType is what browsers' MediaRecorder produces by default.
const DefaultAudioMIMEType = "audio/webm"

type TranscriptionService interface {
	// Transcribe accepts base64 audio, optionally as a data: URL carrying its
	// own MIME type.
	Transcribe(ctx context.Context, audioBase64, mimeType string) (string, error)
	TranscribeAudio(ctx context.Context, audio stt.Audio) (string, error)
}

type transcriptionService struct {
	backend stt.Provider
	name    string
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *logrus.Logger
}

func NewTranscriptionService(backend stt.Provider, name string, c cache.Cache, ttl time.Duration, m *metrics.Metrics, log *logrus.Logger) TranscriptionService {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &transcriptionService{backend: backend, name: name, cache: c, ttl: ttl, metrics: m, log: log}
}

func (s *transcriptionService) Transcribe(ctx context.Context, audioBase64, mimeType string) (string, error) {
	data, embeddedType, err := DecodeAudio(audioBase64)
	if err != nil {
		return "", err
	}
	if mimeType == "" {
		mimeType = embeddedType
	}
	return s.TranscribeAudio(ctx, stt.Audio{Data: data, MIMEType: mimeType})
}

func (s *transcriptionService) TranscribeAudio(ctx context.Context, audio stt.Audio) (text string, err error) {
	const op = "TranscriptionService.Transcribe"

	if len(audio.Data) == 0 {
		return "", utils.E(utils.CodeInvalidArgument, op, "No audio data provided", nil)
	}
	if audio.MIMEType == "" {
		audio.MIMEType = DefaultAudioMIMEType
	}

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordTranscription(s.name, resultCode(err), time.Since(start).Seconds(), len(audio.Data))
		}
	}()

	log := s.log.WithFields(logrus.Fields{
		"backend":   s.name,
		"bytes":     len(audio.Data),
		"mime_type": audio.MIMEType,
	})

	key := cache.Key("transcript", []byte(s.name), audio.Data)
	var cached string
	hit, cerr := s.cache.GetJSON(ctx, key, &cached)
	if cerr != nil {
		log.WithError(cerr).Warn("transcript cache lookup failed")
	}
	if s.metrics != nil {
		s.metrics.RecordCacheLookup("transcript", hit)
	}
	if hit && cached != "" {
		return cached, nil
	}

	text, err = s.backend.Transcribe(ctx, audio)
	if err != nil {
		log.WithError(err).Error("transcription failed")
		return "", err
	}

	if err := s.cache.SetJSON(ctx, key, text, s.ttl); err != nil {
		log.WithError(err).Warn("transcript cache store failed")
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("transcription completed")
	return text, nil
}

// DecodeAudio decodes standard or URL-safe base64, padded or not. A
// "data:<mime>;base64," prefix is stripped and its MIME type returned.
func DecodeAudio(encoded string) ([]byte, string, error) {
	const op = "DecodeAudio"

	encoded = strings.TrimSpace(encoded)
	var mimeType string
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, "", utils.E(utils.CodeInvalidArgument, op, "audio data URL must be base64 encoded", nil)
		}
		mimeType = strings.TrimSuffix(header, ";base64")
		encoded = payload
	}
	if encoded == "" {
		return nil, "", utils.E(utils.CodeInvalidArgument, op, "No audio data provided", nil)
	}

	var lastErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding,
	} {
		data, err := enc.DecodeString(encoded)
		if err == nil {
			return data, mimeType, nil
		}
		lastErr = err
	}
	return nil, "", utils.E(utils.CodeInvalidArgument, op, "audio is not valid base64", lastErr)
}
