package stt

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicetasks/config"
	"github.com/yoockh/voicetasks/internal/utils"
)

// NewFromConfig builds the backend named by cfg.Backend. Job backends are
// wrapped in a JobTranscriber using the configured poll cadence; observe may
// be nil.
func NewFromConfig(ctx context.Context, cfg config.TranscriptionConfig, log *logrus.Logger, observe PollObserver) (Provider, error) {
	const op = "stt.NewFromConfig"

	switch cfg.Backend {
	case config.BackendGoogle:
		return NewGoogleSpeech(ctx, cfg.Google.APIKey, cfg.Language, cfg.SampleRateHz)

	case config.BackendAssemblyAI:
		backend, err := NewAssemblyAI(cfg.AssemblyAI.BaseURL, cfg.AssemblyAI.APIKey, cfg.Language, cfg.RequestTimeout())
		if err != nil {
			return nil, err
		}
		return newJobProvider(backend, cfg, log, observe), nil

	case config.BackendGoogleLongRunning:
		backend, err := NewGoogleLongRunning(ctx, cfg.Google.APIKey, cfg.Google.Bucket, cfg.Language, cfg.SampleRateHz, log)
		if err != nil {
			return nil, err
		}
		return newJobProvider(backend, cfg, log, observe), nil
	}

	return nil, utils.E(utils.CodeConfiguration, op, fmt.Sprintf("unknown transcription backend %q", cfg.Backend), nil)
}

func newJobProvider(backend JobBackend, cfg config.TranscriptionConfig, log *logrus.Logger, observe PollObserver) *JobTranscriber {
	t := NewJobTranscriber(backend, cfg.PollInterval(), cfg.MaxPollAttempts, log)
	if observe != nil {
		t.OnPoll(observe)
	}
	return t
}
