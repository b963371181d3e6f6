package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/utils"
)

const (
	DefaultPollInterval    = time.Second
	DefaultMaxPollAttempts = 60
)

// JobBackend is a transcription service that works in three steps: upload the
// audio, submit a job referencing it, then report the job's status by id.
type JobBackend interface {
	Name() string
	Upload(ctx context.Context, audio Audio) (locator string, err error)
	Submit(ctx context.Context, locator string) (jobID string, err error)
	Status(ctx context.Context, jobID string) (models.TranscriptionJob, error)
	// Discard releases whatever Upload created. Best effort.
	Discard(ctx context.Context, locator string)
	Close() error
}

// PollObserver receives the number of status requests a job needed.
type PollObserver func(backend string, attempts int, status models.JobStatus)

// JobTranscriber drives a JobBackend with a fixed-cadence, bounded poll loop.
type JobTranscriber struct {
	backend     JobBackend
	interval    time.Duration
	maxAttempts int
	log         *logrus.Logger
	observe     PollObserver
}

func NewJobTranscriber(backend JobBackend, interval time.Duration, maxAttempts int, log *logrus.Logger) *JobTranscriber {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPollAttempts
	}
	if log == nil {
		log = logrus.New()
	}
	return &JobTranscriber{backend: backend, interval: interval, maxAttempts: maxAttempts, log: log}
}

// OnPoll registers an observer called once per finished poll loop.
func (t *JobTranscriber) OnPoll(fn PollObserver) { t.observe = fn }

func (t *JobTranscriber) Close() error { return t.backend.Close() }

func (t *JobTranscriber) Transcribe(ctx context.Context, audio Audio) (string, error) {
	op := t.backend.Name() + ".Transcribe"

	if len(audio.Data) == 0 {
		return "", utils.E(utils.CodeInvalidArgument, op, "No audio data provided", nil)
	}

	log := t.log.WithField("backend", t.backend.Name())

	log.WithField("bytes", len(audio.Data)).Debug("uploading audio")
	locator, err := t.backend.Upload(ctx, audio)
	if err != nil {
		return "", err
	}
	defer t.backend.Discard(context.WithoutCancel(ctx), locator)

	jobID, err := t.backend.Submit(ctx, locator)
	if err != nil {
		return "", err
	}
	log = log.WithField("job_id", jobID)
	log.Info("transcription requested")

	job, err := t.poll(ctx, jobID, log)
	if err != nil {
		return "", err
	}

	if job.Status == models.JobError {
		log.WithField("backend_error", job.Error).Error("transcription failed")
		return "", utils.E(utils.CodeTranscriptionBackend, op, "Transcription failed: "+job.Error, nil)
	}

	text := strings.TrimSpace(job.Text)
	if text == "" {
		return "", utils.E(utils.CodeEmptyTranscription, op, "No transcription returned from "+t.backend.Name(), nil)
	}
	log.WithField("chars", len(text)).Info("transcription completed")
	return text, nil
}

// poll asks for the job status at most maxAttempts times, waiting interval
// between non-terminal answers.
func (t *JobTranscriber) poll(ctx context.Context, jobID string, log *logrus.Entry) (models.TranscriptionJob, error) {
	op := t.backend.Name() + ".poll"

	var last models.TranscriptionJob
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		log.WithField("attempt", attempt).Debug("polling transcription")

		job, err := t.backend.Status(ctx, jobID)
		if err != nil {
			t.observed(attempt, models.JobError)
			return job, err
		}
		last = job
		if job.Status.IsTerminal() {
			t.observed(attempt, job.Status)
			return job, nil
		}

		if attempt == t.maxAttempts {
			break
		}
		if err := sleep(ctx, t.interval); err != nil {
			t.observed(attempt, job.Status)
			if errors.Is(err, context.DeadlineExceeded) {
				return job, utils.E(utils.CodeTimeout, op, "transcription deadline exceeded", err)
			}
			return job, utils.E(utils.CodeInternal, op, "transcription cancelled", err)
		}
	}

	t.observed(t.maxAttempts, last.Status)
	log.WithField("last_status", last.Status).Warn("transcription poll ceiling reached")
	return last, utils.E(utils.CodeTimeout, op,
		fmt.Sprintf("Transcription timeout - no result after %d attempts", t.maxAttempts), nil)
}

func (t *JobTranscriber) observed(attempts int, status models.JobStatus) {
	if t.observe != nil {
		t.observe(t.backend.Name(), attempts, status)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
