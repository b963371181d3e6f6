package stt

import (
	"bytes"
	"context"
	"mime"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/google/uuid"
	"github.com/googleapis/gax-go/v2"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/status"

	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/storage"
	"github.com/yoockh/voicetasks/internal/utils"
)

type recognizeOperation interface {
	Name() string
	Done() bool
	Poll(ctx context.Context, opts ...gax.CallOption) (*speechpb.LongRunningRecognizeResponse, error)
}

type longRunningClient interface {
	Start(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (recognizeOperation, error)
	Operation(name string) recognizeOperation
	Close() error
}

// speechOperations adapts *speech.Client to longRunningClient.
type speechOperations struct{ c *speech.Client }

func (s speechOperations) Start(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (recognizeOperation, error) {
	return s.c.LongRunningRecognize(ctx, req)
}

func (s speechOperations) Operation(name string) recognizeOperation {
	return s.c.LongRunningRecognizeOperation(name)
}

func (s speechOperations) Close() error { return s.c.Close() }

// GoogleLongRunning uploads audio to Cloud Storage and transcribes it with a
// LongRunningRecognize operation, polled by name.
type GoogleLongRunning struct {
	ops    longRunningClient
	store  storage.ObjectStore
	bucket string
	log    *logrus.Logger

	Language     string
	SampleRateHz int32

	// mime type per uploaded locator; Submit needs it for the recognition
	// config.
	mu        sync.Mutex
	mimeTypes map[string]string
}

var _ JobBackend = (*GoogleLongRunning)(nil)

func NewGoogleLongRunning(ctx context.Context, apiKey, bucket, language string, sampleRateHz int, log *logrus.Logger) (*GoogleLongRunning, error) {
	const op = "GoogleLongRunning.New"

	if bucket == "" {
		return nil, utils.E(utils.CodeConfiguration, op, "GOOGLE_SPEECH_BUCKET is not configured", nil)
	}
	c, err := speech.NewClient(ctx, googleClientOptions(apiKey)...)
	if err != nil {
		return nil, utils.E(utils.CodeConfiguration, op, "failed to create speech client", err)
	}
	store, err := storage.NewGCSUploader(ctx, bucket)
	if err != nil {
		_ = c.Close()
		return nil, utils.E(utils.CodeConfiguration, op, "failed to create storage client", err)
	}
	return newGoogleLongRunning(speechOperations{c: c}, store, bucket, language, sampleRateHz, log), nil
}

func newGoogleLongRunning(ops longRunningClient, store storage.ObjectStore, bucket, language string, sampleRateHz int, log *logrus.Logger) *GoogleLongRunning {
	if log == nil {
		log = logrus.New()
	}
	return &GoogleLongRunning{
		ops:          ops,
		store:        store,
		bucket:       bucket,
		log:          log,
		Language:     googleLanguage(language),
		SampleRateHz: int32(sampleRateHz),
		mimeTypes:    map[string]string{},
	}
}

func (g *GoogleLongRunning) Name() string { return "GoogleLongRunning" }

func (g *GoogleLongRunning) Close() error {
	errOps := g.ops.Close()
	errStore := g.store.Close()
	if errOps != nil {
		return errOps
	}
	return errStore
}

func (g *GoogleLongRunning) Upload(ctx context.Context, audio Audio) (string, error) {
	const op = "GoogleLongRunning.Upload"

	objectName := "voice/" + uuid.NewString() + extensionFor(audio.MIMEType)
	locator, err := g.store.Upload(ctx, objectName, audio.MIMEType, bytes.NewReader(audio.Data))
	if err != nil {
		return "", utils.E(utils.CodeTranscriptionBackend, op, "Upload error: "+err.Error(), err)
	}
	g.mu.Lock()
	g.mimeTypes[locator] = audio.MIMEType
	g.mu.Unlock()
	return locator, nil
}

func (g *GoogleLongRunning) Submit(ctx context.Context, locator string) (string, error) {
	const op = "GoogleLongRunning.Submit"

	g.mu.Lock()
	mimeType := g.mimeTypes[locator]
	g.mu.Unlock()

	operation, err := g.ops.Start(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: recognitionConfig(mimeType, g.SampleRateHz, g.Language),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: locator},
		},
	})
	if err != nil {
		return "", googleBackendError(op, err)
	}
	return operation.Name(), nil
}

func (g *GoogleLongRunning) Status(ctx context.Context, jobID string) (models.TranscriptionJob, error) {
	const op = "GoogleLongRunning.Status"

	operation := g.ops.Operation(jobID)
	resp, err := operation.Poll(ctx)
	switch {
	case err != nil && operation.Done():
		// the operation itself failed
		return models.TranscriptionJob{ID: jobID, Status: models.JobError, Error: googleErrorMessage(err)}, nil
	case err != nil:
		return models.TranscriptionJob{ID: jobID, Status: models.JobError}, googleBackendError(op, err)
	case !operation.Done() || resp == nil:
		return models.TranscriptionJob{ID: jobID, Status: models.JobProcessing}, nil
	}

	return models.TranscriptionJob{
		ID:     jobID,
		Status: models.JobCompleted,
		Text:   firstAlternatives(resp.GetResults()),
	}, nil
}

func (g *GoogleLongRunning) Discard(ctx context.Context, locator string) {
	g.mu.Lock()
	delete(g.mimeTypes, locator)
	g.mu.Unlock()

	objectName := strings.TrimPrefix(locator, "gs://"+g.bucket+"/")
	if err := g.store.Delete(ctx, objectName); err != nil {
		g.log.WithError(err).WithField("object", objectName).Warn("failed to delete uploaded audio")
	}
}

func googleErrorMessage(err error) string {
	if st, ok := status.FromError(err); ok && st.Message() != "" {
		return st.Message()
	}
	return err.Error()
}

func extensionFor(mimeType string) string {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ""
	}
	switch base {
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/flac":
		return ".flac"
	}
	if exts, _ := mime.ExtensionsByType(base); len(exts) > 0 {
		return exts[0]
	}
	return ""
}
