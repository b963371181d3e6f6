package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/utils"
)

const maxAssemblyAIBody = 1 << 20

// AssemblyAI is the upload/submit/poll backend for api.assemblyai.com.
type AssemblyAI struct {
	baseURL  string
	apiKey   string
	language string
	http     *http.Client
}

var _ JobBackend = (*AssemblyAI)(nil)

func NewAssemblyAI(baseURL, apiKey, language string, timeout time.Duration) (*AssemblyAI, error) {
	const op = "AssemblyAI.New"

	if apiKey == "" {
		return nil, utils.E(utils.CodeConfiguration, op, "ASSEMBLYAI_API_KEY is not configured", nil)
	}
	if baseURL == "" {
		baseURL = "https://api.assemblyai.com/v2"
	}
	if language == "" {
		language = "es"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AssemblyAI{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		language: language,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

func (a *AssemblyAI) Name() string { return "AssemblyAI" }

func (a *AssemblyAI) Close() error {
	a.http.CloseIdleConnections()
	return nil
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

func (a *AssemblyAI) Upload(ctx context.Context, audio Audio) (string, error) {
	const op = "AssemblyAI.Upload"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/upload", bytes.NewReader(audio.Data))
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var out uploadResponse
	if err := a.do(req, op, "Upload error", &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", utils.E(utils.CodeTranscriptionBackend, op, "Upload error: response has no upload_url", nil)
	}
	return out.UploadURL, nil
}

func (a *AssemblyAI) Submit(ctx context.Context, locator string) (string, error) {
	const op = "AssemblyAI.Submit"

	body, err := json.Marshal(transcriptRequest{AudioURL: locator, LanguageCode: a.language})
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out transcriptResponse
	if err := a.do(req, op, "Transcription request error", &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", utils.E(utils.CodeTranscriptionBackend, op, "Transcription request error: response has no id", nil)
	}
	return out.ID, nil
}

func (a *AssemblyAI) Status(ctx context.Context, jobID string) (models.TranscriptionJob, error) {
	const op = "AssemblyAI.Status"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/transcript/"+url.PathEscape(jobID), nil)
	if err != nil {
		return models.TranscriptionJob{}, utils.E(utils.CodeInternal, op, "failed to build request", err)
	}

	var out transcriptResponse
	if err := a.do(req, op, "Polling error", &out); err != nil {
		return models.TranscriptionJob{ID: jobID, Status: models.JobError}, err
	}
	return models.TranscriptionJob{
		ID:     jobID,
		Status: models.JobStatus(out.Status),
		Text:   out.Text,
		Error:  out.Error,
	}, nil
}

// Discard is a no-op: AssemblyAI expires uploads on its own.
func (a *AssemblyAI) Discard(context.Context, string) {}

// do sends req with credentials and decodes a 2xx JSON body into out.
// Any other status becomes a CodeTranscriptionBackend error carrying the raw
// body.
func (a *AssemblyAI) do(req *http.Request, op, stage string, out any) error {
	req.Header.Set("Authorization", a.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return utils.E(utils.CodeTranscriptionBackend, op, stage, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAssemblyAIBody))
	if err != nil {
		return utils.E(utils.CodeTranscriptionBackend, op, stage+": failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return utils.E(utils.CodeTranscriptionBackend, op,
			fmt.Sprintf("%s: %s", stage, strings.TrimSpace(string(body))), nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return utils.E(utils.CodeTranscriptionBackend, op, stage+": invalid JSON response", err)
	}
	return nil
}
