package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yoockh/voicetasks/internal/capture"
	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/utils"
)

const maxResponseBody = 4 << 20

// Client calls a voicetasks server's adapter endpoints. It satisfies the
// orchestrator's Transcriber and Extractor.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type Option func(*Client)

// WithAPIKey sends key as a bearer token and apikey header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New builds a client for baseURL, ex: "http://localhost:8080" or
// "https://<project>.supabase.co/functions/v1".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// transcription may poll for up to a minute server side
		http: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Transcribe(ctx context.Context, audio capture.Blob) (string, error) {
	const op = "Client.Transcribe"

	if audio.Empty() {
		return "", utils.E(utils.CodeInvalidArgument, op, "No audio data provided", nil)
	}

	var out models.TranscribeResponse
	err := c.post(ctx, op, "/transcribe-audio", models.TranscribeRequest{
		Audio:    audio.Base64(),
		MIMEType: audio.MIMEType,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

func (c *Client) Extract(ctx context.Context, transcript string) ([]models.TaskRecord, error) {
	const op = "Client.Extract"

	var out models.ExtractResponse
	if err := c.post(ctx, op, "/extract-tasks", models.ExtractRequest{Text: transcript}, &out); err != nil {
		return nil, err
	}
	if out.Tasks == nil {
		out.Tasks = []models.TaskRecord{}
	}
	return out.Tasks, nil
}

func (c *Client) post(ctx context.Context, op, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return utils.E(utils.CodeTimeout, op, "request timed out", err)
		}
		return utils.E(utils.CodeUnavailable, op, "server unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return remoteError(op, resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return utils.E(utils.CodeInternal, op, "invalid response body", err)
	}
	return nil
}

// remoteError rebuilds the server's AppError from {error, code}; the code
// falls back to one derived from the HTTP status.
func remoteError(op string, status int, raw []byte) error {
	var er models.ErrorResponse
	if err := json.Unmarshal(raw, &er); err != nil || er.Error == "" {
		er.Error = strings.TrimSpace(string(raw))
		if er.Error == "" {
			er.Error = http.StatusText(status)
		}
	}
	code := utils.Code(er.Code)
	if code == "" {
		code = codeForStatus(status)
	}
	return utils.E(code, op, er.Error, fmt.Errorf("http status %d", status))
}

func codeForStatus(status int) utils.Code {
	switch status {
	case http.StatusBadRequest:
		return utils.CodeInvalidArgument
	case http.StatusForbidden, http.StatusUnauthorized:
		return utils.CodePermissionDenied
	case http.StatusNotFound:
		return utils.CodeNotFound
	case http.StatusConflict:
		return utils.CodeConflict
	case http.StatusUnprocessableEntity:
		return utils.CodeEmptyTranscription
	case http.StatusGatewayTimeout:
		return utils.CodeTimeout
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return utils.CodeUnavailable
	default:
		return utils.CodeInternal
	}
}
