package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/yoockh/voicetasks/internal/utils"
)

// Gateway talks to any OpenAI-compatible chat-completion endpoint, such as
// the Lovable AI gateway in front of Gemini.
type Gateway struct {
	client      *openai.Client
	model       string
	temperature float32
}

var _ Provider = (*Gateway)(nil)

func NewGateway(baseURL, apiKey, model string, temperature float32, timeout time.Duration) (*Gateway, error) {
	const op = "Gateway.New"

	if apiKey == "" {
		return nil, utils.E(utils.CodeConfiguration, op, "AI_GATEWAY_API_KEY is not configured", nil)
	}
	if model == "" {
		return nil, utils.E(utils.CodeConfiguration, op, "gateway model is not configured", nil)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Gateway{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
	}, nil
}

func (g *Gateway) Name() string { return "Gateway" }

func (g *Gateway) Close() error { return nil }

func (g *Gateway) Complete(ctx context.Context, system, user string) (string, error) {
	const op = "Gateway.Complete"

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", gatewayError(op, err)
	}
	if len(resp.Choices) == 0 {
		return "", utils.E(utils.CodeUnavailable, op, "AI Gateway error: response has no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// gatewayError keeps the upstream status and message so callers can log what
// the gateway actually said.
func gatewayError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return utils.E(utils.CodeUnavailable, op,
			fmt.Sprintf("AI Gateway error: %d %s", apiErr.HTTPStatusCode, apiErr.Message), err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return utils.E(utils.CodeUnavailable, op,
			fmt.Sprintf("AI Gateway error: %d %v", reqErr.HTTPStatusCode, reqErr.Err), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return utils.E(utils.CodeTimeout, op, "AI Gateway timeout", err)
	}
	return utils.E(utils.CodeUnavailable, op, "AI Gateway error", err)
}
