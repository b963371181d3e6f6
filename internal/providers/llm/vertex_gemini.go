package llm

import (
	"context"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"

	"github.com/yoockh/voicetasks/internal/utils"
)

type VertexGemini struct {
	client      *vertexgenai.Client
	modelName   string
	temperature float32
}

var _ Provider = (*VertexGemini)(nil)

func NewVertexGemini(ctx context.Context, projectID, location, modelName string, temperature float32) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, utils.E(utils.CodeConfiguration, "VertexGemini.New", "failed to create vertex client", err)
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	return &VertexGemini{client: c, modelName: modelName, temperature: temperature}, nil
}

func (v *VertexGemini) Name() string { return "VertexGemini" }

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Complete(ctx context.Context, system, user string) (string, error) {
	const op = "VertexGemini.Complete"

	// GenerativeModel carries per-call settings; build one per request so
	// concurrent callers don't share the system instruction.
	m := v.client.GenerativeModel(v.modelName)
	m.SetTemperature(v.temperature)
	m.SystemInstruction = &vertexgenai.Content{Parts: []vertexgenai.Part{vertexgenai.Text(system)}}

	resp, err := m.GenerateContent(ctx, vertexgenai.Text(user))
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "Vertex AI error: "+err.Error(), err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		// first candidate with content is the answer
		if sb.Len() > 0 {
			break
		}
	}
	if sb.Len() == 0 {
		return "", utils.E(utils.CodeUnavailable, op, "Vertex AI error: empty response", nil)
	}
	return sb.String(), nil
}
