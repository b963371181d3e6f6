package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/yoockh/voicetasks/config"
	"github.com/yoockh/voicetasks/internal/utils"
)

func NewFromConfig(ctx context.Context, cfg config.ExtractionConfig, timeout time.Duration) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderGateway:
		return NewGateway(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.Model, cfg.Temperature, timeout)
	case config.ProviderVertex:
		return NewVertexGemini(ctx, cfg.Vertex.ProjectID, cfg.Vertex.Location, cfg.Vertex.Model, cfg.Temperature)
	}
	return nil, utils.E(utils.CodeConfiguration, "llm.NewFromConfig", fmt.Sprintf("unknown extraction provider %q", cfg.Provider), nil)
}
