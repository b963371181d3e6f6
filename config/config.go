package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yoockh/voicetasks/internal/utils"
)

const (
	BackendAssemblyAI        = "assemblyai"
	BackendGoogle            = "google"
	BackendGoogleLongRunning = "google_longrunning"

	ProviderGateway = "gateway"
	ProviderVertex  = "vertex"
)

// Config is the complete service configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	Cache         CacheConfig         `yaml:"cache"`
	Logging       LoggingConfig       `yaml:"logging"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

type TranscriptionConfig struct {
	Backend         string `yaml:"backend"`  // assemblyai|google|google_longrunning
	Language        string `yaml:"language"` // es
	SampleRateHz    int    `yaml:"sample_rate_hz"`
	PollIntervalMS  int    `yaml:"poll_interval_ms"`
	MaxPollAttempts int    `yaml:"max_poll_attempts"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"` // per HTTP request

	AssemblyAI AssemblyAIConfig `yaml:"assemblyai"`
	Google     GoogleConfig     `yaml:"google"`
}

type AssemblyAIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type GoogleConfig struct {
	APIKey string `yaml:"api_key"` // empty means application default credentials
	Bucket string `yaml:"bucket"`  // required by google_longrunning
}

type ExtractionConfig struct {
	Provider    string        `yaml:"provider"` // gateway|vertex
	Temperature float32       `yaml:"temperature"`
	Gateway     GatewayConfig `yaml:"gateway"`
	Vertex      VertexConfig  `yaml:"vertex"`
}

type GatewayConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

type VertexConfig struct {
	ProjectID string `yaml:"project_id"`
	Location  string `yaml:"location"`
	Model     string `yaml:"model"`
}

type CacheConfig struct {
	RedisAddr  string `yaml:"redis_addr"` // empty disables caching
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Address: "0.0.0.0", Port: 8080},
		Transcription: TranscriptionConfig{
			Backend:         BackendAssemblyAI,
			Language:        "es",
			SampleRateHz:    48000,
			PollIntervalMS:  1000,
			MaxPollAttempts: 60,
			TimeoutSeconds:  30,
			AssemblyAI:      AssemblyAIConfig{BaseURL: "https://api.assemblyai.com/v2"},
		},
		Extraction: ExtractionConfig{
			Provider:    ProviderGateway,
			Temperature: 0.3,
			Gateway: GatewayConfig{
				BaseURL: "https://ai.gateway.lovable.dev/v1",
				Model:   "google/gemini-2.5-flash",
			},
			Vertex: VertexConfig{Location: "us-central1", Model: "gemini-1.5-flash"},
		},
		Cache:   CacheConfig{TTLSeconds: 3600},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the optional YAML file at path, applies environment overrides
// and validates the result. A missing credential for the selected backend is
// reported as a CodeConfiguration error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Address, "HTTP_ADDRESS")
	setInt(&c.Server.Port, "PORT")

	setString(&c.Transcription.Backend, "TRANSCRIPTION_BACKEND")
	setString(&c.Transcription.Language, "TRANSCRIPTION_LANGUAGE")
	setInt(&c.Transcription.SampleRateHz, "TRANSCRIPTION_SAMPLE_RATE_HZ")
	setInt(&c.Transcription.PollIntervalMS, "TRANSCRIPTION_POLL_INTERVAL_MS")
	setInt(&c.Transcription.MaxPollAttempts, "TRANSCRIPTION_MAX_POLL_ATTEMPTS")
	setString(&c.Transcription.AssemblyAI.BaseURL, "ASSEMBLYAI_BASE_URL")
	setString(&c.Transcription.AssemblyAI.APIKey, "ASSEMBLYAI_API_KEY")
	setString(&c.Transcription.Google.APIKey, "GOOGLE_SPEECH_API_KEY")
	setString(&c.Transcription.Google.Bucket, "GOOGLE_SPEECH_BUCKET")

	setString(&c.Extraction.Provider, "EXTRACTION_PROVIDER")
	setString(&c.Extraction.Gateway.BaseURL, "AI_GATEWAY_BASE_URL")
	setString(&c.Extraction.Gateway.APIKey, "AI_GATEWAY_API_KEY")
	setString(&c.Extraction.Gateway.Model, "AI_GATEWAY_MODEL")
	setString(&c.Extraction.Vertex.ProjectID, "VERTEX_PROJECT_ID")
	setString(&c.Extraction.Vertex.Location, "VERTEX_LOCATION")
	setString(&c.Extraction.Vertex.Model, "VERTEX_MODEL")

	setString(&c.Cache.RedisAddr, "REDIS_ADDR")
	if c.Cache.RedisAddr == "" {
		setString(&c.Cache.RedisAddr, "REDIS_URL")
	}
	setInt(&c.Cache.TTLSeconds, "CACHE_TTL_SECONDS")

	setString(&c.Logging.Level, "LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	const op = "Config.Validate"

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return utils.E(utils.CodeConfiguration, op, fmt.Sprintf("port must be between 1 and 65535, got %d", c.Server.Port), nil)
	}
	if err := c.Transcription.Validate(); err != nil {
		return utils.E(utils.CodeConfiguration, op, "transcription config", err)
	}
	if err := c.Extraction.Validate(); err != nil {
		return utils.E(utils.CodeConfiguration, op, "extraction config", err)
	}
	if c.Cache.TTLSeconds < 0 {
		return utils.E(utils.CodeConfiguration, op, "cache ttl_seconds cannot be negative", nil)
	}
	return nil
}

func (t *TranscriptionConfig) Validate() error {
	if t.Language == "" {
		return errors.New("language cannot be empty")
	}
	if t.PollIntervalMS < 1 {
		return fmt.Errorf("poll_interval_ms must be positive, got %d", t.PollIntervalMS)
	}
	if t.MaxPollAttempts < 1 {
		return fmt.Errorf("max_poll_attempts must be at least 1, got %d", t.MaxPollAttempts)
	}
	if t.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be at least 1, got %d", t.TimeoutSeconds)
	}

	switch t.Backend {
	case BackendAssemblyAI:
		if t.AssemblyAI.APIKey == "" {
			return errors.New("ASSEMBLYAI_API_KEY is not set")
		}
		if t.AssemblyAI.BaseURL == "" {
			return errors.New("assemblyai base_url cannot be empty")
		}
	case BackendGoogle:
		// API key is optional; application default credentials are used otherwise.
	case BackendGoogleLongRunning:
		if t.Google.Bucket == "" {
			return errors.New("GOOGLE_SPEECH_BUCKET is not set")
		}
	default:
		return fmt.Errorf("unknown transcription backend %q", t.Backend)
	}
	return nil
}

func (e *ExtractionConfig) Validate() error {
	if e.Temperature < 0 || e.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", e.Temperature)
	}
	switch e.Provider {
	case ProviderGateway:
		if e.Gateway.APIKey == "" {
			return errors.New("AI_GATEWAY_API_KEY is not set")
		}
		if e.Gateway.BaseURL == "" || e.Gateway.Model == "" {
			return errors.New("gateway base_url and model are required")
		}
	case ProviderVertex:
		if e.Vertex.ProjectID == "" {
			return errors.New("VERTEX_PROJECT_ID is not set")
		}
	default:
		return fmt.Errorf("unknown extraction provider %q", e.Provider)
	}
	return nil
}

func (t *TranscriptionConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalMS) * time.Millisecond
}

func (t *TranscriptionConfig) RequestTimeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}
