// Package ai provides vision-capable LLM integration for designcheck.
//
// Providers implement a single capability, Generate, which sends a system
// prompt, a user prompt and zero or more images and returns free text. The
// Collaborator builds the three design-review operations on top of it and
// owns all JSON extraction from model output.
package ai

import (
	"context"
	"log/slog"

	"thoreinstein.com/designcheck/pkg/config"
	rigerrors "thoreinstein.com/designcheck/pkg/errors"
	"thoreinstein.com/designcheck/pkg/imaging"
)

// Request is one model invocation.
type Request struct {
	System string
	Prompt string
	// Images are sent before the prompt text, in order.
	Images []imaging.Image
}

// Response from AI provider.
type Response struct {
	Content      string
	StopReason   string // "end_turn", "max_tokens", etc.
	InputTokens  int
	OutputTokens int
}

// Provider interface for AI operations.
type Provider interface {
	// IsAvailable checks if provider is available and configured.
	IsAvailable() bool

	// Generate performs a single-turn completion over text and images.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider name.
	Name() string
}

// Provider name constants.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderVertex    = "vertex"
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

const defaultMaxTokens = 4096

// NewProvider creates an AI provider based on config. Credentials are taken
// from cfg only; the config layer has already folded in the environment.
// When model is empty, provider-specific default models from config are used.
func NewProvider(cfg *config.AIConfig, logger *slog.Logger) (Provider, error) {
	if cfg == nil {
		return nil, rigerrors.NewConfigError("ai", "config is nil")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	model := func(providerDefault string) string {
		if cfg.Model != "" {
			return cfg.Model
		}
		return providerDefault
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, rigerrors.NewConfigError("ai.api_key",
				"Anthropic API key not set (set ANTHROPIC_API_KEY or ai.api_key in config)")
		}
		return NewAnthropicProvider(cfg.APIKey, model(cfg.AnthropicModel), maxTokens, logger), nil

	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, rigerrors.NewConfigError("ai.api_key",
				"Gemini API key not set (set GEMINI_API_KEY or ai.api_key in config)")
		}
		return NewGeminiProvider(cfg.APIKey, model(cfg.GeminiModel), maxTokens, logger), nil

	case ProviderVertex:
		if cfg.Project == "" {
			return nil, rigerrors.NewConfigError("ai.project",
				"Google Cloud project not set for the vertex provider")
		}
		return NewVertexProvider(VertexOptions{
			Project:         cfg.Project,
			Location:        cfg.Location,
			Model:           model(cfg.VertexModel),
			CredentialsFile: cfg.CredentialsFile,
			MaxTokens:       maxTokens,
		}, logger), nil

	case ProviderGroq:
		if cfg.APIKey == "" {
			return nil, rigerrors.NewConfigError("ai.api_key",
				"Groq API key not set (set GROQ_API_KEY or ai.api_key in config)")
		}
		return NewGroqProvider(cfg.APIKey, model(cfg.GroqModel), cfg.Endpoint, maxTokens, logger), nil

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, rigerrors.NewConfigError("ai.api_key",
				"OpenAI API key not set (set OPENAI_API_KEY or ai.api_key in config)")
		}
		return NewOpenAIProvider(cfg.APIKey, model(cfg.OpenAIModel), cfg.Endpoint, maxTokens, logger), nil

	case ProviderOllama:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = cfg.OllamaEndpoint
		}
		return NewOllamaProvider(endpoint, model(cfg.OllamaModel), logger), nil

	default:
		return nil, rigerrors.NewConfigError("ai.provider",
			"unsupported AI provider: "+cfg.Provider+" (supported: anthropic, gemini, vertex, groq, openai, ollama)")
	}
}
