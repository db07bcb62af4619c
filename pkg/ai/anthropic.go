package ai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	rigerrors "thoreinstein.com/designcheck/pkg/errors"
)

const anthropicDefaultModel = "claude-sonnet-4-20250514"

// AnthropicProvider implements Provider for the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey    string
	model     string
	maxTokens int
	client    anthropic.Client
	logger    *slog.Logger
}

// NewAnthropicProvider creates a new Anthropic provider. Extra request
// options are appended after the defaults (tests use option.WithBaseURL).
func NewAnthropicProvider(apiKey, model string, maxTokens int, logger *slog.Logger, opts ...option.RequestOption) *AnthropicProvider {
	if model == "" {
		model = anthropicDefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	// The SDK retries 429 and 5xx by default; failures here feed the
	// caller's fallback policy instead.
	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &AnthropicProvider{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client:    anthropic.NewClient(reqOpts...),
		logger:    logger,
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return ProviderAnthropic
}

// IsAvailable checks if the provider is configured and ready.
func (p *AnthropicProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Generate sends the images followed by the prompt as one user turn.
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if !p.IsAvailable() {
		return nil, rigerrors.NewAIError(ProviderAnthropic, "Generate", "provider not configured")
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(req.Images)+1)
	for _, img := range req.Images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(img.MediaType, img.Base64()))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	p.logDebug("sending generate request", "model", p.model, "images", len(req.Images))

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.toAIError(err)
	}

	var content strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	p.logDebug("received response",
		"stop_reason", msg.StopReason,
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens)

	if content.Len() == 0 {
		return nil, rigerrors.NewAIError(ProviderAnthropic, "Generate", "no text content in response")
	}

	return &Response{
		Content:      content.String(),
		StopReason:   string(msg.StopReason),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}

// toAIError maps SDK errors onto AIError, keeping the HTTP status.
func (p *AnthropicProvider) toAIError(err error) error {
	var apiErr *anthropic.Error
	if rigerrors.As(err, &apiErr) {
		aiErr := rigerrors.NewAIErrorWithStatus(ProviderAnthropic, "Generate", apiErr.StatusCode, "API error")
		aiErr.Cause = err
		return aiErr
	}
	return rigerrors.NewAIErrorWithCause(ProviderAnthropic, "Generate", "request failed", err)
}

// logDebug logs a debug message if verbose logging is enabled.
func (p *AnthropicProvider) logDebug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
