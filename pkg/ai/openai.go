package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	rigerrors "thoreinstein.com/designcheck/pkg/errors"
)

// OpenAI-compatible endpoints.
const (
	groqAPIURL         = "https://api.groq.com/openai/v1/chat/completions"
	groqDefaultModel   = "meta-llama/llama-4-scout-17b-16e-instruct"
	openAIAPIURL       = "https://api.openai.com/v1/chat/completions"
	openAIDefaultModel = "gpt-4o"
)

// OpenAICompatibleProvider implements Provider for chat-completions APIs
// that follow the OpenAI wire format (Groq, OpenAI).
type OpenAICompatibleProvider struct {
	name      string
	endpoint  string
	apiKey    string
	model     string
	maxTokens int
	logger    *slog.Logger
	client    *http.Client
}

// NewGroqProvider creates a provider for the Groq API.
func NewGroqProvider(apiKey, model, endpoint string, maxTokens int, logger *slog.Logger) *OpenAICompatibleProvider {
	return newOpenAICompatible(ProviderGroq, apiKey, model, endpoint, maxTokens, logger)
}

// NewOpenAIProvider creates a provider for the OpenAI API.
func NewOpenAIProvider(apiKey, model, endpoint string, maxTokens int, logger *slog.Logger) *OpenAICompatibleProvider {
	return newOpenAICompatible(ProviderOpenAI, apiKey, model, endpoint, maxTokens, logger)
}

func newOpenAICompatible(name, apiKey, model, endpoint string, maxTokens int, logger *slog.Logger) *OpenAICompatibleProvider {
	if endpoint == "" {
		endpoint = openAIAPIURL
		if name == ProviderGroq {
			endpoint = groqAPIURL
		}
	}
	if model == "" {
		model = openAIDefaultModel
		if name == ProviderGroq {
			model = groqDefaultModel
		}
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &OpenAICompatibleProvider{
		name:      name,
		endpoint:  endpoint,
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
		client:    &http.Client{},
	}
}

// Name returns the provider name.
func (p *OpenAICompatibleProvider) Name() string {
	return p.name
}

// IsAvailable checks if the provider is configured and ready.
func (p *OpenAICompatibleProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// openAIRequest represents an OpenAI-compatible API request.
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

// openAIMessage carries either a plain string or a list of content parts.
type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

// openAIResponse represents an OpenAI-compatible API response.
type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// openAIError represents an OpenAI-compatible API error response.
type openAIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

// Generate performs a single chat completion with image_url content parts.
func (p *OpenAICompatibleProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if !p.IsAvailable() {
		return nil, rigerrors.NewAIError(p.name, "Generate", "provider not configured")
	}

	reqBody := openAIRequest{
		Model:     p.model,
		Messages:  toOpenAIMessages(req),
		MaxTokens: p.maxTokens,
	}

	p.logDebug("sending generate request", "provider", p.name, "model", p.model, "images", len(req.Images))

	respBody, err := p.doRequest(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	var resp openAIResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, rigerrors.NewAIErrorWithCause(p.name, "Generate",
			"failed to parse response", err)
	}

	if len(resp.Choices) == 0 {
		return nil, rigerrors.NewAIError(p.name, "Generate", "no choices in response")
	}

	choice := resp.Choices[0]

	p.logDebug("received response",
		"finish_reason", choice.FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return &Response{
		Content:      choice.Message.Content,
		StopReason:   choice.FinishReason,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func toOpenAIMessages(req Request) []openAIMessage {
	var messages []openAIMessage
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}

	if len(req.Images) == 0 {
		return append(messages, openAIMessage{Role: "user", Content: req.Prompt})
	}

	parts := make([]openAIContentPart, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, openAIContentPart{
			Type:     "image_url",
			ImageURL: &openAIImageURL{URL: img.DataURL()},
		})
	}
	parts = append(parts, openAIContentPart{Type: "text", Text: req.Prompt})

	return append(messages, openAIMessage{Role: "user", Content: parts})
}

func (p *OpenAICompatibleProvider) doRequest(ctx context.Context, reqBody openAIRequest) ([]byte, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, rigerrors.NewAIErrorWithCause(p.name, "Generate",
			"failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, rigerrors.NewAIErrorWithCause(p.name, "Generate",
			"failed to create request", err)
	}

	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, rigerrors.NewAIErrorWithCause(p.name, "Generate",
			"request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, p.handleErrorResponse(resp, "Generate")
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rigerrors.NewAIErrorWithCause(p.name, "Generate",
			"failed to read response", err)
	}

	return respBody, nil
}

func (p *OpenAICompatibleProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
}

// handleErrorResponse parses error responses from the API.
func (p *OpenAICompatibleProvider) handleErrorResponse(resp *http.Response, operation string) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr openAIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return rigerrors.NewAIErrorWithStatus(p.name, operation,
			resp.StatusCode, apiErr.Error.Message)
	}

	return rigerrors.NewAIErrorWithStatus(p.name, operation,
		resp.StatusCode, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
}

func (p *OpenAICompatibleProvider) logDebug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
