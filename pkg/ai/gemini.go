package ai

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"google.golang.org/genai"

	rigerrors "thoreinstein.com/designcheck/pkg/errors"
)

const geminiDefaultModel = "gemini-2.5-flash"

// GeminiProvider implements Provider using the Genkit SDK.
type GeminiProvider struct {
	apiKey    string
	modelName string
	maxTokens int
	logger    *slog.Logger

	initOnce sync.Once
	model    ai.Model
	initErr  error
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(apiKey, modelName string, maxTokens int, logger *slog.Logger) *GeminiProvider {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &GeminiProvider{
		apiKey:    apiKey,
		modelName: modelName,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return ProviderGemini
}

// IsAvailable checks if the provider is configured.
func (p *GeminiProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// init initializes the Genkit client and model.
func (p *GeminiProvider) init(ctx context.Context) error {
	p.initOnce.Do(func() {
		// If model is already set (e.g. by a test), skip initialization
		if p.model != nil {
			return
		}

		if p.apiKey == "" {
			p.initErr = rigerrors.NewAIError(ProviderGemini, "init", "API key not set")
			return
		}

		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: p.apiKey}))

		modelName := p.modelName
		if modelName == "" {
			modelName = geminiDefaultModel
		}
		if !strings.Contains(modelName, "/") {
			modelName = "googleai/" + modelName
		}

		p.model = googlegenai.GoogleAIModel(g, modelName)
		if p.model == nil {
			p.initErr = rigerrors.NewAIError(ProviderGemini, "init", "failed to get model: "+modelName)
			return
		}

		p.logDebug("gemini provider initialized", "model", modelName)
	})

	return p.initErr
}

// Generate sends the system prompt as a system message and the images plus
// prompt as one user message.
func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := p.init(ctx); err != nil {
		return nil, err
	}

	p.logDebug("sending generate request to gemini", "images", len(req.Images))

	resp, err := p.model.Generate(ctx, &ai.ModelRequest{
		Messages: toGenkitMessages(req),
		Config:   &genai.GenerateContentConfig{MaxOutputTokens: int32(p.maxTokens)},
	}, nil)
	if err != nil {
		return nil, rigerrors.NewAIErrorWithCause(ProviderGemini, "Generate", "genkit generate failed", err)
	}

	if resp.Message == nil {
		return nil, rigerrors.NewAIError(ProviderGemini, "Generate", "received empty response from gemini")
	}

	var content strings.Builder
	for _, part := range resp.Message.Content {
		if part.IsText() {
			content.WriteString(part.Text)
		}
	}

	res := &Response{
		Content:    content.String(),
		StopReason: string(resp.FinishReason),
	}
	if resp.Usage != nil {
		res.InputTokens = resp.Usage.InputTokens
		res.OutputTokens = resp.Usage.OutputTokens
	}

	return res, nil
}

func toGenkitMessages(req Request) []*ai.Message {
	var messages []*ai.Message
	if req.System != "" {
		messages = append(messages, &ai.Message{
			Role:    ai.RoleSystem,
			Content: []*ai.Part{ai.NewTextPart(req.System)},
		})
	}

	parts := make([]*ai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, ai.NewMediaPart(img.MediaType, img.DataURL()))
	}
	parts = append(parts, ai.NewTextPart(req.Prompt))

	return append(messages, &ai.Message{Role: ai.RoleUser, Content: parts})
}

func (p *GeminiProvider) logDebug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
