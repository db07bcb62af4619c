package ai

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"google.golang.org/genai"

	rigerrors "thoreinstein.com/designcheck/pkg/errors"
)

const (
	vertexDefaultModel    = "gemini-2.5-pro"
	vertexDefaultLocation = "us-central1"
	credentialsEnv        = "GOOGLE_APPLICATION_CREDENTIALS"
)

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// VertexOptions configures a VertexProvider.
type VertexOptions struct {
	Project         string
	Location        string
	Model           string
	CredentialsFile string
	MaxTokens       int
}

// VertexProvider implements Provider for Gemini models on Vertex AI.
type VertexProvider struct {
	opts   VertexOptions
	logger *slog.Logger

	initOnce sync.Once
	models   contentGenerator
	initErr  error
}

// NewVertexProvider creates a new Vertex AI provider. The client is built
// lazily on first use.
func NewVertexProvider(opts VertexOptions, logger *slog.Logger) *VertexProvider {
	if opts.Location == "" {
		opts.Location = vertexDefaultLocation
	}
	if opts.Model == "" {
		opts.Model = vertexDefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	return &VertexProvider{opts: opts, logger: logger}
}

// Name returns the provider name.
func (p *VertexProvider) Name() string {
	return ProviderVertex
}

// IsAvailable checks if the provider is configured.
func (p *VertexProvider) IsAvailable() bool {
	return p.opts.Project != ""
}

func (p *VertexProvider) init(ctx context.Context) error {
	p.initOnce.Do(func() {
		if p.models != nil {
			return
		}
		if p.opts.Project == "" {
			p.initErr = rigerrors.NewAIError(ProviderVertex, "init", "project not set")
			return
		}

		var client *genai.Client
		err := withCredentialsFile(p.opts.CredentialsFile, func() error {
			var err error
			client, err = genai.NewClient(ctx, &genai.ClientConfig{
				Backend:  genai.BackendVertexAI,
				Project:  p.opts.Project,
				Location: p.opts.Location,
			})
			return err
		})
		if err != nil {
			p.initErr = rigerrors.NewAIErrorWithCause(ProviderVertex, "init", "failed to create client", err)
			return
		}

		p.models = client.Models
		p.logDebug("vertex provider initialized", "project", p.opts.Project, "location", p.opts.Location, "model", p.opts.Model)
	})
	return p.initErr
}

// withCredentialsFile points application default credentials at path for
// the duration of fn and restores the previous value afterwards. The
// client reads credentials only while it is being constructed.
func withCredentialsFile(path string, fn func() error) error {
	if path == "" {
		return fn()
	}

	prev, had := os.LookupEnv(credentialsEnv)
	if err := os.Setenv(credentialsEnv, path); err != nil {
		return err
	}
	defer func() {
		if had {
			_ = os.Setenv(credentialsEnv, prev)
		} else {
			_ = os.Unsetenv(credentialsEnv)
		}
	}()

	return fn()
}

// Generate sends images followed by the prompt in one user turn.
func (p *VertexProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := p.init(ctx); err != nil {
		return nil, err
	}

	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MediaType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	cfg := &genai.GenerateContentConfig{MaxOutputTokens: int32(p.opts.MaxTokens)}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	p.logDebug("sending generate request to vertex", "model", p.opts.Model, "images", len(req.Images))

	resp, err := p.models.GenerateContent(ctx, p.opts.Model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		var apiErr genai.APIError
		if rigerrors.As(err, &apiErr) {
			aiErr := rigerrors.NewAIErrorWithStatus(ProviderVertex, "Generate", apiErr.Code, apiErr.Message)
			aiErr.Cause = err
			return nil, aiErr
		}
		return nil, rigerrors.NewAIErrorWithCause(ProviderVertex, "Generate", "generate content failed", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, rigerrors.NewAIError(ProviderVertex, "Generate", "received empty response from vertex")
	}

	res := &Response{Content: text}
	if len(resp.Candidates) > 0 {
		res.StopReason = string(resp.Candidates[0].FinishReason)
	}
	if resp.UsageMetadata != nil {
		res.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		res.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return res, nil
}

func (p *VertexProvider) logDebug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
