package ai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	rigerrors "thoreinstein.com/designcheck/pkg/errors"
	"thoreinstein.com/designcheck/pkg/imaging"
)

type fakeGenerator struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(text, genai.RoleModel),
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     3,
			CandidatesTokenCount: 4,
		},
	}
}

func TestVertexProvider_Defaults(t *testing.T) {
	p := NewVertexProvider(VertexOptions{Project: "proj"}, nil)
	assert.Equal(t, "us-central1", p.opts.Location)
	assert.Equal(t, vertexDefaultModel, p.opts.Model)
	assert.True(t, p.IsAvailable())
	assert.False(t, NewVertexProvider(VertexOptions{}, nil).IsAvailable())
}

func TestVertexProvider_Generate(t *testing.T) {
	fake := &fakeGenerator{resp: textResponse(`{"ok":true}`)}
	p := NewVertexProvider(VertexOptions{Project: "proj", Model: "gemini-x"}, nil)
	p.models = fake

	img := imaging.Placeholder(4, 4, "")
	resp, err := p.Generate(context.Background(), Request{System: "sys", Prompt: "compare", Images: []imaging.Image{img}})
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, resp.Content)
	assert.Equal(t, 3, resp.InputTokens)
	assert.Equal(t, 4, resp.OutputTokens)

	assert.Equal(t, "gemini-x", fake.model)
	require.Len(t, fake.contents, 1)
	parts := fake.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/png", parts[0].InlineData.MIMEType)
	assert.Equal(t, img.Data, parts[0].InlineData.Data)
	assert.Equal(t, "compare", parts[1].Text)
	require.NotNil(t, fake.config.SystemInstruction)
	assert.Equal(t, "sys", fake.config.SystemInstruction.Parts[0].Text)
}

func TestVertexProvider_GenerateAPIError(t *testing.T) {
	fake := &fakeGenerator{err: genai.APIError{Code: 429, Message: "quota"}}
	p := NewVertexProvider(VertexOptions{Project: "proj"}, nil)
	p.models = fake

	_, err := p.Generate(context.Background(), Request{Prompt: "x"})

	var aiErr *rigerrors.AIError
	require.True(t, rigerrors.As(err, &aiErr))
	assert.Equal(t, 429, aiErr.StatusCode)
	assert.True(t, aiErr.Retryable)
}

func TestWithCredentialsFile_Restores(t *testing.T) {
	t.Setenv(credentialsEnv, "original.json")

	var seen string
	err := withCredentialsFile("scoped.json", func() error {
		seen = os.Getenv(credentialsEnv)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "scoped.json", seen)
	assert.Equal(t, "original.json", os.Getenv(credentialsEnv))
}

func TestWithCredentialsFile_UnsetsWhenPreviouslyAbsent(t *testing.T) {
	t.Setenv(credentialsEnv, "")
	require.NoError(t, os.Unsetenv(credentialsEnv))

	_ = withCredentialsFile("scoped.json", func() error { return nil })

	_, had := os.LookupEnv(credentialsEnv)
	assert.False(t, had)
}
