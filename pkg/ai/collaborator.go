package ai

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	rigerrors "thoreinstein.com/designcheck/pkg/errors"
	"thoreinstein.com/designcheck/pkg/imaging"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 120 * time.Second

// Confidence levels reported by ExtractFigmaLinks.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// LinkExtraction is the model's answer to "which design links are in this text".
// Links are unvalidated; callers must parse them before use.
type LinkExtraction struct {
	Links      []string
	Confidence string
}

// RawMatch is one screenshot/design pairing as proposed by the model.
// Indices may be out of range and pairs may overlap.
type RawMatch struct {
	ScreenshotIndex int
	DesignIndex     int
	Confidence      float64
	Reasoning       string
}

// Collaborator runs the design-review operations against a Provider.
type Collaborator struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewCollaborator wraps provider. A non-positive timeout uses DefaultTimeout.
func NewCollaborator(provider Provider, timeout time.Duration, logger *slog.Logger) *Collaborator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collaborator{provider: provider, timeout: timeout, logger: logger}
}

// Provider returns the underlying provider.
func (c *Collaborator) Provider() Provider {
	return c.provider
}

func (c *Collaborator) generate(ctx context.Context, op string, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", rigerrors.NewAIErrorWithCause(c.provider.Name(), op, "timed out after "+c.timeout.String(), err)
		}
		return "", err
	}

	c.logger.Debug("model call complete",
		"op", op,
		"provider", c.provider.Name(),
		"duration", time.Since(start),
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens)
	return resp.Content, nil
}

// ExtractFigmaLinks asks the model for design links in ticket text. An
// unparseable answer yields no links with low confidence; only a failed
// call returns an error.
func (c *Collaborator) ExtractFigmaLinks(ctx context.Context, text string) (LinkExtraction, error) {
	if strings.TrimSpace(text) == "" {
		return LinkExtraction{Confidence: ConfidenceLow}, nil
	}

	out, err := c.generate(ctx, "ExtractFigmaLinks", Request{
		System: extractLinksSystem,
		Prompt: buildExtractLinksPrompt(text),
	})
	if err != nil {
		return LinkExtraction{Confidence: ConfidenceLow}, err
	}

	var parsed struct {
		Links      []string `json:"links"`
		Confidence string   `json:"confidence"`
	}
	if err := DecodeJSON(out, &parsed); err != nil {
		c.logger.Warn("could not parse link extraction", "error", err)
		return LinkExtraction{Confidence: ConfidenceLow}, nil
	}

	result := LinkExtraction{Confidence: normalizeConfidence(parsed.Confidence)}
	for _, link := range parsed.Links {
		if link = strings.TrimSpace(link); link != "" {
			result.Links = append(result.Links, link)
		}
	}
	return result, nil
}

func normalizeConfidence(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceMedium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// CompareScreenshot asks the model to compare a screenshot against its
// design and returns the raw answer for the comparison aggregator. The
// note is free text such as the design URL.
func (c *Collaborator) CompareScreenshot(ctx context.Context, design, screenshot imaging.Image, note string) (string, error) {
	return c.generate(ctx, "CompareScreenshot", Request{
		System: compareSystem,
		Prompt: buildComparePrompt(note),
		Images: []imaging.Image{design, screenshot},
	})
}

// MatchScreenshots asks the model to pair screenshots with designs. The
// images are sent as one sequence, screenshots first. The result is not
// validated.
func (c *Collaborator) MatchScreenshots(ctx context.Context, screenshots, designs []imaging.Image) ([]RawMatch, error) {
	images := make([]imaging.Image, 0, len(screenshots)+len(designs))
	images = append(images, screenshots...)
	images = append(images, designs...)

	out, err := c.generate(ctx, "MatchScreenshots", Request{
		System: matchSystem,
		Prompt: buildMatchPrompt(len(screenshots), len(designs)),
		Images: images,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Matches []struct {
			ScreenshotIndex *float64 `json:"screenshotIndex"`
			DesignIndex     *float64 `json:"designIndex"`
			Confidence      float64  `json:"confidence"`
			Reasoning       string   `json:"reasoning"`
		} `json:"matches"`
	}
	if err := DecodeJSON(out, &parsed); err != nil {
		return nil, rigerrors.NewAIErrorWithCause(c.provider.Name(), "MatchScreenshots", "unparseable response", err)
	}

	matches := make([]RawMatch, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		matches = append(matches, RawMatch{
			ScreenshotIndex: toIndex(m.ScreenshotIndex),
			DesignIndex:     toIndex(m.DesignIndex),
			Confidence:      m.Confidence,
			Reasoning:       strings.TrimSpace(m.Reasoning),
		})
	}
	return matches, nil
}

// toIndex converts a JSON number to an index; missing and fractional
// values become -1.
func toIndex(p *float64) int {
	if p == nil {
		return -1
	}
	f := *p
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return -1
	}
	return int(f)
}
