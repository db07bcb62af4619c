// Package matcher pairs screenshots with the design frames they implement.
//
// The result is always a partial bijection: no screenshot or design index
// appears in more than one Match, and every index in range is either matched
// or listed as unmatched.
package matcher

import (
	"context"
	"log/slog"
	"math"

	"thoreinstein.com/designcheck/pkg/ai"
	"thoreinstein.com/designcheck/pkg/imaging"
)

const (
	// DirectConfidence is used when the pairing is unambiguous.
	DirectConfidence = 100
	// FallbackConfidence is used for index-order pairing.
	FallbackConfidence = 50

	fallbackReasoning    = "Paired by upload order; automatic matching was unavailable."
	placeholderReasoning = "No reasoning provided."
	singleReasoning      = "Only one screenshot and one design."
	firstDesignReasoning = "Single screenshot paired with the first design."
)

// Match is one committed screenshot/design pairing.
type Match struct {
	ScreenshotIndex int
	DesignIndex     int
	Confidence      int
	Reasoning       string
}

// Result is the outcome of Match.
type Result struct {
	Matches              []Match
	UnmatchedScreenshots []int
	UnmatchedDesigns     []int
}

// Collaborator proposes pairings for the general case.
type Collaborator interface {
	MatchScreenshots(ctx context.Context, screenshots, designs []imaging.Image) ([]ai.RawMatch, error)
}

// Matcher applies the pairing policy.
type Matcher struct {
	collaborator Collaborator
	logger       *slog.Logger
}

// New creates a Matcher. collaborator may be nil, in which case the general
// case always falls back to index order.
func New(collaborator Collaborator, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{collaborator: collaborator, logger: logger}
}

// Match pairs screenshots with designs.
func (m *Matcher) Match(ctx context.Context, screenshots, designs []imaging.Image) Result {
	n, d := len(screenshots), len(designs)

	switch {
	case n == 1 && d == 1:
		return Result{Matches: []Match{{
			ScreenshotIndex: 0,
			DesignIndex:     0,
			Confidence:      DirectConfidence,
			Reasoning:       singleReasoning,
		}}}

	case n == 1 && d > 1:
		return complete(n, d, []Match{{
			ScreenshotIndex: 0,
			DesignIndex:     0,
			Confidence:      DirectConfidence,
			Reasoning:       firstDesignReasoning,
		}})

	case n == 0 || d == 0:
		return complete(n, d, nil)
	}

	if m.collaborator == nil {
		return Fallback(n, d)
	}

	raw, err := m.collaborator.MatchScreenshots(ctx, screenshots, designs)
	if err != nil {
		m.logger.Warn("screenshot matching failed, pairing by order", "error", err)
		return Fallback(n, d)
	}

	result := Validate(raw, n, d)
	if len(result.Matches) == 0 {
		m.logger.Warn("screenshot matching returned no usable pairs, pairing by order", "proposed", len(raw))
		return Fallback(n, d)
	}
	return result
}

// Validate keeps the proposed pairs that are in range and do not reuse an
// index. The first pair claiming an index wins.
func Validate(raw []ai.RawMatch, screenshots, designs int) Result {
	usedShots := make(map[int]bool)
	usedDesigns := make(map[int]bool)

	var matches []Match
	for _, r := range raw {
		if r.ScreenshotIndex < 0 || r.ScreenshotIndex >= screenshots {
			continue
		}
		if r.DesignIndex < 0 || r.DesignIndex >= designs {
			continue
		}
		if usedShots[r.ScreenshotIndex] || usedDesigns[r.DesignIndex] {
			continue
		}
		usedShots[r.ScreenshotIndex] = true
		usedDesigns[r.DesignIndex] = true

		reasoning := r.Reasoning
		if reasoning == "" {
			reasoning = placeholderReasoning
		}
		matches = append(matches, Match{
			ScreenshotIndex: r.ScreenshotIndex,
			DesignIndex:     r.DesignIndex,
			Confidence:      clampConfidence(r.Confidence),
			Reasoning:       reasoning,
		})
	}

	return complete(screenshots, designs, matches)
}

// Fallback pairs screenshot i with design i.
func Fallback(screenshots, designs int) Result {
	pairs := min(screenshots, designs)
	matches := make([]Match, 0, pairs)
	for i := range pairs {
		matches = append(matches, Match{
			ScreenshotIndex: i,
			DesignIndex:     i,
			Confidence:      FallbackConfidence,
			Reasoning:       fallbackReasoning,
		})
	}
	return complete(screenshots, designs, matches)
}

// complete fills the unmatched lists from matches.
func complete(screenshots, designs int, matches []Match) Result {
	usedShots := make(map[int]bool, len(matches))
	usedDesigns := make(map[int]bool, len(matches))
	for _, m := range matches {
		usedShots[m.ScreenshotIndex] = true
		usedDesigns[m.DesignIndex] = true
	}

	result := Result{Matches: matches}
	for i := range screenshots {
		if !usedShots[i] {
			result.UnmatchedScreenshots = append(result.UnmatchedScreenshots, i)
		}
	}
	for i := range designs {
		if !usedDesigns[i] {
			result.UnmatchedDesigns = append(result.UnmatchedDesigns, i)
		}
	}
	return result
}

func clampConfidence(c float64) int {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 100:
		return 100
	default:
		return int(c + 0.5)
	}
}
