// Package compare turns model comparisons of screenshot/design pairs into
// scored, severity-ranked results.
package compare

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"thoreinstein.com/designcheck/pkg/imaging"
)

// DefaultConcurrency bounds CompareAll when no limit is configured.
const DefaultConcurrency = 3

// Comparer produces a raw comparison answer for one pair.
type Comparer interface {
	CompareScreenshot(ctx context.Context, design, screenshot imaging.Image, note string) (string, error)
}

// Pair is one screenshot/design pair to compare.
type Pair struct {
	Design     imaging.Image
	Screenshot imaging.Image
	// Note is passed to the model as context, typically the design URL.
	Note string
}

// Aggregator compares pairs and scores the results.
type Aggregator struct {
	comparer    Comparer
	concurrency int
	logger      *slog.Logger
}

// NewAggregator creates an Aggregator running at most concurrency
// comparisons at once.
func NewAggregator(comparer Comparer, concurrency int, logger *slog.Logger) *Aggregator {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{comparer: comparer, concurrency: concurrency, logger: logger}
}

// Compare runs one comparison. It never fails: a failed call or an
// unparseable answer yields the safe default result.
func (a *Aggregator) Compare(ctx context.Context, design, screenshot imaging.Image, note string) Result {
	raw, err := a.comparer.CompareScreenshot(ctx, design, screenshot, note)
	if err != nil {
		a.logger.Warn("comparison failed", "design", design.SourceURL, "screenshot", screenshot.SourceURL, "error", err)
		return Unavailable("Comparison failed: " + err.Error())
	}

	result := Parse(raw)
	if result.Detail == nil {
		a.logger.Warn("comparison response could not be parsed", "design", design.SourceURL, "screenshot", screenshot.SourceURL)
	}

	a.logger.Debug("comparison complete",
		"design", design.SourceURL,
		"overall", result.OverallMatch,
		"match_percentage", result.MatchPercentage,
		"issues", len(result.Issues))
	return result
}

// CompareAll compares every pair with bounded parallelism. Results are in
// input order.
func (a *Aggregator) CompareAll(ctx context.Context, pairs []Pair) []Result {
	results := make([]Result, len(pairs))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, p := range pairs {
		g.Go(func() error {
			results[i] = a.Compare(ctx, p.Design, p.Screenshot, p.Note)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Overall reduces per-pair verdicts: any fail fails, else any warning warns.
// An empty set passes.
func Overall(results []Result) Status {
	status := StatusPass
	for _, r := range results {
		switch r.OverallMatch {
		case StatusFail:
			return StatusFail
		case StatusWarning:
			status = StatusWarning
		}
	}
	return status
}
