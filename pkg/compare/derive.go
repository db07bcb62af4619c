package compare

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"thoreinstein.com/designcheck/pkg/ai"
)

// Verdict thresholds.
const (
	// FailBelowPercent fails any comparison under this match percentage.
	FailBelowPercent = 70
	// PassFromPercent is the lowest match percentage that can pass.
	PassFromPercent = 90
	// MajorIssueThreshold is the number of major issues tolerated before failing.
	MajorIssueThreshold = 2
)

const manualReview = "Automated comparison was not available for this screenshot; review it against the design manually."

// referenceFields are the keys that make an object a comparison answer.
var referenceFields = []string{"totalReferenceComponents", "componentsFound", "components"}

// Parse turns a raw model answer into a Result. Output that cannot be
// parsed, or an object that says nothing about the reference components,
// yields the safe default instead of an error.
func Parse(raw string) Result {
	var detail Detail
	if err := ai.DecodeJSON(raw, &detail); err != nil {
		return Unavailable("Could not parse the comparison response.")
	}

	var keys map[string]json.RawMessage
	if err := ai.DecodeJSON(raw, &keys); err != nil || !hasAnyKey(keys, referenceFields) {
		return Unavailable("The comparison response did not describe the design's components.")
	}
	return Derive(&detail)
}

func hasAnyKey(m map[string]json.RawMessage, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// Unavailable is the safe default used when no comparison could be made.
func Unavailable(summary string) Result {
	return Result{
		OverallMatch:    StatusWarning,
		MatchPercentage: 0,
		Summary:         summary,
		Recommendations: []string{manualReview},
	}
}

// Derive computes every derived field of a Result from detail.
func Derive(detail *Detail) Result {
	issues, counts := flatten(detail)
	pct := matchPercentage(detail)

	return Result{
		OverallMatch:    verdict(pct, counts),
		MatchPercentage: pct,
		Issues:          issues,
		Summary:         strings.TrimSpace(detail.Summary),
		Recommendations: recommendations(counts),
		Counts:          counts,
		Detail:          detail,
	}
}

func flatten(d *Detail) ([]Issue, Counts) {
	var issues []Issue
	var counts Counts

	add := func(sev Severity, cat Category, desc, loc string, box *RawBox) {
		issues = append(issues, Issue{
			Severity:    sev,
			Category:    cat,
			Description: strings.TrimSpace(desc),
			Location:    strings.TrimSpace(loc),
			BoundingBox: box.Box(),
		})
		switch sev {
		case SeverityCritical:
			counts.Critical++
		case SeverityMajor:
			counts.Major++
		default:
			counts.Minor++
		}
	}

	for _, c := range d.Components {
		if c.Found {
			continue
		}
		counts.MissingComponents++
		add(SeverityCritical, CategoryMissingElement, "Missing component: "+c.Name, c.Location, c.BoundingBox)
	}
	for _, f := range d.GrammarIssues {
		counts.Grammar++
		add(SeverityMajor, CategoryWrongContent, f.Description, f.Location, f.BoundingBox)
	}
	for _, f := range d.ColorIssues {
		counts.Color++
		add(SeverityMajor, CategoryWrongStyle, f.Description, f.Location, f.BoundingBox)
	}
	for _, f := range d.MissingFields {
		counts.MissingFields++
		add(SeverityMajor, CategoryMissingElement, f.Description, f.Location, f.BoundingBox)
	}
	for _, f := range d.TypographyIssues {
		counts.Typography++
		add(SeverityMinor, CategoryWrongStyle, f.Description, f.Location, f.BoundingBox)
	}
	for _, f := range d.ExtraComponents {
		counts.ExtraComponents++
		add(parseSeverity(f.Severity), CategoryExtraElement, f.Description, f.Location, f.BoundingBox)
	}
	for _, f := range d.OverlappingElements {
		counts.Overlaps++
		add(parseSeverity(f.Severity), CategoryWrongPosition, f.Description, f.Location, f.BoundingBox)
	}

	return issues, counts
}

// matchPercentage is round(100*found/max(1,total)) clamped to [0,100]. When
// the totals are absent they are counted from the component list.
func matchPercentage(d *Detail) int {
	total, found := d.TotalReferenceComponents, d.ComponentsFound
	if total <= 0 && len(d.Components) > 0 {
		total = float64(len(d.Components))
		found = 0
		for _, c := range d.Components {
			if c.Found {
				found++
			}
		}
	}

	pct := math.Round(100 * found / math.Max(1, total))
	switch {
	case math.IsNaN(pct), pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return int(pct)
	}
}

func verdict(pct int, c Counts) Status {
	switch {
	case pct < FailBelowPercent, c.Critical > 0, c.Major > MajorIssueThreshold:
		return StatusFail
	case pct < PassFromPercent, c.Major > 0:
		return StatusWarning
	default:
		return StatusPass
	}
}

func recommendations(c Counts) []string {
	var recs []string
	add := func(n int, singular, plural string) {
		switch {
		case n == 1:
			recs = append(recs, singular)
		case n > 1:
			recs = append(recs, fmt.Sprintf(plural, n))
		}
	}

	add(c.MissingComponents, "Add the 1 missing component from the design.", "Add the %d missing components from the design.")
	add(c.ExtraComponents, "Remove or justify the 1 component not present in the design.", "Remove or justify the %d components not present in the design.")
	add(c.Grammar, "Fix 1 text or grammar issue.", "Fix %d text or grammar issues.")
	add(c.Color, "Correct 1 color mismatch.", "Correct %d color mismatches.")
	add(c.MissingFields, "Add the 1 missing form field.", "Add the %d missing form fields.")
	add(c.Typography, "Adjust 1 typography difference.", "Adjust %d typography differences.")
	add(c.Overlaps, "Resolve 1 overlapping element.", "Resolve %d overlapping elements.")
	return recs
}
