package compare

import (
	"encoding/json"
	"math"
	"strings"
)

// Severity of a comparison issue.
type Severity string

// Severity levels, most severe first.
const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Category of a comparison issue.
type Category string

// Issue categories.
const (
	CategoryMissingElement Category = "missing_element"
	CategoryWrongStyle     Category = "wrong_style"
	CategoryWrongPosition  Category = "wrong_position"
	CategoryWrongContent   Category = "wrong_content"
	CategoryExtraElement   Category = "extra_element"
)

// Status is the overall verdict of one comparison.
type Status string

// Statuses ordered fail < warning < pass.
const (
	StatusFail    Status = "fail"
	StatusWarning Status = "warning"
	StatusPass    Status = "pass"
)

// BoundingBox locates an issue in percentage space. Every component is in
// [0,100]; Width and Height may be zero when only a point is known.
type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Issue is one flattened finding.
type Issue struct {
	Severity    Severity
	Category    Category
	Description string
	Location    string
	BoundingBox *BoundingBox
}

// Counts rolls issues up per bucket and per severity.
type Counts struct {
	MissingComponents int
	ExtraComponents   int
	Grammar           int
	Color             int
	MissingFields     int
	Typography        int
	Overlaps          int

	Critical int
	Major    int
	Minor    int
}

// Total returns the number of issues.
func (c Counts) Total() int {
	return c.Critical + c.Major + c.Minor
}

// Result is the outcome of comparing one screenshot with one design.
// OverallMatch, MatchPercentage, Issues, Counts and Recommendations are all
// derived from Detail.
type Result struct {
	OverallMatch    Status
	MatchPercentage int
	Issues          []Issue
	Summary         string
	Recommendations []string
	Counts          Counts
	Detail          *Detail
}

// Detail is the per-component report returned by the model.
type Detail struct {
	TotalReferenceComponents float64     `json:"totalReferenceComponents"`
	ComponentsFound          float64     `json:"componentsFound"`
	Components               []Component `json:"components"`
	GrammarIssues            []Finding   `json:"grammarIssues"`
	ColorIssues              []Finding   `json:"colorIssues"`
	MissingFields            []Finding   `json:"missingFields"`
	TypographyIssues         []Finding   `json:"typographyIssues"`
	ExtraComponents          []Finding   `json:"extraComponents"`
	OverlappingElements      []Finding   `json:"overlappingElements"`
	Summary                  string      `json:"summary"`
}

// Component is one reference component and whether it was found.
type Component struct {
	Name        string  `json:"name"`
	Found       bool    `json:"found"`
	Location    string  `json:"location"`
	BoundingBox *RawBox `json:"boundingBox"`
}

// Finding is one reported problem. Models sometimes answer with a bare
// string instead of an object; that is accepted as the description.
type Finding struct {
	Description string  `json:"description"`
	Location    string  `json:"location"`
	Severity    string  `json:"severity"`
	BoundingBox *RawBox `json:"boundingBox"`
}

// UnmarshalJSON accepts either a string or an object.
func (f *Finding) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = Finding{Description: s}
		return nil
	}

	type plain Finding
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = Finding(p)
	return nil
}

// RawBox is a bounding box as reported, before validation.
type RawBox struct {
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

// Box validates and clamps a raw box. A box without both x and y is unusable.
func (r *RawBox) Box() *BoundingBox {
	if r == nil || r.X == nil || r.Y == nil {
		return nil
	}
	return &BoundingBox{
		X:      clampPercent(*r.X),
		Y:      clampPercent(*r.Y),
		Width:  clampPercent(deref(r.Width)),
		Height: clampPercent(deref(r.Height)),
	}
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func clampPercent(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 100:
		return 100
	default:
		return f
	}
}

// parseSeverity maps a reported severity, defaulting to minor.
func parseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityMajor:
		return SeverityMajor
	default:
		return SeverityMinor
	}
}
