package workflow

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"thoreinstein.com/designcheck/pkg/compare"
	rigerrors "thoreinstein.com/designcheck/pkg/errors"
)

// ManifestFile is the name of the run manifest inside the artifact directory.
const ManifestFile = "designcheck-run.json"

// Manifest records what an analysis run did, for upload as a workflow
// artifact alongside the annotated screenshots.
type Manifest struct {
	RunID          string         `json:"run_id"`
	PRNumber       int            `json:"pr_number"`
	HeadSHA        string         `json:"head_sha,omitempty"`
	Ticket         string         `json:"ticket,omitempty"`
	DesignLinks    []string       `json:"design_links,omitempty"`
	Screenshots    []string       `json:"screenshots,omitempty"`
	CompletedSteps []Step         `json:"completed_steps"`
	FailedStep     Step           `json:"failed_step,omitempty"`
	OverallStatus  compare.Status `json:"overall_status,omitempty"`
	Pairs          []ManifestPair `json:"pairs,omitempty"`
	Artifacts      []string       `json:"artifacts,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ManifestPair is one compared pair.
type ManifestPair struct {
	DesignURL       string         `json:"design_url"`
	ScreenshotURL   string         `json:"screenshot_url"`
	Confidence      int            `json:"confidence"`
	OverallMatch    compare.Status `json:"overall_match"`
	MatchPercentage int            `json:"match_percentage"`
	Issues          int            `json:"issues"`
	AnnotatedFile   string         `json:"annotated_file,omitempty"`
}

func manifestPath(dir string) string {
	return filepath.Join(dir, ManifestFile)
}

// SaveManifest writes m to dir, creating dir if needed.
func SaveManifest(dir string, m *Manifest) error {
	if dir == "" {
		return rigerrors.NewWorkflowError("save_manifest", "artifact directory is required")
	}
	if m == nil {
		return rigerrors.NewWorkflowError("save_manifest", "manifest is nil")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return rigerrors.Wrapf(err, "failed to create artifact directory")
	}

	m.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return rigerrors.Wrapf(err, "failed to marshal manifest")
	}

	if err := os.WriteFile(manifestPath(dir), data, 0o644); err != nil {
		return rigerrors.Wrapf(err, "failed to write manifest")
	}

	return nil
}

// LoadManifest reads the manifest from dir.
//
// Returns nil, nil if no manifest exists.
func LoadManifest(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, rigerrors.NewWorkflowError("load_manifest", "artifact directory is required")
	}

	data, err := os.ReadFile(manifestPath(dir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, rigerrors.Wrapf(err, "failed to read manifest")
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, rigerrors.Wrapf(err, "failed to parse manifest")
	}

	return &m, nil
}
