package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoreinstein.com/designcheck/pkg/compare"
	"thoreinstein.com/designcheck/pkg/config"
	"thoreinstein.com/designcheck/pkg/report"
	"thoreinstein.com/designcheck/pkg/workflow"
)

func writeEvent(t *testing.T, payload string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))
	return path
}

func TestReadEvent(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantPR      int
		wantComment int64
	}{
		{
			name:    "pull_request event",
			payload: `{"number": 42, "pull_request": {"number": 42}}`,
			wantPR:  42,
		},
		{
			name:        "comment on a pull request",
			payload:     `{"issue": {"number": 7, "pull_request": {"url": "https://api.github.com/repos/acme/web/pulls/7"}}, "comment": {"id": 99}}`,
			wantPR:      7,
			wantComment: 99,
		},
		{
			name:        "comment on a plain issue",
			payload:     `{"issue": {"number": 8}, "comment": {"id": 100}}`,
			wantPR:      0,
			wantComment: 100,
		},
		{
			name:    "push event",
			payload: `{"ref": "refs/heads/main"}`,
			wantPR:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := readEvent(writeEvent(t, tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.wantPR, ev.prNumber())
			assert.Equal(t, tt.wantComment, ev.commentID())
		})
	}
}

func TestReadEvent_Errors(t *testing.T) {
	ev, err := readEvent("")
	require.NoError(t, err)
	assert.Equal(t, 0, ev.prNumber())

	_, err = readEvent(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = readEvent(writeEvent(t, "{not json"))
	assert.Error(t, err)
}

func TestResolvePR(t *testing.T) {
	t.Setenv("GITHUB_EVENT_PATH", writeEvent(t, `{"pull_request": {"number": 12}}`))

	n, err := resolvePR(5)
	require.NoError(t, err)
	assert.Equal(t, 5, n, "flag wins over the event payload")

	n, err = resolvePR(0)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	t.Setenv("GITHUB_EVENT_PATH", "")
	_, err = resolvePR(0)
	assert.ErrorContains(t, err, "--pr")
}

func TestResolveCommentID(t *testing.T) {
	t.Setenv("GITHUB_EVENT_PATH", writeEvent(t, `{"issue": {"number": 3, "pull_request": {}}, "comment": {"id": 555}}`))

	assert.Equal(t, int64(9), resolveCommentID(9))
	assert.Equal(t, int64(555), resolveCommentID(0))

	t.Setenv("GITHUB_EVENT_PATH", "")
	assert.Equal(t, int64(0), resolveCommentID(0))
}

func TestWriteOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "ticket", "PROJ-5"))
	assert.Equal(t, "ticket=PROJ-5\n", buf.String())

	buf.Reset()
	require.NoError(t, writeOutput(&buf, "summary", "line one\nline two"))
	out := buf.String()
	assert.Regexp(t, `^summary<<ghadelimiter_[0-9a-f-]+\nline one\nline two\nghadelimiter_[0-9a-f-]+\n$`, out)
}

func TestSetOutputs(t *testing.T) {
	outputs := [][2]string{{"has_design_links", "true"}, {"ticket", "PROJ-5"}}

	t.Run("github output file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "output")
		require.NoError(t, os.WriteFile(path, []byte("existing=1\n"), 0o644))
		t.Setenv("GITHUB_OUTPUT", path)

		var stdout bytes.Buffer
		require.NoError(t, setOutputs(&stdout, outputs))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "existing=1\nhas_design_links=true\nticket=PROJ-5\n", string(data))
		assert.Empty(t, stdout.String())
	})

	t.Run("stdout outside actions", func(t *testing.T) {
		t.Setenv("GITHUB_OUTPUT", "")

		var stdout bytes.Buffer
		require.NoError(t, setOutputs(&stdout, outputs))
		assert.Equal(t, "has_design_links=true\nticket=PROJ-5\n", stdout.String())
	})
}

func TestDetectOutputs(t *testing.T) {
	outputs, err := detectOutputs(&workflow.DetectResult{
		HasDesignLinks: true,
		DesignLinks:    []string{"https://www.figma.com/design/XYZ/Page?node-id=1:2&t=abc"},
		Ticket:         "PROJ-5",
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{
		{"has_design_links", "true"},
		{"design_links", `["https://www.figma.com/design/XYZ/Page?node-id=1:2&t=abc"]`},
		{"ticket", "PROJ-5"},
	}, outputs)

	outputs, err = detectOutputs(&workflow.DetectResult{})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{
		{"has_design_links", "false"},
		{"design_links", "[]"},
		{"ticket", ""},
	}, outputs)
}

func TestParseLinks(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{"empty", "  ", nil, false},
		{"json array", `["https://a.example/1", "https://a.example/2"]`, []string{"https://a.example/1", "https://a.example/2"}, false},
		{"comma separated", "https://a.example/1, https://a.example/2,", []string{"https://a.example/1", "https://a.example/2"}, false},
		{"empty json array", "[]", nil, false},
		{"bad json", `["https://a.example/1"`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLinks(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJobURL(t *testing.T) {
	t.Setenv("GITHUB_SERVER_URL", "https://github.com/")
	t.Setenv("GITHUB_REPOSITORY", "acme/web")
	t.Setenv("GITHUB_RUN_ID", "9001")
	assert.Equal(t, "https://github.com/acme/web/actions/runs/9001", jobURL())

	t.Setenv("GITHUB_RUN_ID", "")
	assert.Empty(t, jobURL())
}

func TestSummarizeAnalysis(t *testing.T) {
	logger := newLogger(&bytes.Buffer{}, false)

	t.Run("skipped run writes the notice", func(t *testing.T) {
		summary := filepath.Join(t.TempDir(), "summary.md")
		t.Setenv("GITHUB_STEP_SUMMARY", summary)

		var out bytes.Buffer
		summarizeAnalysis(&out, logger, &workflow.AnalyzeResult{Skipped: true, Reason: "No screenshots were found."})

		assert.Contains(t, out.String(), "Nothing to compare: No screenshots were found.")
		data, err := os.ReadFile(summary)
		require.NoError(t, err)
		assert.Contains(t, string(data), "No screenshots were found.")
	})

	t.Run("completed run writes the report", func(t *testing.T) {
		summary := filepath.Join(t.TempDir(), "summary.md")
		t.Setenv("GITHUB_STEP_SUMMARY", summary)

		r := report.NewRunReport("run-1", "PROJ-5", []report.PairResult{{
			DesignURL:     "https://www.figma.com/design/XYZ/Page?node-id=1:2",
			ScreenshotURL: "https://example.com/shot.png",
			Result:        compare.Result{OverallMatch: compare.StatusPass, MatchPercentage: 96},
		}}, nil, nil)
		r.GeneratedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		var out bytes.Buffer
		summarizeAnalysis(&out, logger, &workflow.AnalyzeResult{Report: &r, Artifacts: []string{"out/designcheck-pair-1.png"}})

		assert.Contains(t, out.String(), "1 passed, 0 with warnings, 0 failed")
		assert.Contains(t, out.String(), "designcheck-pair-1.png")
		data, err := os.ReadFile(summary)
		require.NoError(t, err)
		assert.Contains(t, string(data), report.AnalysisMarker)
	})
}

func TestNewEngine_ValidatesBeforeConnecting(t *testing.T) {
	logger := newLogger(&bytes.Buffer{}, false)

	_, err := newEngine(&config.Config{}, config.ModeRequest, logger)
	assert.ErrorContains(t, err, "github.token")

	cfg := &config.Config{
		GitHub: config.GitHubConfig{Token: "gh", Repository: "acme/web"},
		AI:     config.AIConfig{Provider: "anthropic", Timeout: time.Minute},
	}
	_, err = newEngine(cfg, config.ModeDetect, logger)
	assert.ErrorContains(t, err, "ai.api_key")
}

func TestBuildDependencies(t *testing.T) {
	logger := newLogger(&bytes.Buffer{}, false)
	cfg := &config.Config{
		GitHub: config.GitHubConfig{Token: "gh", Repository: "acme/web"},
		Figma:  config.FigmaConfig{Mock: true, MaxFrames: 5},
		AI:     config.AIConfig{Provider: "ollama", OllamaEndpoint: "http://localhost:11434", Timeout: time.Minute},
	}

	t.Run("request needs only the code host", func(t *testing.T) {
		deps, err := buildDependencies(cfg, config.ModeRequest, logger)
		require.NoError(t, err)
		assert.NotNil(t, deps.GitHub)
		assert.Nil(t, deps.Collaborator)
		assert.Nil(t, deps.Designs)
	})

	t.Run("analyze with jira disabled", func(t *testing.T) {
		deps, err := buildDependencies(cfg, config.ModeAnalyze, logger)
		require.NoError(t, err)
		assert.Nil(t, deps.Jira)
		assert.NotNil(t, deps.Collaborator)
		assert.NotNil(t, deps.Designs)
		assert.NotNil(t, deps.Screenshots)
	})
}
