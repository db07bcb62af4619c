package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoreinstein.com/designcheck/pkg/ai"
	"thoreinstein.com/designcheck/pkg/compare"
	"thoreinstein.com/designcheck/pkg/config"
	rigerrors "thoreinstein.com/designcheck/pkg/errors"
	"thoreinstein.com/designcheck/pkg/github"
	"thoreinstein.com/designcheck/pkg/imaging"
	"thoreinstein.com/designcheck/pkg/jira"
	"thoreinstein.com/designcheck/pkg/report"
)

// mockGitHubClient implements github.Client for testing.
type mockGitHubClient struct {
	pr       *github.PRInfo
	prError  error
	comments []github.Comment
	statuses []github.Status
	nextID   int64
}

func (m *mockGitHubClient) GetPR(_ context.Context, _ int) (*github.PRInfo, error) {
	if m.prError != nil {
		return nil, m.prError
	}
	return m.pr, nil
}

func (m *mockGitHubClient) ListComments(_ context.Context, _ int) ([]github.Comment, error) {
	return append([]github.Comment(nil), m.comments...), nil
}

func (m *mockGitHubClient) CreateComment(_ context.Context, _ int, body string) (*github.Comment, error) {
	m.nextID++
	c := github.Comment{ID: 1000 + m.nextID, Body: body, IsBot: true}
	m.comments = append(m.comments, c)
	return &c, nil
}

func (m *mockGitHubClient) UpdateComment(_ context.Context, id int64, body string) (*github.Comment, error) {
	for i := range m.comments {
		if m.comments[i].ID == id {
			m.comments[i].Body = body
			return &m.comments[i], nil
		}
	}
	return nil, errors.New("no such comment")
}

func (m *mockGitHubClient) CreateStatus(_ context.Context, _ string, s github.Status) error {
	m.statuses = append(m.statuses, s)
	return nil
}

func (m *mockGitHubClient) botComments(marker string) []github.Comment {
	var out []github.Comment
	for _, c := range m.comments {
		if c.HasMarker(marker) {
			out = append(out, c)
		}
	}
	return out
}

// mockJiraClient implements jira.JiraClient for testing.
type mockJiraClient struct {
	tickets  map[string]string
	comments map[string]string
}

func (m *mockJiraClient) GetTicketContent(_ context.Context, key string) (*jira.TicketContent, error) {
	text, ok := m.tickets[key]
	if !ok {
		return nil, rigerrors.NewJiraErrorWithStatus("GetTicketContent", key, 404, "not found")
	}
	return &jira.TicketContent{Key: key, Text: text}, nil
}

func (m *mockJiraClient) AddComment(_ context.Context, key, text string) error {
	if m.comments == nil {
		m.comments = map[string]string{}
	}
	m.comments[key] = text
	return nil
}

type mockCollaborator struct {
	links      []string
	extractErr error
	compare    string
	extracted  []string
	compares   atomic.Int32
	matches    atomic.Int32
}

func (m *mockCollaborator) ExtractFigmaLinks(_ context.Context, text string) (ai.LinkExtraction, error) {
	m.extracted = append(m.extracted, text)
	if m.extractErr != nil {
		return ai.LinkExtraction{Confidence: ai.ConfidenceLow}, m.extractErr
	}
	return ai.LinkExtraction{Links: m.links, Confidence: ai.ConfidenceHigh}, nil
}

func (m *mockCollaborator) MatchScreenshots(_ context.Context, _, _ []imaging.Image) ([]ai.RawMatch, error) {
	m.matches.Add(1)
	return nil, errors.New("not expected")
}

func (m *mockCollaborator) CompareScreenshot(_ context.Context, _, _ imaging.Image, _ string) (string, error) {
	m.compares.Add(1)
	return m.compare, nil
}

type mockResolver struct {
	images map[string][]imaging.Image
}

func (m *mockResolver) ResolveDesignURL(_ context.Context, url string) ([]imaging.Image, error) {
	images, ok := m.images[url]
	if !ok {
		return nil, rigerrors.NewFigmaErrorWithStatus("Resolve", "XYZ", 403, "forbidden")
	}
	return images, nil
}

type mockDownloader struct {
	failing map[string]bool
}

func (m *mockDownloader) DownloadAll(_ context.Context, urls []string) ([]imaging.Image, []error) {
	var images []imaging.Image
	var errs []error
	for _, u := range urls {
		if m.failing[u] {
			errs = append(errs, errors.New("HTTP 404"))
			continue
		}
		img := imaging.Placeholder(400, 300, "screenshot")
		img.SourceURL = u
		images = append(images, img)
	}
	return images, errs
}

const (
	ticketURL  = "https://acme.atlassian.net/browse/PROJ-5"
	designLink = "https://design.example/design/XYZ/Page?node-id=1:2"
	shotURL    = "https://github.com/user-attachments/assets/0f1e2d3c-aaaa-bbbb-cccc-111122223333"
)

func testConfig(artifactDir string) *config.Config {
	return &config.Config{
		Jira:  config.JiraConfig{Enabled: true, Comment: true},
		Figma: config.FigmaConfig{Hosts: []string{"design.example"}},
		Analysis: config.AnalysisConfig{
			Concurrency:   2,
			Annotate:      true,
			ArtifactDir:   artifactDir,
			TriggerPhrase: "/design-check",
			StatusContext: "designcheck/figma",
		},
	}
}

type fixture struct {
	github *mockGitHubClient
	jira   *mockJiraClient
	ai     *mockCollaborator
	engine *Engine
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		github: &mockGitHubClient{pr: &github.PRInfo{
			Number:  7,
			Body:    "Implements [PROJ-5](" + ticketURL + ").\n\nAlso see " + ticketURL,
			HeadSHA: "abc123",
			URL:     "https://github.com/acme/web/pull/7",
		}},
		jira: &mockJiraClient{tickets: map[string]string{
			"PROJ-5": "Summary: Checkout\n\nDesign: https://design.example/design/XYZ/Page?node-id=1-2&t=abc",
		}},
		ai: &mockCollaborator{
			links: []string{
				"https://design.example/design/XYZ/Page?node-id=1-2&t=abc",
				designLink,
				"https://example.com/not-a-design",
			},
			compare: `{"totalReferenceComponents": 10, "componentsFound": 10,
				"colorIssues": [{"description": "Wrong blue", "boundingBox": {"x": 10, "y": 10, "width": 50, "height": 50}}],
				"summary": "Close to the design."}`,
		},
		dir: t.TempDir(),
	}

	f.engine = NewEngine(Dependencies{
		GitHub:       f.github,
		Jira:         f.jira,
		Designs:      &mockResolver{images: map[string][]imaging.Image{designLink: {imaging.Placeholder(400, 300, "design")}}},
		Collaborator: f.ai,
		Screenshots:  &mockDownloader{},
	}, testConfig(f.dir), nil)

	return f
}

func TestDetect_TicketToDesignLink(t *testing.T) {
	f := newFixture(t)

	result, err := f.engine.Detect(context.Background(), 7)
	require.NoError(t, err)

	assert.True(t, result.HasDesignLinks)
	assert.Equal(t, []string{designLink}, result.DesignLinks)
	assert.Equal(t, "PROJ-5", result.Ticket)
	assert.Equal(t, []string{"PROJ-5"}, result.Tickets)

	require.Len(t, f.ai.extracted, 1)
	assert.Contains(t, f.ai.extracted[0], "node-id=1-2")

	require.Len(t, f.github.statuses, 1)
	assert.Equal(t, github.StatusPending, f.github.statuses[0].State)
	assert.Equal(t, "designcheck/figma", f.github.statuses[0].Context)
}

func TestDetect_UnreadableTicketIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.github.pr.Body = "https://acme.atlassian.net/browse/GONE-1 and " + ticketURL

	result, err := f.engine.Detect(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"GONE-1", "PROJ-5"}, result.Tickets)
	assert.Equal(t, "PROJ-5", result.Ticket)
	assert.True(t, result.HasDesignLinks)
}

func TestDetect_ModelFailureScansTicketText(t *testing.T) {
	f := newFixture(t)
	f.ai.extractErr = rigerrors.NewAIErrorWithStatus("anthropic", "Generate", 529, "overloaded")

	result, err := f.engine.Detect(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []string{designLink}, result.DesignLinks)
}

func TestDetect_NoTickets(t *testing.T) {
	f := newFixture(t)
	f.github.pr.Body = "Small refactor, no ticket."

	result, err := f.engine.Detect(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, result.HasDesignLinks)
	assert.Empty(t, f.ai.extracted)
	assert.Empty(t, f.github.statuses)
}

func TestDetect_PRFailure(t *testing.T) {
	f := newFixture(t)
	f.github.prError = rigerrors.NewGitHubErrorWithStatus("GetPR", 404, "Not Found")

	_, err := f.engine.Detect(context.Background(), 7)
	var wfErr *rigerrors.WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, "detect", wfErr.Step)
}

func TestRequest(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.Request(context.Background(), 7, []string{designLink}))
	require.NoError(t, f.engine.Request(context.Background(), 7, []string{designLink}))

	requests := f.github.botComments(report.RequestMarker)
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].Body, designLink)
	assert.Contains(t, requests[0].Body, "/design-check")

	assert.Error(t, f.engine.Request(context.Background(), 7, nil))
}

func TestAnalyze_FullRun(t *testing.T) {
	f := newFixture(t)
	f.github.comments = []github.Comment{
		{ID: 1, Body: report.RenderRequest([]string{designLink}), IsBot: true},
		{ID: 2, Body: "Here you go /design-check\n\n![checkout](" + shotURL + ")", Author: "dev"},
	}

	result, err := f.engine.Analyze(context.Background(), 7, 0)
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.NotNil(t, result.Report)

	assert.Equal(t, f.engine.RunID(), result.RunID)
	assert.Equal(t, compare.StatusWarning, result.Report.OverallStatus)
	require.Len(t, result.Report.Pairs, 1)

	pair := result.Report.Pairs[0]
	assert.Equal(t, designLink, pair.DesignURL)
	assert.Equal(t, shotURL, pair.ScreenshotURL)
	assert.Equal(t, 100, pair.Match.Confidence)
	assert.Equal(t, 100, pair.Result.MatchPercentage)
	assert.Equal(t, "designcheck-pair-1.png", pair.AnnotatedFile)
	require.Len(t, pair.Legend, 1)
	assert.Equal(t, int32(0), f.ai.matches.Load(), "one screenshot and one design pair directly")
	assert.Equal(t, int32(1), f.ai.compares.Load())

	require.Len(t, result.Artifacts, 1)
	_, err = os.Stat(filepath.Join(f.dir, "designcheck-pair-1.png"))
	require.NoError(t, err)

	analyses := f.github.botComments(report.AnalysisMarker)
	require.Len(t, analyses, 1)
	assert.Contains(t, analyses[0].Body, "Design check: Warning")

	last := f.github.statuses[len(f.github.statuses)-1]
	assert.Equal(t, github.StatusSuccess, last.State)
	assert.Contains(t, last.Description, "warnings")

	assert.Contains(t, f.jira.comments["PROJ-5"], "Design check: WARNING")

	m, err := LoadManifest(f.dir)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, AllSteps(), m.CompletedSteps)
	assert.Equal(t, "abc123", m.HeadSHA)
	assert.Equal(t, compare.StatusWarning, m.OverallStatus)
	require.Len(t, m.Pairs, 1)
	assert.Equal(t, 1, m.Pairs[0].Issues)
}

func TestAnalyze_RerunUpdatesSameComment(t *testing.T) {
	f := newFixture(t)
	f.github.comments = []github.Comment{{ID: 2, Body: "![s](" + shotURL + ")", Author: "dev"}}

	_, err := f.engine.Analyze(context.Background(), 7, 0)
	require.NoError(t, err)
	_, err = f.engine.Analyze(context.Background(), 7, 0)
	require.NoError(t, err)

	assert.Len(t, f.github.botComments(report.AnalysisMarker), 1)
}

func TestAnalyze_NothingToCompare(t *testing.T) {
	tests := []struct {
		name       string
		prBody     string
		comments   []github.Comment
		wantReason string
	}{
		{
			name:       "no design links",
			prBody:     "No ticket here",
			wantReason: "No design links",
		},
		{
			name:       "no screenshots",
			prBody:     ticketURL,
			comments:   []github.Comment{{ID: 2, Body: "LGTM", Author: "dev"}},
			wantReason: "No screenshots were found",
		},
		{
			name:       "only bot comments have images",
			prBody:     ticketURL,
			comments:   []github.Comment{{ID: 2, Body: report.AnalysisMarker + "\n![a](" + shotURL + ")", IsBot: true}},
			wantReason: "No screenshots were found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.github.pr.Body = tt.prBody
			f.github.comments = tt.comments

			result, err := f.engine.Analyze(context.Background(), 7, 0)
			require.NoError(t, err)
			assert.True(t, result.Skipped)
			assert.Contains(t, result.Reason, tt.wantReason)
			assert.Nil(t, result.Report)
			assert.Equal(t, int32(0), f.ai.compares.Load())

			notices := f.github.botComments(report.AnalysisMarker)
			require.Len(t, notices, 1)
			assert.Contains(t, notices[0].Body, "nothing to compare")

			last := f.github.statuses[len(f.github.statuses)-1]
			assert.Equal(t, github.StatusSuccess, last.State)
		})
	}
}

func TestAnalyze_UnresolvableDesigns(t *testing.T) {
	f := newFixture(t)
	f.engine.designs = &mockResolver{}
	f.github.comments = []github.Comment{{ID: 2, Body: "![s](" + shotURL + ")", Author: "dev"}}

	result, err := f.engine.Analyze(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Contains(t, result.Reason, "designs could be rendered")
}

func TestAnalyze_GatherFailure(t *testing.T) {
	f := newFixture(t)
	f.github.prError = rigerrors.NewGitHubErrorWithStatus("GetPR", 502, "Bad Gateway")

	_, err := f.engine.Analyze(context.Background(), 7, 0)
	var wfErr *rigerrors.WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, string(StepGather), wfErr.Step)
	assert.True(t, wfErr.Retryable)

	m, err := LoadManifest(f.dir)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, StepGather, m.FailedStep)
	assert.Empty(t, m.CompletedSteps)
}

func TestSelectScreenshots(t *testing.T) {
	img := func(name string) string { return "![" + name + "](https://example.com/" + name + ".png)" }

	comments := []github.Comment{
		{ID: 1, Body: img("old") + " /design-check"},
		{ID: 2, Body: img("explicit")},
		{ID: 3, Body: "no images /design-check"},
		{ID: 4, Body: img("newest")},
		{ID: 5, Body: report.RequestMarker + img("bot"), IsBot: true},
		{ID: 6, Body: img("from-bot-account"), IsBot: true},
	}

	tests := []struct {
		name      string
		comments  []github.Comment
		commentID int64
		trigger   string
		wantID    int64
		wantOK    bool
	}{
		{"explicit comment wins", comments, 2, "/design-check", 2, true},
		{"explicit comment without images falls back", comments, 3, "/design-check", 1, true},
		{"trigger preferred over newer", comments, 0, "/design-check", 1, true},
		{"newest human without trigger", comments, 0, "", 4, true},
		{"unknown trigger falls back to newest", comments, 0, "/other", 4, true},
		{"marker comments never chosen by id", comments, 5, "", 4, true},
		{"nothing usable", comments[2:3], 0, "/design-check", 0, false},
		{"no comments", nil, 0, "/design-check", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectScreenshots(tt.comments, tt.commentID, tt.trigger)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantID, got.Comment.ID)
				assert.NotEmpty(t, got.URLs)
			}
		})
	}
}

func TestManifest_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")

	m, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Nil(t, m)

	require.NoError(t, SaveManifest(dir, &Manifest{RunID: "r1", PRNumber: 7, CompletedSteps: []Step{StepGather}}))

	m, err = LoadManifest(dir)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "r1", m.RunID)
	assert.Equal(t, []Step{StepGather}, m.CompletedSteps)
	assert.False(t, m.UpdatedAt.IsZero())

	assert.Error(t, SaveManifest("", &Manifest{}))
	assert.Error(t, SaveManifest(dir, nil))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("{"), 0o644))
	_, err = LoadManifest(dir)
	assert.Error(t, err)
}

func TestAllSteps(t *testing.T) {
	steps := AllSteps()
	assert.Equal(t, StepGather, steps[0])
	assert.Equal(t, StepPublish, steps[len(steps)-1])
	assert.Equal(t, "annotate", StepAnnotate.String())
}

func TestAnalyze_ScreenshotsUndownloadable(t *testing.T) {
	f := newFixture(t)
	f.engine.screenshots = &mockDownloader{failing: map[string]bool{shotURL: true}}
	f.github.comments = []github.Comment{{ID: 2, Body: "![s](" + shotURL + ")", Author: "dev"}}

	result, err := f.engine.Analyze(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Contains(t, result.Reason, "None of the 1 screenshot(s) could be downloaded")
}
