package errors

import (
	"fmt"
	"strings"
)

// FormatUserError returns a user-friendly error message with actionable guidance.
// It examines the error chain and provides context-appropriate help text.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var configErr *ConfigError
	if As(err, &configErr) {
		return formatConfigError(configErr)
	}

	var ghErr *GitHubError
	if As(err, &ghErr) {
		return formatGitHubError(ghErr)
	}

	var figmaErr *FigmaError
	if As(err, &figmaErr) {
		return formatFigmaError(figmaErr)
	}

	var aiErr *AIError
	if As(err, &aiErr) {
		return formatAIError(aiErr)
	}

	var jiraErr *JiraError
	if As(err, &jiraErr) {
		return formatJiraError(jiraErr)
	}

	var wfErr *WorkflowError
	if As(err, &wfErr) {
		return formatWorkflowError(wfErr)
	}

	return err.Error()
}

// formatConfigError formats a ConfigError with actionable guidance.
func formatConfigError(err *ConfigError) string {
	var b strings.Builder

	if err.Field != "" {
		fmt.Fprintf(&b, "Configuration error in '%s': %s\n", err.Field, err.Message)
	} else {
		fmt.Fprintf(&b, "Configuration error: %s\n", err.Message)
	}

	b.WriteString("\nTo fix this:\n")
	b.WriteString("  • Check the action inputs or .designcheck.toml in the repository root\n")
	b.WriteString("  • Secrets can be provided as DESIGNCHECK_* environment variables\n")

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatGitHubError formats a GitHubError with actionable guidance based on status code.
func formatGitHubError(err *GitHubError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "GitHub error during %s: %s\n", err.Operation, err.Message)

	switch err.StatusCode {
	case 401:
		b.WriteString("\nAuthentication failed. To fix this:\n")
		b.WriteString("  • Pass the workflow GITHUB_TOKEN to the action\n")
		b.WriteString("  • Or set DESIGNCHECK_GITHUB_TOKEN\n")

	case 403:
		b.WriteString("\nPermission denied. To fix this:\n")
		b.WriteString("  • Grant the workflow 'pull-requests: write' and 'statuses: write' permissions\n")
		b.WriteString("  • Forked pull requests receive a read-only token; use pull_request_target\n")

	case 404:
		b.WriteString("\nResource not found. To fix this:\n")
		b.WriteString("  • Verify github.repository is set to owner/repo\n")
		b.WriteString("  • Ensure the pull request or comment exists\n")

	case 422:
		b.WriteString("\nValidation failed. To fix this:\n")
		b.WriteString("  • The comment body may exceed GitHub's size limit\n")
		b.WriteString("  • The head commit may no longer exist after a force-push\n")

	case 429:
		b.WriteString("\nRate limit exceeded. To fix this:\n")
		b.WriteString("  • Wait a few minutes before re-running the job\n")

	case 500, 502, 503, 504:
		b.WriteString("\nGitHub server error. To fix this:\n")
		b.WriteString("  • Wait a few moments and re-run the job\n")
		b.WriteString("  • Check GitHub Status: https://www.githubstatus.com\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatFigmaError formats a FigmaError with actionable guidance based on status code.
func formatFigmaError(err *FigmaError) string {
	var b strings.Builder

	if err.FileKey != "" {
		fmt.Fprintf(&b, "Figma error during %s for file %s: %s\n", err.Operation, err.FileKey, err.Message)
	} else {
		fmt.Fprintf(&b, "Figma error during %s: %s\n", err.Operation, err.Message)
	}

	switch err.StatusCode {
	case 400:
		b.WriteString("\nBad request. To fix this:\n")
		b.WriteString("  • Check that the node-id in the design link exists in the file\n")

	case 401, 403:
		b.WriteString("\nAccess denied. To fix this:\n")
		b.WriteString("  • Set FIGMA_ACCESS_TOKEN to a personal access token\n")
		b.WriteString("  • The token needs the 'file_content:read' scope\n")
		b.WriteString("  • The token owner must be able to view the file\n")

	case 404:
		b.WriteString("\nFile not found. To fix this:\n")
		b.WriteString("  • Verify the design link points to an existing file\n")

	case 429:
		b.WriteString("\nFigma rate limit exceeded after retries. To fix this:\n")
		b.WriteString("  • Wait a few minutes before re-running the job\n")
		b.WriteString("  • Enable figma.cache_dir so repeated runs reuse rendered frames\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatAIError formats an AIError with actionable guidance based on status code.
func formatAIError(err *AIError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "AI provider error (%s) during %s: %s\n", err.Provider, err.Operation, err.Message)

	switch err.StatusCode {
	case 401:
		fmt.Fprintf(&b, "\nAuthentication failed with %s. To fix this:\n", err.Provider)
		b.WriteString("  • Set the provider API key (ANTHROPIC_API_KEY, GEMINI_API_KEY, GROQ_API_KEY, OPENAI_API_KEY)\n")
		b.WriteString("  • Verify your API key is valid and not expired\n")

	case 403:
		fmt.Fprintf(&b, "\nAccess denied by %s. To fix this:\n", err.Provider)
		b.WriteString("  • For vertex, the service account needs the 'roles/aiplatform.user' role\n")
		b.WriteString("  • Ensure the model you're using is available to your account tier\n")

	case 404:
		fmt.Fprintf(&b, "\nModel not found on %s. To fix this:\n", err.Provider)
		b.WriteString("  • Check ai.model; the model must accept image input\n")
		b.WriteString("  • For vertex, check ai.location supports the model\n")

	case 429:
		fmt.Fprintf(&b, "\n%s rate limit exceeded. To fix this:\n", err.Provider)
		b.WriteString("  • Wait a few minutes before retrying\n")
		b.WriteString("  • Lower analysis.concurrency\n")

	case 500, 502, 503, 504:
		fmt.Fprintf(&b, "\n%s server error. To fix this:\n", err.Provider)
		b.WriteString("  • Wait a few moments and try again\n")
		b.WriteString("  • Check the provider's status page\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatJiraError formats a JiraError with actionable guidance based on status code.
func formatJiraError(err *JiraError) string {
	var b strings.Builder

	if err.Ticket != "" {
		fmt.Fprintf(&b, "Jira error during %s for ticket %s: %s\n", err.Operation, err.Ticket, err.Message)
	} else {
		fmt.Fprintf(&b, "Jira error during %s: %s\n", err.Operation, err.Message)
	}

	switch err.StatusCode {
	case 401:
		b.WriteString("\nAuthentication failed. To fix this:\n")
		b.WriteString("  • Set JIRA_API_TOKEN and jira.email\n")
		b.WriteString("  • Generate a new API token at: https://id.atlassian.com/manage-profile/security/api-tokens\n")

	case 403:
		b.WriteString("\nAccess denied. To fix this:\n")
		b.WriteString("  • The account needs 'Browse projects' to read tickets\n")
		b.WriteString("  • The account needs 'Add comments' to post the analysis\n")

	case 404:
		if err.Ticket != "" {
			fmt.Fprintf(&b, "\nTicket %s not found. To fix this:\n", err.Ticket)
		} else {
			b.WriteString("\nResource not found. To fix this:\n")
		}
		b.WriteString("  • Verify the ticket key in the pull request description\n")
		b.WriteString("  • Check that jira.base_url points at the right site\n")

	case 500, 502, 503, 504:
		b.WriteString("\nJira server error. To fix this:\n")
		b.WriteString("  • Wait a few moments and try again\n")
		b.WriteString("  • Check Atlassian Status: https://status.atlassian.com\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}

// formatWorkflowError formats a WorkflowError with actionable guidance.
func formatWorkflowError(err *WorkflowError) string {
	var b strings.Builder

	if err.Step != "" {
		fmt.Fprintf(&b, "Workflow error in '%s' step: %s\n", err.Step, err.Message)
	} else {
		fmt.Fprintf(&b, "Workflow error: %s\n", err.Message)
	}

	switch err.Step {
	case "detect":
		b.WriteString("\nDesign link detection failed. To fix this:\n")
		b.WriteString("  • Check that the pull request description links a Jira ticket\n")
		b.WriteString("  • Verify Jira and AI provider credentials\n")

	case "screenshots":
		b.WriteString("\nScreenshot collection failed. To fix this:\n")
		b.WriteString("  • Paste screenshots into a PR comment (drag and drop) and re-run\n")

	case "resolve":
		b.WriteString("\nDesign resolution failed. To fix this:\n")
		b.WriteString("  • Check the Figma token and that the linked frames exist\n")

	case "publish":
		b.WriteString("\nPublishing the report failed. To fix this:\n")
		b.WriteString("  • Check the workflow token permissions\n")

	default:
		b.WriteString("\nTo troubleshoot:\n")
		b.WriteString("  • Run with --verbose for more details\n")
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\nUnderlying error: %v", err.Cause)
	}

	return b.String()
}
