package ai

import (
	"fmt"
	"strings"
)

const extractLinksSystem = `You read software tickets and find links to design files.
Respond with a single JSON object and nothing else.`

const extractLinksPrompt = `Find every Figma design link in the ticket below. Links may appear as bare
URLs, inside markdown, or after link text in parentheses. Copy each URL exactly
as written; do not invent, shorten or rewrite links.

Respond with:
{"links": ["<url>", ...], "confidence": "high" | "medium" | "low"}

Use "low" confidence when you are unsure whether a link is a design link.
Return an empty list when there are none.

Ticket:
%s`

const compareSystem = `You are a meticulous UI reviewer comparing an implementation screenshot
against its reference design. Respond with a single JSON object and nothing else.`

const comparePrompt = `The first image is the reference design. The second image is a screenshot
of the implementation.%s

List every distinct UI component visible in the reference design and check
whether it is present in the screenshot. Then report text, color, form-field,
typography, extra-component and overlap problems in the screenshot.

Bounding boxes are percentages of the screenshot's width and height, with
x and y at the top-left corner.

Respond with:
{
  "totalReferenceComponents": <int>,
  "componentsFound": <int>,
  "components": [
    {"name": "<string>", "found": <bool>, "location": "<string>",
     "boundingBox": {"x": <0-100>, "y": <0-100>, "width": <0-100>, "height": <0-100>}}
  ],
  "grammarIssues": [{"description": "<string>", "location": "<string>", "boundingBox": {...}}],
  "colorIssues": [{"description": "<string>", "location": "<string>", "boundingBox": {...}}],
  "missingFields": [{"description": "<string>", "location": "<string>", "boundingBox": {...}}],
  "typographyIssues": [{"description": "<string>", "location": "<string>", "boundingBox": {...}}],
  "extraComponents": [{"description": "<string>", "location": "<string>", "severity": "critical" | "major" | "minor", "boundingBox": {...}}],
  "overlappingElements": [{"description": "<string>", "location": "<string>", "severity": "critical" | "major" | "minor", "boundingBox": {...}}],
  "summary": "<one or two sentences>"
}

Omit boundingBox when you cannot locate an issue.`

const matchSystem = `You pair implementation screenshots with the design frames they implement.
Respond with a single JSON object and nothing else.`

const matchPrompt = `You are given %d screenshot(s) followed by %d design frame(s), in that order.
Screenshots are numbered 0 to %d. Designs are numbered 0 to %d, counting from
the first design image.

Pair each screenshot with the design it implements. Each screenshot and each
design may appear in at most one pair. Leave items unpaired when nothing fits.

Respond with:
{"matches": [{"screenshotIndex": <int>, "designIndex": <int>, "confidence": <0-100>, "reasoning": "<string>"}]}`

func buildExtractLinksPrompt(text string) string {
	return fmt.Sprintf(extractLinksPrompt, text)
}

func buildComparePrompt(note string) string {
	note = strings.TrimSpace(note)
	if note != "" {
		note = "\n\nContext: " + note
	}
	return fmt.Sprintf(comparePrompt, note)
}

func buildMatchPrompt(screenshots, designs int) string {
	return fmt.Sprintf(matchPrompt, screenshots, designs, screenshots-1, designs-1)
}
