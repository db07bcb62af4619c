package workflow

import (
	"strings"

	"thoreinstein.com/designcheck/pkg/github"
	"thoreinstein.com/designcheck/pkg/links"
	"thoreinstein.com/designcheck/pkg/report"
)

// ScreenshotSource is the comment chosen to supply screenshots.
type ScreenshotSource struct {
	Comment github.Comment
	URLs    []string
}

// SelectScreenshots picks the single comment whose images are compared.
//
// The comment named by commentID wins when it has images. Otherwise the
// newest human comment with images and the trigger phrase is used, falling
// back to the newest human comment with images. Comments the bot wrote are
// never sources. comments are expected oldest first.
func SelectScreenshots(comments []github.Comment, commentID int64, trigger string) (ScreenshotSource, bool) {
	if commentID != 0 {
		for _, c := range comments {
			if c.ID != commentID || isBotComment(c) {
				continue
			}
			if urls := links.FindImageURLs(c.Body); len(urls) > 0 {
				return ScreenshotSource{Comment: c, URLs: urls}, true
			}
		}
	}

	var fallback *ScreenshotSource
	for i := len(comments) - 1; i >= 0; i-- {
		c := comments[i]
		if c.IsBot || isBotComment(c) {
			continue
		}
		urls := links.FindImageURLs(c.Body)
		if len(urls) == 0 {
			continue
		}
		if trigger != "" && strings.Contains(c.Body, trigger) {
			return ScreenshotSource{Comment: c, URLs: urls}, true
		}
		if fallback == nil {
			fallback = &ScreenshotSource{Comment: c, URLs: urls}
		}
	}

	if fallback == nil {
		return ScreenshotSource{}, false
	}
	return *fallback, true
}

// isBotComment reports whether c is one of the comments this bot maintains.
func isBotComment(c github.Comment) bool {
	return c.HasMarker(report.AnalysisMarker) || c.HasMarker(report.RequestMarker)
}
