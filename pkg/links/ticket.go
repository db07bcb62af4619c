// Package links finds ticket, design and screenshot links in free text.
//
// Every function in this package is pure and total: malformed input yields
// empty results, never an error or a panic.
package links

import (
	"net/url"
	"regexp"
	"strings"
)

// Patterns configures which hosts count as ticket and design hosts.
// An empty TicketHosts list accepts any host whose URL carries a ticket path.
type Patterns struct {
	TicketHosts []string
	DesignHosts []string
}

// DefaultDesignHosts are the Figma hosts recognized when none are configured.
var DefaultDesignHosts = []string{"figma.com", "www.figma.com"}

// DefaultPatterns returns Patterns accepting any Jira host and the Figma hosts.
func DefaultPatterns() Patterns {
	return Patterns{DesignHosts: DefaultDesignHosts}
}

var (
	// urlPattern matches http(s) URLs, stopping at whitespace, quotes and the
	// bracket characters used by markdown and HTML link syntax.
	urlPattern = regexp.MustCompile("https?://[^\\s<>\"'`\\[\\]()]+")

	browsePattern = regexp.MustCompile(`(?i)/browse/([a-z][a-z0-9_]*-\d+)`)
	keyPattern    = regexp.MustCompile(`(?i)\b([a-z][a-z0-9_]*-\d+)\b`)

	ticketQueryParams = []string{"selectedIssue", "issueKey", "issue"}
)

// trailingPunctuation is stripped from the end of every matched URL.
const trailingPunctuation = ")]},.;:!?"

// findURLs returns every URL in text with trailing punctuation removed,
// deduplicated in first-seen order.
func findURLs(text string) []string {
	var result []string
	seen := make(map[string]bool)
	for _, raw := range urlPattern.FindAllString(text, -1) {
		u := strings.TrimRight(raw, trailingPunctuation)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		result = append(result, u)
	}
	return result
}

// FindTicketURLs returns the Jira ticket URLs found in text using the default patterns.
func FindTicketURLs(text string) []string {
	return DefaultPatterns().FindTicketURLs(text)
}

// FindTicketURLs returns the ticket URLs found in text, including URLs inside
// markdown [label](url) and HTML href="url" forms, deduplicated in first-seen order.
func (p Patterns) FindTicketURLs(text string) []string {
	var result []string
	for _, u := range findURLs(text) {
		if p.isTicketURL(u) {
			result = append(result, u)
		}
	}
	return result
}

func (p Patterns) isTicketURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}

	if len(p.TicketHosts) > 0 && !hostMatches(u.Hostname(), p.TicketHosts) {
		return false
	}

	if browsePattern.MatchString(u.Path) {
		return true
	}

	q := u.Query()
	for _, param := range ticketQueryParams {
		if keyPattern.MatchString(q.Get(param)) {
			return true
		}
	}

	// Atlassian-hosted links to anything else carrying a key (boards, issues views).
	return strings.HasSuffix(strings.ToLower(u.Hostname()), ".atlassian.net") && keyPattern.MatchString(u.Path+"?"+u.RawQuery)
}

// ExtractTicketKey returns the upper-cased ticket key carried by a ticket URL.
//
// Recognized shapes, in order: a /browse/KEY-1 path segment, a
// selectedIssue/issueKey/issue query parameter, then any KEY-1 shaped token.
// The input may also be a markdown or HTML link wrapping the URL.
func ExtractTicketKey(raw string) (string, bool) {
	candidate := raw
	if urls := findURLs(raw); len(urls) > 0 {
		candidate = urls[0]
	}

	if m := browsePattern.FindStringSubmatch(candidate); m != nil {
		return strings.ToUpper(m[1]), true
	}

	if u, err := url.Parse(candidate); err == nil {
		q := u.Query()
		for _, param := range ticketQueryParams {
			if m := keyPattern.FindStringSubmatch(q.Get(param)); m != nil {
				return strings.ToUpper(m[1]), true
			}
		}
		// Host names are never ticket keys; only look at path and query.
		if m := keyPattern.FindStringSubmatch(u.Path + "?" + u.RawQuery); m != nil {
			return strings.ToUpper(m[1]), true
		}
		if u.Host != "" {
			return "", false
		}
	}

	if m := keyPattern.FindStringSubmatch(candidate); m != nil {
		return strings.ToUpper(m[1]), true
	}

	return "", false
}

// hostMatches reports whether host equals one of hosts or is a subdomain of one.
func hostMatches(host string, hosts []string) bool {
	host = strings.ToLower(host)
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
