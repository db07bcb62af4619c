package links

import (
	"net/url"
	"regexp"
	"strings"
)

// DesignURL is a parsed design link.
type DesignURL struct {
	Scheme string
	Host   string
	Kind   string // file, design, proto or board
	// FileKey identifies the design file. For branch links it is the branch key.
	FileKey string
	// Title is the optional slug following the file key.
	Title string
	// NodeID is the frame id in colon form ("1:2"), empty when the link
	// targets the whole file.
	NodeID string
}

var (
	designKinds = map[string]bool{
		"file":   true,
		"design": true,
		"proto":  true,
		"board":  true,
	}

	fileKeyPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	nodeIDPattern  = regexp.MustCompile(`^\d+[:-]\d+(?:[;:-]\d+[:-]\d+)*$`)
)

// Canonical returns the normalized form of the link: the node-id query
// parameter is kept in colon form and every other parameter is dropped.
func (d DesignURL) Canonical() string {
	var b strings.Builder
	b.WriteString(d.Scheme)
	b.WriteString("://")
	b.WriteString(d.Host)
	b.WriteString("/")
	b.WriteString(d.Kind)
	b.WriteString("/")
	b.WriteString(d.FileKey)
	if d.Title != "" {
		b.WriteString("/")
		b.WriteString(d.Title)
	}
	if d.NodeID != "" {
		b.WriteString("?node-id=")
		b.WriteString(d.NodeID)
	}
	return b.String()
}

// IsDesignURL reports whether raw is a design link under the default patterns.
func IsDesignURL(raw string) bool {
	return DefaultPatterns().IsDesignURL(raw)
}

// ParseDesignURL parses raw under the default patterns.
func ParseDesignURL(raw string) (DesignURL, bool) {
	return DefaultPatterns().ParseDesignURL(raw)
}

// FindDesignURLs returns the canonical design links in text under the default patterns.
func FindDesignURLs(text string) []string {
	return DefaultPatterns().FindDesignURLs(text)
}

// IsDesignURL reports whether raw is a design link on one of the design hosts.
func (p Patterns) IsDesignURL(raw string) bool {
	_, ok := p.ParseDesignURL(raw)
	return ok
}

// ParseDesignURL parses a design link. Node ids are percent-decoded and
// converted from the dash form used in browser URLs to the colon form used
// by the API.
func (p Patterns) ParseDesignURL(raw string) (DesignURL, bool) {
	raw = strings.TrimRight(strings.TrimSpace(raw), trailingPunctuation)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return DesignURL{}, false
	}

	hosts := p.DesignHosts
	if len(hosts) == 0 {
		hosts = DefaultDesignHosts
	}
	if !hostMatches(u.Hostname(), hosts) {
		return DesignURL{}, false
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segments) < 2 || !designKinds[segments[0]] || !fileKeyPattern.MatchString(segments[1]) {
		return DesignURL{}, false
	}

	d := DesignURL{
		Scheme:  u.Scheme,
		Host:    u.Host,
		Kind:    segments[0],
		FileKey: segments[1],
	}

	rest := segments[2:]
	if len(rest) >= 2 && rest[0] == "branch" && fileKeyPattern.MatchString(rest[1]) {
		d.FileKey = rest[1]
		rest = rest[2:]
	}
	if len(rest) > 0 {
		d.Title = rest[0]
	}

	// Query().Get already percent-decodes.
	if node := strings.TrimSpace(u.Query().Get("node-id")); node != "" && nodeIDPattern.MatchString(node) {
		d.NodeID = normalizeNodeID(node)
	}

	return d, true
}

// FindDesignURLs returns the canonical form of every design link in text,
// deduplicated in first-seen order.
func (p Patterns) FindDesignURLs(text string) []string {
	var result []string
	seen := make(map[string]bool)
	for _, raw := range findURLs(text) {
		d, ok := p.ParseDesignURL(raw)
		if !ok {
			continue
		}
		c := d.Canonical()
		if seen[c] {
			continue
		}
		seen[c] = true
		result = append(result, c)
	}
	return result
}

// normalizeNodeID converts "1-2" to "1:2". Instance paths such as
// "1-2;3-4" keep their separators between pairs.
func normalizeNodeID(node string) string {
	pairs := strings.Split(node, ";")
	for i, pair := range pairs {
		pairs[i] = strings.Replace(pair, "-", ":", 1)
	}
	return strings.Join(pairs, ";")
}
