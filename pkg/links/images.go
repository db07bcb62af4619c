package links

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// FindImageURLs returns the image URLs embedded in a markdown comment body,
// deduplicated and in document order. It recognizes markdown image syntax,
// HTML <img> tags, and bare links to GitHub attachment hosts or image files.
func FindImageURLs(body string) []string {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	var found []string
	found = append(found, markdownImages(body)...)
	found = append(found, htmlImages(body)...)

	seen := make(map[string]bool)
	var result []string
	for _, u := range found {
		u = strings.TrimSpace(u)
		if !isHTTPURL(u) || seen[u] {
			continue
		}
		seen[u] = true
		result = append(result, u)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return strings.Index(body, result[i]) < strings.Index(body, result[j])
	})
	return result
}

// markdownImages walks the parsed document for image nodes and for
// autolinked bare URLs that point at image content.
func markdownImages(body string) []string {
	src := []byte(body)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var urls []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Image:
			urls = append(urls, string(node.Destination))
		case *ast.AutoLink:
			if u := string(node.URL(src)); looksLikeImage(u) {
				urls = append(urls, u)
			}
		case *ast.Link:
			if u := string(node.Destination); looksLikeImage(u) {
				urls = append(urls, u)
			}
		}
		return ast.WalkContinue, nil
	})
	return urls
}

// htmlImages collects src attributes of <img> tags. Pasted screenshots in
// GitHub comments often arrive in this form with explicit dimensions.
func htmlImages(body string) []string {
	var urls []string
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return urls
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "img" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key == "src" {
					urls = append(urls, attr.Val)
				}
			}
		}
	}
}

// looksLikeImage reports whether a link without explicit image syntax
// still points at image content.
func looksLikeImage(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "github.com" && strings.HasPrefix(u.Path, "/user-attachments/assets/"):
		return true
	case strings.HasSuffix(host, "user-images.githubusercontent.com"):
		return true
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
