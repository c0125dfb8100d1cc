package ingest

import (
	"encoding/json"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"opsintel/internal/textnorm"
)

// extractArticle reduces a parsed page to headline and body text. Known
// hosts get a dedicated extractor, everything else falls back to page
// metadata plus long headline and paragraph texts.
func extractArticle(doc *html.Node, pageURL string) article {
	switch hostOf(pageURL) {
	case "reuters.com":
		if title, content, ok := extractJSONLD(doc); ok {
			return article{url: pageURL, title: cleanTitle(title), content: textnorm.StripNoise(content)}
		}
	case "unrwa.org":
		if title, content, ok := extractNewsStory(doc); ok {
			return article{url: pageURL, title: cleanTitle(title), content: textnorm.StripNoise(content)}
		}
	}
	return article{
		url:     pageURL,
		title:   cleanTitle(genericTitle(doc)),
		content: textnorm.StripNoise(genericContent(doc)),
	}
}

func cleanTitle(raw string) string {
	return textnorm.CollapseSpaces(raw)
}

// extractJSONLD reads schema.org article markup, the way news sites
// embed their structured copy.
func extractJSONLD(doc *html.Node) (title, content string, ok bool) {
	var scripts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" && nodeAttr(n, "type") == "application/ld+json" {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			scripts = append(scripts, b.String())
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, raw := range scripts {
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			continue
		}
		nodes, isList := parsed.([]any)
		if !isList {
			nodes = []any{parsed}
		}
		for _, node := range nodes {
			obj, isMap := node.(map[string]any)
			if !isMap || !isArticleType(obj["@type"]) {
				continue
			}
			body := stringOrJoined(obj["articleBody"])
			if body == "" {
				body = stringOrJoined(obj["description"])
			}
			if body == "" {
				continue
			}
			headline, _ := obj["headline"].(string)
			if headline == "" {
				headline, _ = obj["name"].(string)
			}
			return strings.TrimSpace(headline), strings.TrimSpace(body), true
		}
	}
	return "", "", false
}

func isArticleType(v any) bool {
	switch t := v.(type) {
	case string:
		low := strings.ToLower(t)
		return low == "newsarticle" || low == "article"
	case []any:
		for _, item := range t {
			if s, isStr := item.(string); isStr {
				low := strings.ToLower(s)
				if low == "newsarticle" || low == "article" {
					return true
				}
			}
		}
	}
	return false
}

func stringOrJoined(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, isStr := item.(string); isStr {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

// extractNewsStory handles pages built on the news-story content type,
// a div carrying the node--type-news-story class with the article
// inside.
func extractNewsStory(doc *html.Node) (title, content string, ok bool) {
	root := findByClass(doc, "div", "node--type-news-story")
	if root == nil {
		root = findElement(doc, "article")
	}
	if root == nil {
		return "", "", false
	}
	if heading := findElement(root, "h1", "h2"); heading != nil {
		title = nodeText(heading)
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "p" || n.Data == "li") {
			if txt := nodeText(n); txt != "" {
				parts = append(parts, txt)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	content = strings.Join(parts, "\n")
	if title == "" && content == "" {
		return "", "", false
	}
	return title, content, true
}

func genericTitle(doc *html.Node) string {
	var title, ogTitle string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				prop := nodeAttr(n, "property")
				if prop == "" {
					prop = nodeAttr(n, "name")
				}
				if prop == "og:title" && ogTitle == "" {
					ogTitle = nodeAttr(n, "content")
				}
			case "title":
				if title == "" {
					title = nodeText(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if ogTitle != "" {
		return ogTitle
	}
	return title
}

// genericContent keeps headline and paragraph texts long enough to be
// sentences rather than navigation labels.
func genericContent(doc *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h1", "h2", "p":
				if txt := nodeText(n); utf8.RuneCountInString(txt) > 40 {
					parts = append(parts, txt)
				}
				return
			case "script", "style":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(parts, "\n")
}

func extractLinks(doc *html.Node) []string {
	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := nodeAttr(n, "href"); href != "" {
				hrefs = append(hrefs, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return hrefs
}

func nodeAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			b.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "script" || c.Data == "style") {
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return textnorm.CollapseSpaces(b.String())
}

func findElement(n *html.Node, names ...string) *html.Node {
	if n.Type == html.ElementNode {
		for _, name := range names {
			if n.Data == name {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, names...); found != nil {
			return found
		}
	}
	return nil
}

func findByClass(n *html.Node, name, classFragment string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name &&
		strings.Contains(nodeAttr(n, "class"), classFragment) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, name, classFragment); found != nil {
			return found
		}
	}
	return nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

func sameDomain(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return strings.EqualFold(ua.Host, ub.Host)
}

// normalizeURL resolves href against the page it appeared on and drops
// anchors, mail links and script links.
func normalizeURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := baseURL.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}
