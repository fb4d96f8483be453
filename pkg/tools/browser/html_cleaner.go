package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// CleanedHTML is a page reduced to the structure useful for picking selectors.
type CleanedHTML struct {
	HTML        string
	Title       string
	Description string
	Truncated   bool
}

var (
	skippedElements = set("script", "style", "noscript", "iframe", "embed", "object", "svg", "template", "head", "link", "meta")
	blockElements   = set("div", "p", "section", "article", "header", "footer", "nav", "main", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "thead", "tbody", "tr", "td", "th",
		"form", "fieldset", "blockquote", "pre", "dialog", "label")
	voidElements     = set("area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "param", "source", "track", "wbr")
	globalAttributes = set("id", "class", "role", "name", "title", "for", "placeholder", "type", "href", "alt", "value", "action", "method", "disabled", "checked")
)

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

func has(m map[string]struct{}, key string) bool {
	_, ok := m[key]
	return ok
}

// keepAttribute reports whether an attribute helps target the element.
func keepAttribute(name string) bool {
	name = strings.ToLower(name)
	return has(globalAttributes, name) ||
		strings.HasPrefix(name, "aria-") ||
		strings.HasPrefix(name, "data-")
}

// cleaner writes a pruned rendition of a node tree, stopping once the text
// budget is spent.
type cleaner struct {
	b         strings.Builder
	used      int
	max       int
	truncated bool
}

// cleanHTML parses rawHTML and keeps the visible structure with its targeting
// attributes. maxLength bounds the characters of markup and text written.
func cleanHTML(rawHTML string, maxLength int) (*CleanedHTML, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	c := &cleaner{max: maxLength}
	c.walk(doc, 0)

	return &CleanedHTML{
		HTML:        c.b.String(),
		Title:       findTitle(doc),
		Description: findMetaDescription(doc),
		Truncated:   c.truncated,
	}, nil
}

func (c *cleaner) walk(n *html.Node, depth int) {
	if c.truncated {
		return
	}
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		c.text(n.Data)
		return
	case html.ElementNode:
		c.element(n, depth)
		return
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.walk(ch, depth)
	}
}

func (c *cleaner) text(data string) {
	text := strings.Join(strings.Fields(data), " ")
	if text == "" {
		return
	}
	if remaining := c.max - c.used; len(text) > remaining {
		if remaining > 0 {
			c.b.WriteString(text[:remaining])
		}
		c.b.WriteString("...")
		c.used = c.max
		c.truncated = true
		return
	}
	c.b.WriteString(text)
	c.used += len(text)
}

func (c *cleaner) element(n *html.Node, depth int) {
	tag := strings.ToLower(n.Data)
	if has(skippedElements, tag) {
		return
	}
	if tag == "html" || tag == "body" {
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			c.walk(ch, depth)
		}
		return
	}
	if c.used >= c.max {
		c.truncated = true
		return
	}

	block := has(blockElements, tag)
	if block && c.b.Len() > 0 {
		c.newline(depth)
	}

	start := c.b.Len()
	c.b.WriteString("<" + tag)
	for _, attr := range n.Attr {
		if keepAttribute(attr.Key) {
			fmt.Fprintf(&c.b, ` %s="%s"`, strings.ToLower(attr.Key), html.EscapeString(attr.Val))
		}
	}
	c.b.WriteString(">")
	c.used += c.b.Len() - start

	if has(voidElements, tag) {
		return
	}

	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.walk(ch, depth+1)
	}

	if block && n.FirstChild != nil && n.LastChild.Type == html.ElementNode && has(blockElements, strings.ToLower(n.LastChild.Data)) {
		c.newline(depth)
	}
	c.b.WriteString("</" + tag + ">")
	c.used += len(tag) + 3
}

func (c *cleaner) newline(depth int) {
	c.b.WriteString("\n")
	c.b.WriteString(strings.Repeat("  ", depth))
}

// findFirst returns the first element in document order matching pred.
func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && pred(n) {
		return n
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if found := findFirst(ch, pred); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findTitle(doc *html.Node) string {
	n := findFirst(doc, func(n *html.Node) bool { return n.Data == "title" })
	if n == nil || n.FirstChild == nil || n.FirstChild.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(n.FirstChild.Data)
}

func findMetaDescription(doc *html.Node) string {
	n := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "meta" && attr(n, "name") == "description" && attr(n, "content") != ""
	})
	if n == nil {
		return ""
	}
	return strings.TrimSpace(attr(n, "content"))
}
