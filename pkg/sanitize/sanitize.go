// Package sanitize filters converted HTML down to an allow-listed subset of
// text and structural tags before it is handed back to callers. Everything
// else is unwrapped (its text survives) or, for active content, dropped
// outright.
package sanitize

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// allowedTags is the full set of elements that survive sanitization.
var allowedTags = map[string]bool{
	"p": true, "br": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true,
	"blockquote": true,
	"strong":     true, "em": true, "b": true, "i": true, "u": true,
	"a": true, "span": true, "img": true,
}

// droppedTags are removed together with their content.
var droppedTags = map[string]bool{
	"script": true, "style": true, "iframe": true,
	"object": true, "embed": true, "form": true,
}

// voidTags have no closing tag.
var voidTags = map[string]bool{"br": true, "img": true}

// Clean sanitizes an HTML fragment and wraps it in a container div.
// Only allow-listed tags survive; attributes are limited to class, safe
// hrefs, and inline data-URI image sources. Anchors are rewritten to open
// in a new tab without an opener reference.
func Clean(fragment string) (string, error) {
	body, err := parseBody(fragment)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(`<div class="document-content">`)
	if body != nil {
		for n := body.FirstChild; n != nil; n = n.NextSibling {
			writeNode(&b, n)
		}
	}
	b.WriteString(`</div>`)
	return b.String(), nil
}

// StripTags returns only the text content of an HTML fragment. Word counts
// in minimal conversion mode are taken from this rather than a separate
// full-text extraction pass.
func StripTags(fragment string) (string, error) {
	body, err := parseBody(fragment)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if body != nil {
		for n := body.FirstChild; n != nil; n = n.NextSibling {
			writeText(&b, n)
		}
	}
	return b.String(), nil
}

// parseBody parses a fragment and returns the implicit body node.
func parseBody(fragment string) (*html.Node, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}
	body := doc.Find("body")
	if len(body.Nodes) == 0 {
		return nil, nil
	}
	return body.Nodes[0], nil
}

func writeNode(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(html.EscapeString(n.Data))
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if droppedTags[tag] {
			return
		}
		if !allowedTags[tag] {
			// Unwrap: keep the children, lose the element.
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				writeNode(b, c)
			}
			return
		}

		b.WriteByte('<')
		b.WriteString(tag)
		for _, attr := range filterAttrs(tag, n.Attr) {
			b.WriteByte(' ')
			b.WriteString(attr.Key)
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(attr.Val))
			b.WriteByte('"')
		}
		b.WriteByte('>')

		if voidTags[tag] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(b, c)
		}
		b.WriteString("</")
		b.WriteString(tag)
		b.WriteByte('>')
	}
}

func writeText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	if n.Type == html.ElementNode && droppedTags[strings.ToLower(n.Data)] {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	// Block elements separate words when their tags are stripped.
	if n.Type == html.ElementNode {
		b.WriteByte(' ')
	}
}

// filterAttrs keeps class on any allowed tag, a safe href on anchors, and a
// data-URI src on images. Anchors with a surviving href are forced to open
// in a new tab without window.opener access.
func filterAttrs(tag string, attrs []html.Attribute) []html.Attribute {
	var out []html.Attribute
	for _, attr := range attrs {
		switch strings.ToLower(attr.Key) {
		case "class":
			out = append(out, html.Attribute{Key: "class", Val: attr.Val})
		case "href":
			if tag == "a" && safeHref(attr.Val) {
				out = append(out,
					html.Attribute{Key: "href", Val: attr.Val},
					html.Attribute{Key: "rel", Val: "noopener noreferrer"},
					html.Attribute{Key: "target", Val: "_blank"},
				)
			}
		case "src":
			if tag == "img" && strings.HasPrefix(attr.Val, "data:image/") {
				out = append(out, html.Attribute{Key: "src", Val: attr.Val})
			}
		}
	}
	return out
}

// safeHref accepts only http, https and mailto schemes.
func safeHref(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return true
	}
	return false
}
