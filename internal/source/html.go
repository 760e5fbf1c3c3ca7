package source

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// HTML reads an HTML page. h1-h6 become explicit heading candidates and the
// <title> element is used as the document title.
type HTML struct{}

func (HTML) Extract(_ context.Context, data []byte) (*Extraction, error) {
	var b blocks
	title, err := readHTML(bytes.NewReader(data), &b)
	if err != nil {
		return nil, err
	}
	return &Extraction{Title: title, Text: b.text(), Headings: b.headings}, nil
}

// readHTML appends the body of an HTML document to b and returns its title.
func readHTML(r io.Reader, b *blocks) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	root := findElement(doc, "body")
	if root == nil {
		root = doc
	}
	walkHTML(root, b)

	var title string
	if t := findElement(doc, "title"); t != nil {
		title = textContent(t)
	}
	return title, nil
}

func walkHTML(n *html.Node, b *blocks) {
	if n.Type == html.ElementNode {
		if level := headingLevel(n.Data); level > 0 {
			b.heading(textContent(n), level)
			return
		}
		switch n.Data {
		case "script", "style", "nav", "head", "template", "noscript":
			return
		case "p", "li", "td", "th", "blockquote", "dt", "dd", "figcaption", "caption":
			b.paragraph(textContent(n))
			return
		case "pre":
			b.paragraph(rawText(n))
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && n.Type == html.ElementNode && isLooseTextParent(n.Data) {
			b.paragraph(collapseSpace(c.Data))
			continue
		}
		walkHTML(c, b)
	}
}

// isLooseTextParent reports whether bare text directly inside the element is
// content worth keeping.
func isLooseTextParent(tag string) bool {
	switch tag {
	case "body", "div", "section", "article", "main":
		return true
	}
	return false
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	return collapseSpace(rawText(n))
}

func rawText(n *html.Node) string {
	var buf bytes.Buffer
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
			return
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
