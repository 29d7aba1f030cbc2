// Package render converts article markdown to display HTML and extracts
// feature images from the rendered output.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	xhtml "golang.org/x/net/html"
)

// Renderer converts markdown to HTML
type Renderer struct {
	md goldmark.Markdown
}

// New creates a markdown renderer with GFM extensions
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Render converts one markdown document to HTML
func (r *Renderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// RenderAll converts a batch of markdown documents keyed by article id.
// Documents that fail to render keep their raw markdown.
func (r *Renderer) RenderAll(markdowns map[int64]string) map[int64]string {
	rendered := make(map[int64]string, len(markdowns))
	for id, markdown := range markdowns {
		out, err := r.Render(markdown)
		if err != nil {
			rendered[id] = markdown
			continue
		}
		rendered[id] = out
	}
	return rendered
}

// FirstImage returns the src of the first <img> element in the HTML
// fragment, or false when there is none
func FirstImage(htmlFragment string) (string, bool) {
	tokenizer := xhtml.NewTokenizer(strings.NewReader(htmlFragment))
	for {
		switch tokenizer.Next() {
		case xhtml.ErrorToken:
			return "", false
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "img" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key == "src" && attr.Val != "" {
					return attr.Val, true
				}
			}
		}
	}
}
