package encoding

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Readme is the rendered form of a repository README.
type Readme struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	HTML    string `json:"html"`
}

// options represents configuration options for parsing
type options struct {
	summaryLength int
	fallbackTitle string
}

// Option is a function that configures options
type Option func(*options)

// WithSummaryLength caps the summary at n runes; zero keeps the whole paragraph.
func WithSummaryLength(n int) Option {
	return func(o *options) {
		o.summaryLength = n
	}
}

// WithFallbackTitle sets the title used when the README has no level-1 heading.
func WithFallbackTitle(title string) Option {
	return func(o *options) {
		o.fallbackTitle = title
	}
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.GFM))
}

// UnmarshallReadme parses a README, extracting its first H1 as title and its first
// paragraph as summary, and renders the whole document to HTML.
func UnmarshallReadme(in []byte, opts ...Option) (*Readme, error) {
	options := &options{summaryLength: 280}
	for _, opt := range opts {
		opt(options)
	}

	md := newMarkdown()
	root := md.Parser().Parse(text.NewReader(in))

	readme := &Readme{}
	err := ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			if n.Level == 1 && readme.Title == "" {
				title, err := DecodeTextFromNode(n, in)
				if err != nil {
					return ast.WalkStop, fmt.Errorf("failed to decode heading text: %v", err)
				}
				readme.Title = strings.TrimSpace(title)
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			if readme.Summary == "" && hasPlainText(n, in) {
				summary, err := DecodeTextFromNode(n, in)
				if err != nil {
					return ast.WalkStop, fmt.Errorf("failed to decode paragraph text: %v", err)
				}
				readme.Summary = truncate(strings.Join(strings.Fields(summary), " "), options.summaryLength)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if readme.Title == "" {
		readme.Title = options.fallbackTitle
	}

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, in, root); err != nil {
		return nil, fmt.Errorf("failed to render readme: %w", err)
	}
	readme.HTML = buf.String()
	return readme, nil
}

// DecodeTextFromNode extracts text content from an AST node
func DecodeTextFromNode(node ast.Node, src []byte) (string, error) {
	var text strings.Builder
	err := ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if textNode, ok := n.(*ast.Text); ok {
				text.Write(textNode.Segment.Value(src))
				if textNode.SoftLineBreak() || textNode.HardLineBreak() {
					text.WriteByte(' ')
				}
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return text.String(), nil
}

// hasPlainText reports whether a paragraph carries prose of its own rather than only
// badges or links.
func hasPlainText(n ast.Node, src []byte) bool {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			if len(bytes.TrimSpace(c.Segment.Value(src))) > 0 {
				return true
			}
		case *ast.Emphasis, *ast.CodeSpan:
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
