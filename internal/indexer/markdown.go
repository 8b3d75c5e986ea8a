package indexer

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// MarkdownFlattener turns markdown sources into plain text lines so they can
// be windowed like .txt books. Block structure becomes blank-line separation
// and inline markup is dropped.
type MarkdownFlattener struct {
	parser goldmark.Markdown
}

// NewMarkdownFlattener creates a flattener with table support enabled.
func NewMarkdownFlattener() *MarkdownFlattener {
	return &MarkdownFlattener{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Flatten parses content and returns its title (first level 1 or 2 heading,
// empty when none) and its text lines.
func (f *MarkdownFlattener) Flatten(content []byte) (title string, lines []string) {
	if len(content) == 0 {
		return "", []string{}
	}

	doc := f.parser.Parser().Parse(text.NewReader(content))
	title = extractTitle(doc, content)

	var out []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		block := flattenBlock(n, content)
		if len(block) == 0 {
			continue
		}
		if len(out) > 0 {
			out = append(out, "")
		}
		out = append(out, block...)
	}
	if out == nil {
		out = []string{}
	}
	return title, out
}

func flattenBlock(n ast.Node, content []byte) []string {
	switch node := n.(type) {
	case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
		return splitLines(inlineText(node, content))
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return rawLines(node, content)
	case *ast.ThematicBreak, *ast.HTMLBlock:
		return nil
	case *ast.List:
		var lines []string
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			for i, line := range flattenChildren(item, content) {
				if i == 0 {
					line = "- " + line
				}
				lines = append(lines, line)
			}
		}
		return lines
	case *ast.Blockquote:
		return flattenChildren(node, content)
	default:
		kindName := n.Kind().String()
		if strings.Contains(kindName, "Table") {
			return tableLines(n, content)
		}
		return splitLines(extractTextFromNode(n, content))
	}
}

func flattenChildren(n ast.Node, content []byte) []string {
	var lines []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		lines = append(lines, flattenBlock(c, content)...)
	}
	return lines
}

// inlineText concatenates the text of n, keeping soft and hard line breaks.
func inlineText(n ast.Node, content []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func rawLines(n ast.Node, content []byte) []string {
	segments := n.Lines()
	lines := make([]string, 0, segments.Len())
	for i := 0; i < segments.Len(); i++ {
		seg := segments.At(i)
		lines = append(lines, strings.TrimRight(string(seg.Value(content)), "\r\n"))
	}
	return lines
}

func tableLines(table ast.Node, content []byte) []string {
	var lines []string
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		lines = append(lines, extractTableRowText(row, content))
	}
	return lines
}

func splitLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

// extractTitle returns the first level 1 heading, else the first level 2 heading.
func extractTitle(doc ast.Node, content []byte) string {
	var firstH1, firstH2 string

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			headingText := extractTextFromNode(heading, content)
			if heading.Level == 1 && firstH1 == "" {
				firstH1 = headingText
				return ast.WalkStop, nil
			}
			if heading.Level == 2 && firstH2 == "" {
				firstH2 = headingText
			}
		}
		return ast.WalkContinue, nil
	})

	if firstH1 != "" {
		return firstH1
	}
	return firstH2
}

// extractTextFromNode extracts text content from a node and its children.
func extractTextFromNode(n ast.Node, content []byte) string {
	var textBuilder strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			textBuilder.Write(v.Segment.Value(content))
		case *ast.String:
			textBuilder.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(textBuilder.String())
}

// extractTableRowText extracts text from a table row, formatting cells with pipe separators.
func extractTableRowText(row ast.Node, content []byte) string {
	var rowBuilder strings.Builder
	cellCount := 0

	_ = ast.Walk(row, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if strings.Contains(node.Kind().String(), "TableCell") {
			if cellCount > 0 {
				rowBuilder.WriteString(" | ")
			}
			rowBuilder.WriteString(extractTextFromNode(node, content))
			cellCount++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return rowBuilder.String()
}
