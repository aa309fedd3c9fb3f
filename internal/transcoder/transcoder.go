// Package transcoder converts rendered answers into the compact form
// replayed to the model in later exchanges.
package transcoder

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// MaxCodeLines is the number of lines kept from each fenced code block.
const MaxCodeLines = 12

var (
	parserInstance goldmark.Markdown
	parserOnce     sync.Once

	blankRuns = regexp.MustCompile(`\n{3,}`)
)

func parser() goldmark.Markdown {
	parserOnce.Do(func() {
		parserInstance = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return parserInstance
}

// EncodeSummarized shortens a markdown answer: fenced code blocks longer
// than MaxCodeLines are cut with a note naming how many lines were
// dropped, and runs of blank lines are collapsed. Everything else is
// kept byte for byte.
func EncodeSummarized(answer string) (string, error) {
	if strings.TrimSpace(answer) == "" {
		return "", nil
	}
	source := []byte(answer)
	document := parser().Parser().Parse(text.NewReader(source))

	var out strings.Builder
	last := 0
	err := ast.Walk(document, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := block.Lines()
		if lines.Len() <= MaxCodeLines {
			return ast.WalkSkipChildren, nil
		}
		cut := lines.At(MaxCodeLines).Start
		end := lines.At(lines.Len() - 1).Stop
		if cut < last || end > len(source) {
			return ast.WalkStop, fmt.Errorf("code block segment out of order at offset %d", cut)
		}
		out.Write(source[last:cut])
		fmt.Fprintf(&out, "[%d lines hidden]\n", lines.Len()-MaxCodeLines)
		last = end
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode answer: %w", err)
	}
	out.Write(source[last:])

	encoded := blankRuns.ReplaceAllString(out.String(), "\n\n")
	return strings.TrimSpace(encoded), nil
}

var conclusionHeadings = map[string]bool{
	"conclusion": true,
	"summary":    true,
	"tl;dr":      true,
}

// SplitConclusion separates a trailing "Conclusion" or "Summary" section
// from the body of an answer. Without such a heading the whole answer is
// returned and the conclusion is empty.
func SplitConclusion(answer string) (body, conclusion string) {
	source := []byte(answer)
	document := parser().Parser().Parse(text.NewReader(source))

	start, stop := -1, -1
	for n := document.LastChild(); n != nil; n = n.PreviousSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		title := strings.ToLower(strings.TrimSpace(inlineText(heading, source)))
		title = strings.TrimSuffix(title, ":")
		if !conclusionHeadings[title] {
			break
		}
		if heading.Lines().Len() == 0 {
			break
		}
		stop = heading.Lines().At(heading.Lines().Len() - 1).Stop
		start = lineStart(source, heading.Lines().At(0).Start)
		break
	}
	if start < 0 {
		return strings.TrimSpace(answer), ""
	}
	return strings.TrimSpace(string(source[:start])), strings.TrimSpace(string(source[stop:]))
}

func inlineText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			sb.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func lineStart(source []byte, offset int) int {
	for offset > 0 && source[offset-1] != '\n' {
		offset--
	}
	return offset
}
